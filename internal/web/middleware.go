package web

import (
	"context"
	"net/http"
)

type contextKey struct{ name string }

var sessionKey = &contextKey{"session"}

// requireSession rejects requests without a valid session and stores the
// session in the request context for handlers downstream.
func requireSession(sessions SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.FromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the session stored by requireSession. Only valid on
// requests that passed through it.
func sessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}
