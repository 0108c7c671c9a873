package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func issueCookie(t *testing.T, j *JWTSessions, s Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := j.Issue(rec, s); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Issue() set %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}

func TestSessionRoundtrip(t *testing.T) {
	j := NewJWTSessions("test-secret", time.Hour)

	cookie := issueCookie(t, j, Session{UserID: "user123", DisplayName: "Erin"})
	if cookie.Name != sessionCookieName {
		t.Errorf("cookie name = %q, want %q", cookie.Name, sessionCookieName)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie not HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	got, err := j.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest() error = %v", err)
	}
	if got.UserID != "user123" || got.DisplayName != "Erin" {
		t.Errorf("session = %+v, want {user123 Erin}", got)
	}
}

func TestSessionMissingCookie(t *testing.T) {
	j := NewJWTSessions("test-secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := j.FromRequest(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("FromRequest() error = %v, want ErrNoSession", err)
	}
}

func TestSessionTamperedToken(t *testing.T) {
	j := NewJWTSessions("test-secret", time.Hour)
	cookie := issueCookie(t, j, Session{UserID: "user123"})

	cookie.Value += "x"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	if _, err := j.FromRequest(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("FromRequest() error = %v, want ErrNoSession for tampered token", err)
	}
}

func TestSessionWrongSecret(t *testing.T) {
	issuer := NewJWTSessions("secret-a", time.Hour)
	verifier := NewJWTSessions("secret-b", time.Hour)

	cookie := issueCookie(t, issuer, Session{UserID: "user123"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	if _, err := verifier.FromRequest(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("FromRequest() error = %v, want ErrNoSession for foreign signature", err)
	}
}

func TestSessionExpired(t *testing.T) {
	j := NewJWTSessions("test-secret", -time.Minute)

	cookie := issueCookie(t, j, Session{UserID: "user123"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	if _, err := j.FromRequest(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("FromRequest() error = %v, want ErrNoSession for expired token", err)
	}
}

func TestSessionClear(t *testing.T) {
	j := NewJWTSessions("test-secret", time.Hour)

	rec := httptest.NewRecorder()
	j.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Clear() set %d cookies, want 1", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("cleared cookie MaxAge = %d, want -1", cookies[0].MaxAge)
	}
}
