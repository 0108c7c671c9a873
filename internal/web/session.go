package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionCookieName = "ms_session"

// ErrNoSession is returned when a request carries no valid session.
var ErrNoSession = errors.New("no valid session")

// Session identifies an authenticated user.
type Session struct {
	UserID      string
	DisplayName string
}

// SessionManager issues and validates browser sessions.
type SessionManager interface {
	Issue(w http.ResponseWriter, s Session) error
	FromRequest(r *http.Request) (*Session, error)
	Clear(w http.ResponseWriter)
}

// JWTSessions implements SessionManager with signed stateless cookies.
type JWTSessions struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTSessions creates a session manager signing with the given secret.
func NewJWTSessions(secret string, ttl time.Duration) *JWTSessions {
	return &JWTSessions{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session token and sets it as an HTTP-only cookie.
func (j *JWTSessions) Issue(w http.ResponseWriter, s Session) error {
	now := time.Now()
	claims := sessionClaims{
		DisplayName: s.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(j.ttl.Seconds()),
	})
	return nil
}

// FromRequest extracts and validates the session from the request cookie.
// Returns ErrNoSession for missing, malformed, or expired tokens.
func (j *JWTSessions) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims,
		func(*jwt.Token) (any, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrNoSession
	}

	return &Session{
		UserID:      claims.Subject,
		DisplayName: claims.DisplayName,
	}, nil
}

// Clear expires the session cookie.
func (j *JWTSessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
