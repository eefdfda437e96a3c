package auth

import (
	"fmt"
	"net/http"
	"time"
)

// CookieName is the cookie that carries the session token.
const CookieName = "session"

// SessionManager turns a user id into a session cookie and back.
type SessionManager struct {
	tokens *TokenService
	ttl    time.Duration
	secure bool
}

// NewSessionManager returns a manager issuing sessions that last ttl.
// secure sets the cookie's Secure flag; turn it on whenever the public
// URL is https.
func NewSessionManager(tokens *TokenService, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{tokens: tokens, ttl: ttl, secure: secure}
}

// Establish logs userID in by setting the session cookie on w.
func (m *SessionManager) Establish(w http.ResponseWriter, userID int64) error {
	token, err := m.tokens.Generate(userID, m.ttl)
	if err != nil {
		return fmt.Errorf("auth: establishing session for user %d: %w", userID, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest returns the session carried by r's cookie.
func (m *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}
	return m.tokens.Validate(cookie.Value)
}
