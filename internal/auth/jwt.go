// Package auth establishes local sessions for users who logged in with
// GitHub, and seals the GitHub tokens we keep.
//
// SESSION FLOW:
//  1. The fetch-details endpoint aggregates GitHub data and upserts the user
//  2. The handler then calls SessionManager.Establish, which signs a JWT
//     and stores it in the HttpOnly "session" cookie
//  3. RequireAuth reads the cookie on later requests, validates the JWT and
//     puts the user id into the request context
//
// The JWT is stateless: signature, issuer and expiry are checked without a
// database lookup. Logging out only clears the cookie.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","iss":"deployhub","backend":"github-oauth",...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "deployhub"

	// BackendGitHub marks sessions that came from the GitHub OAuth flow.
	BackendGitHub = "github-oauth"
)

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Generate one with: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. Subject carries the internal user id; Backend
// records which login mechanism authenticated the user.
type claims struct {
	Backend string `json:"backend"`
	jwt.RegisteredClaims
}

// Session is what a valid token says about its bearer.
type Session struct {
	UserID    int64
	Backend   string
	ExpiresAt time.Time
}

// Generate signs a token for userID that expires after ttl.
// Every token gets a unique jti, so two logins in the same second still
// produce different tokens.
func (s *TokenService) Generate(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Backend: BackendGitHub,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the session it carries.
//
// jwt.WithValidMethods pins HS256, which rules out "alg":"none" and
// algorithm confusion. Issuer and expiry are both required.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: token subject %q is not a user id", c.Subject)
	}

	return &Session{UserID: userID, Backend: c.Backend, ExpiresAt: c.ExpiresAt.Time}, nil
}
