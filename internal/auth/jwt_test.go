package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(42, time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Generate() token doesn't look like a JWT: %q", token)
	}

	s, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.UserID != 42 {
		t.Errorf("UserID = %d, want 42", s.UserID)
	}
	if s.Backend != BackendGitHub {
		t.Errorf("Backend = %q, want %q", s.Backend, BackendGitHub)
	}
	if time.Until(s.ExpiresAt) <= 0 {
		t.Errorf("ExpiresAt = %v, want in the future", s.ExpiresAt)
	}
}

func TestGenerate_UniquePerCall(t *testing.T) {
	ts := newTestTokenService(t)

	a, _ := ts.Generate(1, time.Hour)
	b, _ := ts.Generate(1, time.Hour)
	if a == b {
		t.Error("two tokens for the same user in the same second are identical")
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(1, -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	_, err = ts.Validate(token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("Validate() error = %v, want expired", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _ := newTestTokenService(t).Generate(1, time.Hour)

	other, _ := NewTokenService("a-completely-different-secret")
	if _, err := other.Validate(token); err == nil {
		t.Error("Validate() accepted a token signed with another secret")
	}
}

func TestValidate_WrongIssuer(t *testing.T) {
	secret := "test-secret-at-least-16-chars!!"
	c := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	ts, _ := NewTokenService(secret)
	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() accepted a token from another issuer")
	}
}

func TestValidate_NonNumericSubject(t *testing.T) {
	secret := "test-secret-at-least-16-chars!!"
	c := jwt.RegisteredClaims{
		Subject:   "cv37rs3pp9olc6atsptg",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))

	ts, _ := NewTokenService(secret)
	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() accepted a non-numeric subject")
	}
}

func TestValidate_Garbage(t *testing.T) {
	if _, err := newTestTokenService(t).Validate("not.a.jwt"); err == nil {
		t.Error("Validate() accepted garbage")
	}
}
