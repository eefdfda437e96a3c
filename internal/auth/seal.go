package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// TokenSealer protects GitHub access tokens before they are stored.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// PlainSealer stores tokens as they are. It is the default when no
// TOKEN_ENCRYPTION_KEY is configured.
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (PlainSealer) Open(stored string) (string, error) { return stored, nil }

const sealedPrefix = "sealed:"

const nonceSize = 24

// SecretboxSealer encrypts tokens with NaCl secretbox (XSalsa20-Poly1305).
//
// Stored form: "sealed:" + base64(nonce || box). Open also accepts values
// without the prefix and returns them unchanged, so rows written before a
// key was configured keep working.
type SecretboxSealer struct {
	key [32]byte
}

// NewSecretboxSealer parses a 32-byte key given as hex or standard base64.
func NewSecretboxSealer(encodedKey string) (*SecretboxSealer, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, err
	}
	s := &SecretboxSealer{}
	copy(s.key[:], raw)
	return s, nil
}

func decodeKey(k string) ([]byte, error) {
	if raw, err := hex.DecodeString(k); err == nil && len(raw) == 32 {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(k); err == nil && len(raw) == 32 {
		return raw, nil
	}
	return nil, errors.New("auth: token encryption key must be 32 bytes, hex or base64 encoded")
}

func (s *SecretboxSealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *SecretboxSealer) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	box, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("auth: decoding sealed token: %w", err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("auth: sealed token is truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("auth: sealed token does not open with this key")
	}
	return string(plain), nil
}

// NewSealer picks the sealer for a configured key: secretbox when set,
// plaintext otherwise.
func NewSealer(encodedKey string) (TokenSealer, error) {
	if encodedKey == "" {
		return PlainSealer{}, nil
	}
	return NewSecretboxSealer(encodedKey)
}
