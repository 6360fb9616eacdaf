package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// OpaqueTokenBytes is the entropy of refresh and one-time tokens.
const OpaqueTokenBytes = 32

// NewOpaqueToken returns n bytes from crypto/rand encoded as base64url
// without padding. The output length is fixed for a given n.
func NewOpaqueToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the standard base64 SHA-256 digest of token. Only this
// value is persisted for refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}
