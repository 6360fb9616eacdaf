package password

import (
	"errors"
	"strings"
)

// ErrMalformedHash is returned by Verify when the stored hash cannot be
// parsed. Callers must treat it as a failed verification.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher hashes and verifies passwords. Verify never reports true together
// with a non-nil error.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	// Recognizes reports whether encodedHash was produced by this algorithm.
	Recognizes(encodedHash string) bool
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Chain hashes with Primary and verifies with whichever hasher recognizes
// the stored format.
type Chain struct {
	Primary Hasher
	Legacy  []Hasher
}

// NewChain builds a Chain. primary must not be nil.
func NewChain(primary Hasher, legacy ...Hasher) (*Chain, error) {
	if primary == nil {
		return nil, errors.New("password: primary hasher is required")
	}
	return &Chain{Primary: primary, Legacy: legacy}, nil
}

func (c *Chain) Hash(password string) (string, error) {
	return c.Primary.Hash(password)
}

// Verify dispatches on the stored hash format. Unknown formats fail closed.
func (c *Chain) Verify(password, encodedHash string) (bool, error) {
	h := c.find(encodedHash)
	if h == nil {
		return false, ErrMalformedHash
	}
	ok, err := h.Verify(password, encodedHash)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (c *Chain) Recognizes(encodedHash string) bool {
	return c.find(encodedHash) != nil
}

// NeedsUpgrade reports true when the hash is in a legacy format or was made
// with weaker primary parameters.
func (c *Chain) NeedsUpgrade(encodedHash string) (bool, error) {
	if !c.Primary.Recognizes(encodedHash) {
		return c.find(encodedHash) != nil, nil
	}
	return c.Primary.NeedsUpgrade(encodedHash)
}

func (c *Chain) find(encodedHash string) Hasher {
	if strings.TrimSpace(encodedHash) == "" {
		return nil
	}
	if c.Primary.Recognizes(encodedHash) {
		return c.Primary
	}
	for _, h := range c.Legacy {
		if h != nil && h.Recognizes(encodedHash) {
			return h
		}
	}
	return nil
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*BCrypt)(nil)
	_ Hasher = (*Chain)(nil)
)
