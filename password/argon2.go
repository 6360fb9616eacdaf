package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Config holds Argon2id cost parameters. MaxPasswordBytes caps input size
// when positive.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes with Argon2id and encodes results as PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Hash derives a key with a fresh random salt, so hashing the same input
// twice yields different strings.
func (a *Argon2) Hash(password string) (string, error) {
	// raw bytes exactly as provided, no Unicode normalization
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	if a.config.MaxPasswordBytes > 0 && len(password) > a.config.MaxPasswordBytes {
		return "", errors.New("password exceeds maximum length")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return phcHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
		key:         key,
	}.encode(), nil
}

// Verify recomputes the key with the stored parameters and compares in
// constant time. Unparseable hashes return ErrMalformedHash.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if a.config.MaxPasswordBytes > 0 && len(password) > a.config.MaxPasswordBytes {
		return false, nil
	}
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(stored.derive(password), stored.key) == 1, nil
}

func (a *Argon2) Recognizes(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$"+algorithmID+"$")
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return stored.memory < a.config.Memory ||
		stored.time < a.config.Time ||
		stored.parallelism < a.config.Parallelism ||
		uint32(len(stored.key)) != a.config.KeyLength, nil
}

// phcHash is one decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) encode() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.memory, h.time, h.parallelism,
		phcEncoding.EncodeToString(h.salt),
		phcEncoding.EncodeToString(h.key),
	)
}

// derive recomputes the key for password under h's parameters.
func (h phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
}

var phcEncoding = base64.StdEncoding

// decodePHC parses encoded and rejects anything below the hasher's
// minimum costs. Errors wrap ErrMalformedHash.
func decodePHC(encoded string) (phcHash, error) {
	var h phcHash
	fail := func(reason string) (phcHash, error) {
		return phcHash{}, fmt.Errorf("%w: %s", ErrMalformedHash, reason)
	}

	// "", algorithm, version, params, salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return fail("expected 5 '$'-separated fields")
	}
	if fields[1] != algorithmID {
		return fail("algorithm " + strconv.Quote(fields[1]))
	}

	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return fail("version field " + strconv.Quote(fields[2]))
	}

	var memory, time, parallelism uint64
	var rest string
	n, _ := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d%s", &memory, &time, &parallelism, &rest)
	if n != 3 {
		return fail("parameters " + strconv.Quote(fields[3]))
	}
	switch {
	case memory < uint64(minMemoryKB) || memory > math.MaxUint32:
		return fail("memory cost out of range")
	case time < uint64(minTimeCost) || time > math.MaxUint32:
		return fail("time cost out of range")
	case parallelism < uint64(minParallelism) || parallelism > math.MaxUint8:
		return fail("parallelism out of range")
	}
	h.memory, h.time, h.parallelism = uint32(memory), uint32(time), uint8(parallelism)

	var err error
	if h.salt, err = phcEncoding.DecodeString(fields[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return fail("salt")
	}
	if h.key, err = phcEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return fail("key")
	}
	return h, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	if cfg.MaxPasswordBytes < 0 {
		return errors.New("password max bytes must be >= 0")
	}

	return nil
}
