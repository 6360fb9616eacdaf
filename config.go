package tenantAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/tenantAuth/internal/rate"
	"github.com/MrEthical07/tenantAuth/jwt"
	"github.com/MrEthical07/tenantAuth/password"
)

// Config defines a public type used by tenantAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	OneTime   OneTimeConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Login     LoginConfig
	Mail      MailConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing. Secret is the shared HMAC key.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	Secret        []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls refresh tokens.
type SessionConfig struct {
	RefreshTTL time.Duration
	TokenBytes int
}

// OneTimeConfig controls verification and reset token lifetimes.
type OneTimeConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and its cost. Hashes in
// the other supported format still verify, and are rewritten on the next
// successful login when UpgradeOnLogin is set.
type PasswordConfig struct {
	Algorithm        string // "argon2id" (default) or "bcrypt"
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	BCryptCost       int
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitRule caps attempts per fixed window. A zero rule disables limiting.
type RateLimitRule struct {
	MaxAttempts int
	Window      time.Duration
}

func (r RateLimitRule) rule() rate.Rule {
	return rate.Rule{MaxAttempts: r.MaxAttempts, Window: r.Window}
}

// RateLimitConfig holds per-endpoint rules keyed by client IP.
type RateLimitConfig struct {
	Enabled              bool
	Login                RateLimitRule
	Register             RateLimitRule
	PasswordResetRequest RateLimitRule
	PasswordReset        RateLimitRule
}

// LoginConfig controls post-login side effects.
type LoginConfig struct {
	// NotifyNewLocation sends a security alert when a user logs in from an
	// IP with no successful login inside AlertLookback.
	NotifyNewLocation bool
	AlertLookback     time.Duration
}

// MailConfig controls the queue placed in front of the mail dispatcher.
type MailConfig struct {
	Async     bool
	QueueSize int
	Workers   int
}

// AuditConfig controls audit buffering.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles Prometheus counters. A registerer must also be
// supplied through the Builder.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns production defaults. JWT.Secret must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RefreshTTL: 30 * 24 * time.Hour,
			TokenBytes: 32,
		},
		OneTime: OneTimeConfig{
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:        "argon2id",
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			BCryptCost:       password.MinBCryptCost,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		RateLimit: RateLimitConfig{
			Enabled:              true,
			Login:                RateLimitRule{MaxAttempts: 5, Window: 15 * time.Minute},
			Register:             RateLimitRule{MaxAttempts: 3, Window: time.Hour},
			PasswordResetRequest: RateLimitRule{MaxAttempts: 3, Window: time.Hour},
			PasswordReset:        RateLimitRule{MaxAttempts: 5, Window: time.Hour},
		},
		Login: LoginConfig{
			NotifyNewLocation: false,
			AlertLookback:     30 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Async:     true,
			QueueSize: 256,
			Workers:   2,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
	default:
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.Secret) < jwt.MinSecretBytes {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session RefreshTTL must be > 0")
	}
	if c.Session.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("Session RefreshTTL must be longer than JWT AccessTTL")
	}
	if c.Session.TokenBytes < 32 {
		return errors.New("Session TokenBytes must be >= 32")
	}

	// One-time tokens
	if c.OneTime.VerificationTTL <= 0 || c.OneTime.ResetTTL <= 0 {
		return errors.New("OneTime TTLs must be > 0")
	}

	// Password
	switch c.Password.Algorithm {
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case "bcrypt":
		if c.Password.BCryptCost < password.MinBCryptCost {
			return errors.New("Password BCryptCost must be >= 12")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Rate limits
	if c.RateLimit.Enabled {
		for name, r := range map[string]RateLimitRule{
			"Login":                c.RateLimit.Login,
			"Register":             c.RateLimit.Register,
			"PasswordResetRequest": c.RateLimit.PasswordResetRequest,
			"PasswordReset":        c.RateLimit.PasswordReset,
		} {
			if r.MaxAttempts < 0 || r.Window < 0 {
				return errors.New("RateLimit " + name + " must not be negative")
			}
			if (r.MaxAttempts == 0) != (r.Window == 0) {
				return errors.New("RateLimit " + name + " needs both MaxAttempts and Window")
			}
		}
	}

	// Login
	if c.Login.NotifyNewLocation && c.Login.AlertLookback <= 0 {
		return errors.New("Login AlertLookback must be > 0 when NotifyNewLocation is true")
	}

	// Mail
	if c.Mail.Async && (c.Mail.QueueSize <= 0 || c.Mail.Workers <= 0) {
		return errors.New("Mail QueueSize and Workers must be > 0 when Async is true")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
