package model

import (
	"time"

	"github.com/uptrace/bun"
)

// RefreshToken is the durable record of an issued refresh token. Only the
// hash of the opaque value is ever stored.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	TokenHash string    `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	Revoked   bool      `bun:"revoked,notnull" json:"revoked"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// TokenKind distinguishes the one-time token workflows.
type TokenKind string

const (
	KindEmailVerification TokenKind = "email_verification"
	KindPasswordReset     TokenKind = "password_reset"
)

// OneTimeToken is a short-lived, single-use token. The value is stored as
// issued. Once Used is set it is never cleared.
type OneTimeToken struct {
	bun.BaseModel `bun:"table:one_time_tokens,alias:ott"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Kind      TokenKind `bun:"kind,notnull" json:"kind"`
	Token     string    `bun:"token,notnull,unique" json:"-"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	Used      bool      `bun:"used,notnull" json:"used"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

func (t *OneTimeToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *OneTimeToken) IsValid(now time.Time) bool {
	return !t.Used && !t.IsExpired(now)
}

// MarkUsed consumes the token locally. Stores perform the durable
// compare-and-set.
func (t *OneTimeToken) MarkUsed() {
	t.Used = true
}

// LoginAttempt is an append-only ledger entry. UserID is empty when the
// lookup failed.
type LoginAttempt struct {
	bun.BaseModel `bun:"table:login_attempts,alias:la"`

	ID         string    `bun:"id,pk" json:"id"`
	UserID     string    `bun:"user_id,nullzero" json:"user_id,omitempty"`
	Email      string    `bun:"email,notnull" json:"email"`
	TenantSlug string    `bun:"tenant_slug,notnull" json:"tenant_slug"`
	IP         string    `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string    `bun:"user_agent" json:"user_agent,omitempty"`
	Success    bool      `bun:"success,notnull" json:"success"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}
