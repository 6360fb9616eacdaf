// Package store declares the durable storage ports consumed by the engine.
//
// Lookups return (value, found, error): a missing record is not an error,
// and every caller must handle found == false explicitly. Implementations
// return copies; mutating a returned value never changes stored state
// until it is written back with Update.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tenantAuth/model"
)

// ErrConflict reports a uniqueness violation (duplicate slug, duplicate
// email within a tenant, duplicate token value).
var ErrConflict = errors.New("store: unique constraint violated")

// Tenants is the tenant half of the directory.
type Tenants interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	UpdateTenant(ctx context.Context, t *model.Tenant) error
	FindTenantByID(ctx context.Context, id string) (*model.Tenant, bool, error)
	FindTenantBySlug(ctx context.Context, slug string) (*model.Tenant, bool, error)
	TenantExistsBySlug(ctx context.Context, slug string) (bool, error)
}

// Users is the user half of the directory. Returned users have Tenant
// populated.
type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, bool, error)
	FindUserByEmailAndTenantSlug(ctx context.Context, email, tenantSlug string) (*model.User, bool, error)
	UserExistsByEmailAndTenantID(ctx context.Context, email, tenantID string) (bool, error)
}

// RefreshTokens persists refresh token records keyed by token hash.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, bool, error)
	// RevokeRefreshToken reports whether a record with that hash existed.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	RevokeAllRefreshTokens(ctx context.Context, userID string) (int, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error)
}

// OneTimeTokens persists verification and reset tokens.
type OneTimeTokens interface {
	CreateOneTimeToken(ctx context.Context, t *model.OneTimeToken) error
	FindOneTimeToken(ctx context.Context, kind model.TokenKind, token string) (*model.OneTimeToken, bool, error)
	// ClaimOneTimeToken atomically flips used from false to true. It returns
	// false when the token was already used (or no longer exists), so two
	// concurrent claims never both succeed.
	ClaimOneTimeToken(ctx context.Context, id string) (bool, error)
	DeleteOneTimeTokens(ctx context.Context, userID string, kind model.TokenKind) (int, error)
	// ReplaceOneTimeTokens deletes every token of t.Kind owned by t.UserID
	// and stores t as one step, so concurrent replaces leave exactly one
	// token. It returns how many tokens were removed.
	ReplaceOneTimeTokens(ctx context.Context, t *model.OneTimeToken) (int, error)
}

// LoginAttempts is the append-only attempt ledger.
type LoginAttempts interface {
	AppendLoginAttempt(ctx context.Context, a *model.LoginAttempt) error
	CountFailuresByEmailSince(ctx context.Context, email, tenantSlug string, since time.Time) (int, error)
	CountFailuresByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
	HasSuccessFromIPSince(ctx context.Context, userID, ip string, since time.Time) (bool, error)
}

// Repositories bundles every port. Both the memory and SQL stores
// implement all of them on a single type.
type Repositories struct {
	Tenants       Tenants
	Users         Users
	RefreshTokens RefreshTokens
	OneTimeTokens OneTimeTokens
	LoginAttempts LoginAttempts
}

// Backend is implemented by stores that serve every port.
type Backend interface {
	Tenants
	Users
	RefreshTokens
	OneTimeTokens
	LoginAttempts
}

// From wires a single backend into every port.
func From(b Backend) Repositories {
	return Repositories{
		Tenants:       b,
		Users:         b,
		RefreshTokens: b,
		OneTimeTokens: b,
		LoginAttempts: b,
	}
}

// Validate reports the first missing port.
func (r Repositories) Validate() error {
	switch {
	case r.Tenants == nil:
		return errors.New("store: tenants repository is required")
	case r.Users == nil:
		return errors.New("store: users repository is required")
	case r.RefreshTokens == nil:
		return errors.New("store: refresh token repository is required")
	case r.OneTimeTokens == nil:
		return errors.New("store: one-time token repository is required")
	case r.LoginAttempts == nil:
		return errors.New("store: login attempt repository is required")
	}
	return nil
}
