package model

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is a coarse authorization label carried in access tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ErrLastRole is returned when removing a role would leave the user with none.
var ErrLastRole = errors.New("user must keep at least one role")

// User belongs to exactly one tenant. Email is stored lowercased and is
// unique within the tenant only.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            string    `bun:"id,pk" json:"id"`
	TenantID      string    `bun:"tenant_id,notnull,unique:users_tenant_email" json:"tenant_id"`
	Tenant        *Tenant   `bun:"rel:belongs-to,join:tenant_id=id" json:"tenant,omitempty"`
	Email         string    `bun:"email,notnull,unique:users_tenant_email" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	FirstName     string    `bun:"first_name,notnull" json:"first_name"`
	LastName      string    `bun:"last_name,notnull" json:"last_name"`
	EmailVerified bool      `bun:"email_verified,notnull" json:"email_verified"`
	Enabled       bool      `bun:"enabled,notnull" json:"enabled"`
	Roles         []Role    `bun:"roles,notnull" json:"roles"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// NewUser builds an enabled, unverified user holding the USER role.
func NewUser(tenant *Tenant, email, passwordHash, firstName, lastName string, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Tenant:       tenant,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Enabled:      true,
		Roles:        []Role{RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	u.touch(now)
}

func (u *User) UpdateProfile(firstName, lastName string, now time.Time) {
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.touch(now)
}

func (u *User) VerifyEmail(now time.Time) {
	u.EmailVerified = true
	u.touch(now)
}

func (u *User) SetEnabled(enabled bool, now time.Time) {
	u.Enabled = enabled
	u.touch(now)
}

// AddRole grants role if the user does not already hold it.
func (u *User) AddRole(role Role, now time.Time) {
	if u.HasRole(role) {
		return
	}
	u.Roles = append(u.Roles, role)
	u.touch(now)
}

// RemoveRole revokes role. The role set never becomes empty.
func (u *User) RemoveRole(role Role, now time.Time) error {
	idx := slices.Index(u.Roles, role)
	if idx < 0 {
		return nil
	}
	if len(u.Roles) == 1 {
		return ErrLastRole
	}
	u.Roles = slices.Delete(slices.Clone(u.Roles), idx, idx+1)
	u.touch(now)
	return nil
}

func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// RoleNames returns the roles as plain strings for token claims.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, string(r))
	}
	return out
}

// Clone returns a deep copy so callers cannot alias store-owned state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Roles = slices.Clone(u.Roles)
	if u.Tenant != nil {
		t := *u.Tenant
		cp.Tenant = &t
	}
	return &cp
}

func (u *User) touch(now time.Time) {
	u.UpdatedAt = now.UTC()
}
