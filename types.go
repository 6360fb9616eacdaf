package tenantAuth

import (
	"time"

	"github.com/MrEthical07/tenantAuth/model"
)

// TokenType is the scheme reported with issued access tokens.
const TokenType = "Bearer"

// UserProfile is the sanitized view of a user. It never carries the
// password hash.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	TenantID      string    `json:"tenantId"`
	TenantSlug    string    `json:"tenantSlug"`
	TenantName    string    `json:"tenantName"`
	Roles         []string  `json:"roles"`
	EmailVerified bool      `json:"emailVerified"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func profileOf(u *model.User) *UserProfile {
	p := &UserProfile{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		TenantID:      u.TenantID,
		Roles:         u.RoleNames(),
		EmailVerified: u.EmailVerified,
		Enabled:       u.Enabled,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.Tenant != nil {
		p.TenantSlug = u.Tenant.Slug
		p.TenantName = u.Tenant.Name
	}
	return p
}

// TenantInfo is the public view of a tenant.
type TenantInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

func tenantInfoOf(t *model.Tenant) *TenantInfo {
	return &TenantInfo{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Enabled:   t.Enabled,
		CreatedAt: t.CreatedAt,
	}
}

// AuthResult is returned by Login. RefreshToken is the only time the
// plaintext refresh token is ever exposed.
type AuthResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *UserProfile `json:"user"`
}

// TokenResult is returned by Refresh: a new access token only.
type TokenResult struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Introspection describes an access token. When Active is false every
// other field is zero.
type Introspection struct {
	Active     bool      `json:"active"`
	UserID     string    `json:"sub,omitempty"`
	Email      string    `json:"email,omitempty"`
	TenantID   string    `json:"tenantId,omitempty"`
	TenantSlug string    `json:"tenantSlug,omitempty"`
	Roles      []string  `json:"roles,omitempty"`
	TokenID    string    `json:"jti,omitempty"`
	IssuedAt   time.Time `json:"iat,omitempty"`
	ExpiresAt  time.Time `json:"exp,omitempty"`
}

// Principal is the identity behind a verified access token.
type Principal struct {
	UserID     string
	Email      string
	TenantID   string
	TenantSlug string
	Roles      []string
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginRequest carries the caller-supplied login fields.
type LoginRequest struct {
	TenantSlug string
	Email      string
	Password   string
	IP         string
	UserAgent  string
}

// RegisterRequest carries the caller-supplied registration fields.
type RegisterRequest struct {
	TenantSlug string
	Email      string
	Password   string
	FirstName  string
	LastName   string
}
