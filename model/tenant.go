package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tenant is an isolated organizational namespace. Users are unique per
// (tenant, email). The slug is assigned once and never changes.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:tnt"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Slug      string    `bun:"slug,notnull,unique" json:"slug"`
	Enabled   bool      `bun:"enabled,notnull" json:"enabled"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// NewTenant builds an enabled tenant with a fresh identifier and a
// normalized slug.
func NewTenant(name, slug string, now time.Time) *Tenant {
	return &Tenant{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Slug:      NormalizeSlug(slug),
		Enabled:   true,
		CreatedAt: now.UTC(),
	}
}

func (t *Tenant) Enable() { t.Enabled = true }
func (t *Tenant) Disable() { t.Enabled = false }

// NormalizeSlug trims and lowercases a tenant slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
