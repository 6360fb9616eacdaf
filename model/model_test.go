package model

import (
	"errors"
	"testing"
	"time"
)

func TestNewUserDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tenant := NewTenant(" Acme ", " ACME ", now)
	if tenant.Slug != "acme" || tenant.Name != "Acme" || !tenant.Enabled {
		t.Fatalf("unexpected tenant: %+v", tenant)
	}

	u := NewUser(tenant, "  Alice@X.com ", "hash", "Alice", "Smith", now)
	if u.Email != "alice@x.com" {
		t.Fatalf("expected lowercased email, got %q", u.Email)
	}
	if u.EmailVerified || !u.Enabled {
		t.Fatalf("expected unverified enabled user, got %+v", u)
	}
	if len(u.Roles) != 1 || u.Roles[0] != RoleUser {
		t.Fatalf("expected default USER role, got %v", u.Roles)
	}
	if u.TenantID != tenant.ID {
		t.Fatalf("tenant id mismatch")
	}
}

func TestUserMutatorsBumpUpdatedAt(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := NewUser(NewTenant("a", "a", start), "a@x.com", "h", "", "", start)

	steps := []func(time.Time){
		func(now time.Time) { u.SetPasswordHash("h2", now) },
		func(now time.Time) { u.UpdateProfile("A", "B", now) },
		func(now time.Time) { u.VerifyEmail(now) },
		func(now time.Time) { u.SetEnabled(false, now) },
		func(now time.Time) { u.AddRole(RoleAdmin, now) },
	}
	for i, step := range steps {
		now := start.Add(time.Duration(i+1) * time.Minute)
		step(now)
		if !u.UpdatedAt.Equal(now) {
			t.Fatalf("step %d: expected updatedAt %v, got %v", i, now, u.UpdatedAt)
		}
	}
	if !u.CreatedAt.Equal(start) {
		t.Fatalf("createdAt must not move")
	}
}

func TestRemoveRoleKeepsOne(t *testing.T) {
	now := time.Now()
	u := NewUser(NewTenant("a", "a", now), "a@x.com", "h", "", "", now)

	if err := u.RemoveRole(RoleUser, now); !errors.Is(err, ErrLastRole) {
		t.Fatalf("expected ErrLastRole, got %v", err)
	}

	u.AddRole(RoleAdmin, now)
	u.AddRole(RoleAdmin, now)
	if len(u.Roles) != 2 {
		t.Fatalf("AddRole must be idempotent, got %v", u.Roles)
	}
	if err := u.RemoveRole(RoleUser, now); err != nil {
		t.Fatalf("RemoveRole failed: %v", err)
	}
	if u.HasRole(RoleUser) || !u.HasRole(RoleAdmin) {
		t.Fatalf("unexpected roles: %v", u.Roles)
	}
}

func TestOneTimeTokenValidity(t *testing.T) {
	now := time.Now()
	tok := &OneTimeToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.IsValid(now) {
		t.Fatal("fresh token should be valid")
	}
	if tok.IsValid(now.Add(time.Hour)) {
		t.Fatal("token should be expired at its expiry instant")
	}

	tok.MarkUsed()
	if tok.IsValid(now) {
		t.Fatal("used token must never be valid again")
	}
}

func TestRefreshTokenValidity(t *testing.T) {
	now := time.Now()
	rt := &RefreshToken{ExpiresAt: now.Add(time.Minute)}
	if !rt.IsValid(now) {
		t.Fatal("expected valid")
	}
	rt.Revoked = true
	if rt.IsValid(now) {
		t.Fatal("revoked token must be invalid")
	}
	if !(&RefreshToken{ExpiresAt: now.Add(-time.Second)}).IsExpired(now) {
		t.Fatal("expected expired")
	}
}
