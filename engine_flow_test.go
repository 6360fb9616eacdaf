package tenantAuth

import (
	"context"
	"errors"
	"testing"
)

func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	ctx := context.Background()

	p := env.register(t, "acme", "a@x.com", "Secure1!")
	if p.EmailVerified {
		t.Fatal("new account must be unverified")
	}
	_, err := env.engine.Login(ctx, LoginRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	if !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("expected ErrUserNotVerified, got %v", err)
	}

	// Verified out of band, without the emailed token.
	u, _, err := env.repo.FindUserByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	u.VerifyEmail(env.clock.Now())
	if err := env.repo.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	res := env.login(t, "acme", "a@x.com", "Secure1!")

	principal, err := env.engine.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	profile, err := env.engine.GetProfile(ctx, principal.UserID)
	if err != nil || profile.Email != "a@x.com" || !profile.EmailVerified {
		t.Fatalf("GetProfile = %+v, %v", profile, err)
	}

	if err := env.engine.Logout(ctx, principal.UserID, res.AccessToken, res.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if env.engine.Introspect(ctx, res.AccessToken).Active {
		t.Fatal("access token must be inactive after logout")
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestNilEngineReportsNotReady(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.Login(ctx, LoginRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: %v", err)
	}
	if _, err := e.Register(ctx, RegisterRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Register: %v", err)
	}
	if e.Introspect(ctx, "x").Active {
		t.Fatal("nil engine must report inactive")
	}
	e.Close()
}
