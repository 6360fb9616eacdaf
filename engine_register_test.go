package tenantAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tenantAuth/mail"
)

func TestCreateTenantNormalizesSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.engine.CreateTenant(ctx, "  Acme Corp ", " ACME ")
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if info.Slug != "acme" || info.Name != "Acme Corp" || !info.Enabled {
		t.Fatalf("unexpected tenant: %+v", info)
	}

	if _, err := env.engine.CreateTenant(ctx, "Other", "Acme"); !errors.Is(err, ErrTenantAlreadyExists) {
		t.Fatalf("expected ErrTenantAlreadyExists, got %v", err)
	}
	if _, err := env.engine.CreateTenant(ctx, "", "x"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	got, err := env.engine.GetTenant(ctx, "ACME")
	if err != nil || got.ID != info.ID {
		t.Fatalf("GetTenant = %+v, %v", got, err)
	}
	if _, err := env.engine.GetTenant(ctx, "missing"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestRegisterCreatesUnverifiedUserAndSendsVerification(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.createTenant(t, "acme")

	p := env.register(t, "Acme", " Ann@Example.COM ", "Secure1!")

	if p.Email != "ann@example.com" || p.TenantID != tenant.ID || p.TenantSlug != "acme" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.EmailVerified || !p.Enabled {
		t.Fatalf("new user must be enabled and unverified: %+v", p)
	}
	if len(p.Roles) != 1 || p.Roles[0] != "USER" {
		t.Fatalf("roles = %v", p.Roles)
	}

	msg, ok := env.mailer.Last(mail.KindVerification)
	if !ok || msg.To != "ann@example.com" || msg.Name != "Ann" || msg.Token == "" {
		t.Fatalf("verification mail = %+v, %v", msg, ok)
	}

	stored, ok, err := env.repo.FindUserByID(context.Background(), p.ID)
	if err != nil || !ok {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "Secure1!" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterEmailUniquePerTenant(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	env.createTenant(t, "globex")
	ctx := context.Background()

	first := env.register(t, "acme", "a@x.com", "Secure1!")
	_, err := env.engine.Register(ctx, RegisterRequest{TenantSlug: "acme", Email: "A@X.COM", Password: "Other1!"})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}

	second := env.register(t, "globex", "a@x.com", "Secure1!")
	if first.ID == second.ID || first.TenantID == second.TenantID {
		t.Fatal("same email in two tenants must be two users")
	}
}

func TestRegisterRejectsUnknownDisabledAndIncomplete(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	ctx := context.Background()

	if _, err := env.engine.Register(ctx, RegisterRequest{TenantSlug: "nope", Email: "a@x.com", Password: "p"}); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if _, err := env.engine.Register(ctx, RegisterRequest{TenantSlug: "acme", Email: "", Password: "p"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	if _, err := env.engine.SetTenantEnabled(ctx, "acme", false); err != nil {
		t.Fatalf("SetTenantEnabled failed: %v", err)
	}
	if _, err := env.engine.Register(ctx, RegisterRequest{TenantSlug: "acme", Email: "a@x.com", Password: "p"}); !errors.Is(err, ErrTenantDisabled) {
		t.Fatalf("expected ErrTenantDisabled, got %v", err)
	}
	if env.mailer.Count(mail.KindVerification) != 0 {
		t.Fatal("failed registrations must not send mail")
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	env.mailer.Err = errors.New("smtp down")

	p := env.register(t, "acme", "a@x.com", "Secure1!")
	if _, ok, _ := env.repo.FindUserByID(context.Background(), p.ID); !ok {
		t.Fatal("user must exist although mail failed")
	}
}

func TestDisabledTenantBlocksLogin(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	info, err := env.engine.SetTenantEnabled(ctx, "acme", false)
	if err != nil || info.Enabled {
		t.Fatalf("SetTenantEnabled = %+v, %v", info, err)
	}
	_, err = env.engine.Login(ctx, LoginRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	if !errors.Is(err, ErrTenantDisabled) {
		t.Fatalf("expected ErrTenantDisabled, got %v", err)
	}

	if _, err := env.engine.SetTenantEnabled(ctx, "acme", true); err != nil {
		t.Fatalf("re-enable failed: %v", err)
	}
	env.login(t, "acme", "a@x.com", "Secure1!")
}

func TestProfileReadAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	p := env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	got, err := env.engine.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !got.EmailVerified || got.TenantName != "Tenant acme" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	env.clock.Advance(2 * time.Minute)
	updated, err := env.engine.UpdateProfile(ctx, p.ID, " Bea ", "Kim")
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.FirstName != "Bea" || updated.LastName != "Kim" || !updated.UpdatedAt.After(got.UpdatedAt) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := env.engine.UpdateProfile(ctx, p.ID, " ", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := env.engine.GetProfile(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
