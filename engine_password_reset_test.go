package tenantAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
)

func (env *testEnv) requestReset(t *testing.T, slug, email string) string {
	t.Helper()

	if err := env.engine.RequestPasswordReset(context.Background(), slug, email); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	msg, ok := env.mailer.Last(mail.KindPasswordReset)
	if !ok {
		t.Fatal("no password reset email sent")
	}
	return msg.Token
}

func TestPasswordResetReplacesPasswordAndRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()
	before := env.login(t, "acme", "a@x.com", "Secure1!")

	token := env.requestReset(t, "acme", "A@X.com")
	if err := env.engine.ResetPassword(ctx, token, "Brand2!"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, before.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("old refresh token must be revoked, got %v", err)
	}
	_, err := env.engine.Login(ctx, LoginRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must fail, got %v", err)
	}
	env.login(t, "acme", "a@x.com", "Brand2!")
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	token := env.requestReset(t, "acme", "a@x.com")
	if err := env.engine.ResetPassword(ctx, token, "Brand2!"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	err := env.engine.ResetPassword(ctx, token, "Other3!")
	if !errors.Is(err, ErrTokenAlreadyUsed) || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrTokenAlreadyUsed, got %v", err)
	}
	if got := PublicMessage(err); got != "invalid token: token has already been used" {
		t.Fatalf("public message = %q", got)
	}
	env.login(t, "acme", "a@x.com", "Brand2!")
}

func TestPasswordResetConcurrentRedeemHasOneWinner(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *Config) { c.RateLimit.Enabled = false }))
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	token := env.requestReset(t, "acme", "a@x.com")

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		used    int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.engine.ResetPassword(context.Background(), token, "Brand2!")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrTokenAlreadyUsed):
				used++
			}
		}()
	}
	wg.Wait()

	if success != 1 || used != callers-1 {
		t.Fatalf("success=%d used=%d", success, used)
	}
}

func TestPasswordResetExpiredAndUnknownTokens(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	if err := env.engine.ResetPassword(ctx, "nope", "Brand2!"); !errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected plain ErrInvalidToken, got %v", err)
	}

	token := env.requestReset(t, "acme", "a@x.com")
	env.clock.Advance(time.Hour + time.Second)
	if err := env.engine.ResetPassword(ctx, token, "Brand2!"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if err := env.engine.ResetPassword(ctx, token, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRequestPasswordResetKeepsOnlyNewestToken(t *testing.T) {
	env := newTestEnv(t)
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	first := env.requestReset(t, "acme", "a@x.com")
	second := env.requestReset(t, "acme", "a@x.com")
	if first == second {
		t.Fatal("each request must issue a new token")
	}
	if err := env.engine.ResetPassword(ctx, first, "Brand2!"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("superseded token must be invalid, got %v", err)
	}
	if err := env.engine.ResetPassword(ctx, second, "Brand2!"); err != nil {
		t.Fatalf("newest token must work: %v", err)
	}
}

func TestConcurrentResetRequestsLeaveOneLiveToken(t *testing.T) {
	env := newTestEnv(t, withConfig(func(c *Config) { c.RateLimit.Enabled = false }))
	env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := env.engine.RequestPasswordReset(ctx, "acme", "a@x.com"); err != nil {
				t.Errorf("RequestPasswordReset failed: %v", err)
			}
		}()
	}
	wg.Wait()

	live := 0
	for _, m := range env.mailer.Messages() {
		if m.Kind != mail.KindPasswordReset {
			continue
		}
		if _, ok, err := env.repo.FindOneTimeToken(ctx, model.KindPasswordReset, m.Token); err == nil && ok {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("%d reset tokens are live, want 1", live)
	}
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")

	if err := env.engine.RequestPasswordReset(context.Background(), "acme", "ghost@x.com"); err != nil {
		t.Fatalf("unknown email must succeed, got %v", err)
	}
	if err := env.engine.RequestPasswordReset(context.Background(), "nowhere", "ghost@x.com"); err != nil {
		t.Fatalf("unknown tenant must succeed, got %v", err)
	}
	if n := env.mailer.Count(mail.KindPasswordReset); n != 0 {
		t.Fatalf("sent %d reset emails", n)
	}
}

func TestVerifyEmailActivatesLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	env.register(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()

	_, err := env.engine.Login(ctx, LoginRequest{TenantSlug: "acme", Email: "a@x.com", Password: "Secure1!"})
	if !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("expected ErrUserNotVerified, got %v", err)
	}

	msg, _ := env.mailer.Last(mail.KindVerification)
	if err := env.engine.VerifyEmail(ctx, msg.Token); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if welcome, ok := env.mailer.Last(mail.KindWelcome); !ok || welcome.To != "a@x.com" {
		t.Fatalf("welcome mail = %+v, %v", welcome, ok)
	}
	if err := env.engine.VerifyEmail(ctx, msg.Token); !errors.Is(err, ErrTokenAlreadyUsed) {
		t.Fatalf("expected ErrTokenAlreadyUsed, got %v", err)
	}

	env.login(t, "acme", "a@x.com", "Secure1!")
}

func TestVerificationTokenCannotResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	env.register(t, "acme", "a@x.com", "Secure1!")
	msg, _ := env.mailer.Last(mail.KindVerification)

	if err := env.engine.ResetPassword(context.Background(), msg.Token, "Brand2!"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyEmailExpired(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "acme")
	env.register(t, "acme", "a@x.com", "Secure1!")
	msg, _ := env.mailer.Last(mail.KindVerification)

	env.clock.Advance(24*time.Hour + time.Second)
	if err := env.engine.VerifyEmail(context.Background(), msg.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	p := env.activeUser(t, "acme", "a@x.com", "Secure1!")
	ctx := context.Background()
	res := env.login(t, "acme", "a@x.com", "Secure1!")

	if err := env.engine.ChangePassword(ctx, p.ID, "wrong", "Brand2!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.engine.ChangePassword(ctx, p.ID, "Secure1!", "Brand2!"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("sessions must be revoked, got %v", err)
	}
	env.login(t, "acme", "a@x.com", "Brand2!")
}
