package tenantAuth

import (
	"context"

	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
)

// VerifyEmail describes the verifyemail operation and its observable behavior.
//
// VerifyEmail redeems a verification token, marks the owner's email as
// verified and sends a welcome email. The token checks and failure kinds
// are the same as ResetPassword.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("verify_email", started, err) }()

	rec, err := e.redeem(ctx, model.KindEmailVerification, token)
	if err != nil {
		e.emitAudit(ctx, auditEntry{eventType: auditEventEmailVerificationConfirm, err: err})
		return err
	}

	u, err := e.loadUser(ctx, rec.UserID)
	if err != nil {
		return err
	}
	u.VerifyEmail(e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return unavailable(err)
	}

	e.sendMail(mail.KindWelcome, u.Email, func() error {
		return e.mailer.SendWelcomeEmail(ctx, u.Email, displayName(u))
	})
	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventEmailVerificationConfirm,
		userID:     u.ID,
		tenantID:   u.TenantID,
		tenantSlug: u.Tenant.Slug,
		email:      u.Email,
	})
	return nil
}
