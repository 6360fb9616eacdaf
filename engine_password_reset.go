package tenantAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tenantAuth/internal/stores"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset emails a fresh reset token after deleting any older
// one, so at most one reset token per user is live. An unknown email
// succeeds silently so the endpoint cannot be used to enumerate accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, tenantSlug, email string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("request_password_reset", started, err) }()

	if err := e.enforceRateLimit(ctx, EndpointPasswordResetRequest, clientIPFromContext(ctx)); err != nil {
		return err
	}

	slug := model.NormalizeSlug(tenantSlug)
	email = model.NormalizeEmail(email)

	u, ok, err := e.repos.Users.FindUserByEmailAndTenantSlug(ctx, email, slug)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		e.emitAudit(ctx, auditEntry{
			eventType:  auditEventPasswordResetRequest,
			tenantSlug: slug,
			email:      email,
			metadata:   map[string]string{"user_found": "false"},
		})
		return nil
	}

	token, _, err := e.oneTime.Replace(ctx, u.ID, model.KindPasswordReset)
	if err != nil {
		return unavailable(err)
	}
	e.sendMail(mail.KindPasswordReset, u.Email, func() error {
		return e.mailer.SendPasswordResetEmail(ctx, u.Email, displayName(u), token)
	})

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventPasswordResetRequest,
		userID:     u.ID,
		tenantID:   u.TenantID,
		tenantSlug: slug,
		email:      email,
	})
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword redeems a reset token, stores the new password hash and
// revokes every refresh token of the user. The token is consumed before
// the user is touched, so two concurrent calls with one token cannot both
// succeed; the loser gets ErrTokenAlreadyUsed.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("reset_password", started, err) }()

	if err := e.enforceRateLimit(ctx, EndpointPasswordReset, clientIPFromContext(ctx)); err != nil {
		return err
	}
	if newPassword == "" {
		return ErrInvalidRequest
	}
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rec, err := e.redeem(ctx, model.KindPasswordReset, token)
	if err != nil {
		e.emitAudit(ctx, auditEntry{eventType: auditEventPasswordResetConfirm, err: err})
		return err
	}

	u, err := e.loadUser(ctx, rec.UserID)
	if err != nil {
		return err
	}
	u.SetPasswordHash(hash, e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return unavailable(err)
	}
	if err := e.revokeAllSessions(ctx, u.ID); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventPasswordResetConfirm,
		userID:     u.ID,
		tenantID:   u.TenantID,
		tenantSlug: u.Tenant.Slug,
	})
	return nil
}

// redeem maps one-time token failures onto the public taxonomy.
func (e *Engine) redeem(ctx context.Context, kind model.TokenKind, token string) (*model.OneTimeToken, error) {
	rec, err := e.oneTime.Redeem(ctx, kind, token)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, stores.ErrTokenNotFound):
		return nil, ErrInvalidToken
	case errors.Is(err, stores.ErrTokenUsed):
		return nil, ErrTokenAlreadyUsed
	case errors.Is(err, stores.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, unavailable(err)
	}
}
