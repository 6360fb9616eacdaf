package tenantAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// Register describes the register operation and its observable behavior.
//
// Register creates an unverified USER in the tenant named by req.TenantSlug
// and emails a verification token. A failed email never undoes the
// registration. It fails with ErrTenantNotFound, ErrTenantDisabled or
// ErrUserAlreadyExists, and with a *RateLimitError when the client IP in
// ctx exceeded the register budget.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (profile *UserProfile, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("register", started, err) }()

	if err := e.enforceRateLimit(ctx, EndpointRegister, clientIPFromContext(ctx)); err != nil {
		return nil, err
	}

	slug := model.NormalizeSlug(req.TenantSlug)
	email := model.NormalizeEmail(req.Email)
	if slug == "" || email == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}

	defer func() {
		if err != nil {
			e.emitAudit(ctx, auditEntry{eventType: auditEventRegisterFailure, tenantSlug: slug, email: email, err: err})
		}
	}()

	tenant, err := e.findTenant(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !tenant.Enabled {
		return nil, ErrTenantDisabled
	}

	exists, err := e.repos.Users.UserExistsByEmailAndTenantID(ctx, email, tenant.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	u := model.NewUser(tenant, email, hash, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), e.now())
	if err := e.repos.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, unavailable(err)
	}

	token, _, err := e.oneTime.Issue(ctx, u.ID, model.KindEmailVerification)
	if err != nil {
		e.logger.Error("verification token not issued",
			zap.String("user_id", u.ID),
			zap.String("tenant_slug", slug),
			zap.Error(err),
		)
	} else {
		e.sendMail(mail.KindVerification, u.Email, func() error {
			return e.mailer.SendVerificationEmail(ctx, u.Email, displayName(u), token)
		})
	}

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventRegisterSuccess,
		userID:     u.ID,
		tenantID:   tenant.ID,
		tenantSlug: tenant.Slug,
		email:      u.Email,
	})
	return profileOf(u), nil
}
