package tenantAuth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/password"
)

// Login describes the login operation and its observable behavior.
//
// Login checks, in order: the per-IP login budget, the (email, tenant)
// lookup, the password, tenant state, user state and email verification.
// Unknown users and wrong passwords both fail with ErrInvalidCredentials
// after the same amount of hashing work, and both are recorded as failed
// attempts before the error is returned. On success it returns a signed
// access token, a new refresh token and the user's profile.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (result *AuthResult, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("login", started, err) }()

	ip := req.IP
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}
	ua := req.UserAgent
	if ua == "" {
		ua = userAgentFromContext(ctx)
	}

	if err := e.enforceRateLimit(ctx, EndpointLogin, ip); err != nil {
		return nil, err
	}

	slug := model.NormalizeSlug(req.TenantSlug)
	email := model.NormalizeEmail(req.Email)

	fail := func(userID string, err error) (*AuthResult, error) {
		e.emitAudit(ctx, auditEntry{
			eventType:  auditEventLoginFailure,
			userID:     userID,
			tenantSlug: slug,
			email:      email,
			ip:         ip,
			userAgent:  ua,
			err:        err,
		})
		return nil, err
	}

	u, ok, err := e.repos.Users.FindUserByEmailAndTenantSlug(ctx, email, slug)
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		// Burn the same hashing cost as a real comparison.
		_, _ = e.hasher.Verify(req.Password, e.dummyHash)
		e.ledger.RecordFailure(ctx, email, slug, ip, ua)
		return fail("", ErrInvalidCredentials)
	}

	if !e.checkPassword(u, req.Password) {
		e.ledger.RecordFailure(ctx, email, slug, ip, ua)
		return fail(u.ID, ErrInvalidCredentials)
	}

	if u.Tenant == nil || !u.Tenant.Enabled {
		return fail(u.ID, ErrTenantDisabled)
	}
	if !u.Enabled {
		return fail(u.ID, ErrUserDisabled)
	}
	if !u.EmailVerified {
		return fail(u.ID, ErrUserNotVerified)
	}

	newLocation := e.isNewLocation(ctx, u, ip)
	e.ledger.RecordSuccess(ctx, u.ID, email, slug, ip, ua)
	e.upgradePasswordHash(ctx, u, req.Password)

	access, err := e.issueAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, _, err := e.sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, unavailable(err)
	}

	if newLocation {
		e.sendMail(mail.KindSecurityAlert, u.Email, func() error {
			return e.mailer.SendSecurityAlertEmail(ctx, u.Email, displayName(u), ip, ua)
		})
	}

	e.emitAudit(ctx, auditEntry{
		eventType:  auditEventLoginSuccess,
		userID:     u.ID,
		tenantID:   u.TenantID,
		tenantSlug: slug,
		email:      email,
		ip:         ip,
		userAgent:  ua,
	})

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenType,
		ExpiresIn:    e.expiresIn(),
		User:         profileOf(u),
	}, nil
}

// checkPassword fails closed on malformed stored hashes.
func (e *Engine) checkPassword(u *model.User, raw string) bool {
	ok, err := e.hasher.Verify(raw, u.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrMalformedHash) {
			e.logger.Warn("stored password hash is malformed", zap.String("user_id", u.ID))
		}
		return false
	}
	return ok
}

// upgradePasswordHash rewrites a hash made with an older algorithm or
// weaker parameters. Failures are logged only.
func (e *Engine) upgradePasswordHash(ctx context.Context, u *model.User, raw string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.hasher.NeedsUpgrade(u.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(raw)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	u.SetPasswordHash(hash, e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		e.logger.Warn("password rehash not saved", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// isNewLocation reports whether a security alert is due for a login from
// ip. It must run before the current success is recorded.
func (e *Engine) isNewLocation(ctx context.Context, u *model.User, ip string) bool {
	if !e.config.Login.NotifyNewLocation || ip == "" {
		return false
	}
	seen, err := e.ledger.SeenFromIP(ctx, u.ID, ip, e.now().Add(-e.config.Login.AlertLookback))
	if err != nil {
		e.logger.Warn("login history lookup failed", zap.String("user_id", u.ID), zap.Error(err))
		return false
	}
	return !seen
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated and stays valid until it expires or is
// revoked. Revoked wins over expired when both apply.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (result *TokenResult, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("refresh", started, err) }()

	var userID string
	defer func() {
		entry := auditEntry{eventType: auditEventRefreshSuccess, userID: userID, err: err}
		if err != nil {
			entry.eventType = auditEventRefreshFailure
		}
		e.emitAudit(ctx, entry)
	}()

	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	rec, ok, err := e.sessions.Find(ctx, refreshToken)
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	userID = rec.UserID
	if rec.Revoked {
		return nil, ErrTokenRevoked
	}
	if rec.IsExpired(e.now()) {
		return nil, ErrTokenExpired
	}

	u, err := e.loadUser(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if !u.Tenant.Enabled {
		return nil, ErrTenantDisabled
	}
	if !u.Enabled {
		return nil, ErrUserDisabled
	}

	access, err := e.issueAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken: access,
		TokenType:   TokenType,
		ExpiresIn:   e.expiresIn(),
	}, nil
}
