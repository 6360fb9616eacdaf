package stores

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// LoginLedger appends login attempts and answers throttling queries.
type LoginLedger struct {
	repo   store.LoginAttempts
	logger *zap.Logger
	now    func() time.Time
}

func NewLoginLedger(repo store.LoginAttempts, logger *zap.Logger, now func() time.Time) *LoginLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &LoginLedger{repo: repo, logger: logger, now: now}
}

// RecordSuccess appends a successful attempt. Write failures are logged.
func (l *LoginLedger) RecordSuccess(ctx context.Context, userID, email, tenantSlug, ip, userAgent string) {
	l.append(ctx, userID, email, tenantSlug, ip, userAgent, true)
}

// RecordFailure appends a failed attempt. Write failures are logged.
func (l *LoginLedger) RecordFailure(ctx context.Context, email, tenantSlug, ip, userAgent string) {
	l.append(ctx, "", email, tenantSlug, ip, userAgent, false)
}

func (l *LoginLedger) append(ctx context.Context, userID, email, tenantSlug, ip, userAgent string, success bool) {
	attempt := &model.LoginAttempt{
		ID:         uuid.NewString(),
		UserID:     userID,
		Email:      email,
		TenantSlug: tenantSlug,
		IP:         ip,
		UserAgent:  userAgent,
		Success:    success,
		CreatedAt:  l.now().UTC(),
	}
	if err := l.repo.AppendLoginAttempt(ctx, attempt); err != nil {
		l.logger.Warn("failed to record login attempt",
			zap.Bool("success", success),
			zap.String("tenant_slug", tenantSlug),
			zap.String("ip", ip),
			zap.Error(err),
		)
	}
}

func (l *LoginLedger) CountFailuresByEmailSince(ctx context.Context, email, tenantSlug string, since time.Time) (int, error) {
	return l.repo.CountFailuresByEmailSince(ctx, email, tenantSlug, since)
}

func (l *LoginLedger) CountFailuresByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	return l.repo.CountFailuresByIPSince(ctx, ip, since)
}

// SeenFromIP reports whether userID logged in successfully from ip since.
func (l *LoginLedger) SeenFromIP(ctx context.Context, userID, ip string, since time.Time) (bool, error) {
	return l.repo.HasSuccessFromIPSince(ctx, userID, ip, since)
}
