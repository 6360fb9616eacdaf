package tenantAuth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/model"
)

// PurgeExpiredSessions deletes refresh tokens past their expiry. Expired
// tokens are already rejected on use; this only reclaims space.
func (e *Engine) PurgeExpiredSessions(ctx context.Context) (n int, err error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("purge_sessions", started, err) }()

	n, err = e.sessions.PurgeExpired(ctx)
	if err != nil {
		return 0, unavailable(err)
	}
	if n > 0 {
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventSessionsPurged,
			metadata:  map[string]string{"count": strconv.Itoa(n)},
		})
	}
	return n, nil
}

// RunHousekeeping purges expired sessions every interval until ctx is
// done. Individual purge failures are logged and do not stop the loop.
func (e *Engine) RunHousekeeping(ctx context.Context, interval time.Duration) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if interval <= 0 {
		return errors.New("housekeeping interval must be > 0")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := e.PurgeExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				e.logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			e.logger.Info("expired sessions purged", zap.Int("count", n))
		}
	}
}

// FailedLoginsSince counts failed logins for email in tenantSlug since the given time.
func (e *Engine) FailedLoginsSince(ctx context.Context, email, tenantSlug string, since time.Time) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.ledger.CountFailuresByEmailSince(ctx, model.NormalizeEmail(email), model.NormalizeSlug(tenantSlug), since)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// FailedLoginsFromIPSince counts failed logins from ip since the given time.
func (e *Engine) FailedLoginsFromIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.ledger.CountFailuresByIPSince(ctx, ip, since)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
