package tenantAuth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tenantAuth/internal/audit"
	"github.com/MrEthical07/tenantAuth/internal/metrics"
	"github.com/MrEthical07/tenantAuth/internal/rate"
	"github.com/MrEthical07/tenantAuth/internal/revocation"
	"github.com/MrEthical07/tenantAuth/internal/stores"
	"github.com/MrEthical07/tenantAuth/jwt"
	"github.com/MrEthical07/tenantAuth/kv"
	"github.com/MrEthical07/tenantAuth/mail"
	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/password"
	"github.com/MrEthical07/tenantAuth/session"
	"github.com/MrEthical07/tenantAuth/store"
)

// Engine defines a public type used by tenantAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	logger    *zap.Logger
	now       func() time.Time
	repos     store.Repositories
	tokens    *jwt.Manager
	hasher    password.Hasher
	dummyHash string
	sessions  *session.Store
	oneTime   *stores.OneTimeTokens
	ledger    *stores.LoginLedger
	limiter   *rate.Limiter
	blacklist *revocation.List
	mailer    mail.Dispatcher
	asyncMail *mail.Async
	audit     *audit.Dispatcher
	metrics   *metrics.Recorder
	tally     *metrics.Tally
	ownedKV   *kv.Memory
}

// Close describes the close operation and its observable behavior.
//
// Close flushes queued emails and audit events and stops background
// goroutines owned by the Engine. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.asyncMail != nil {
		e.asyncMail.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedKV != nil {
		e.ownedKV.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MailDropped returns the number of notifications discarded because the
// async mail queue was full.
func (e *Engine) MailDropped() uint64 {
	if e == nil || e.asyncMail == nil {
		return 0
	}
	return e.asyncMail.Dropped()
}

// MetricsSnapshot holds the process-local operation counts of an Engine.
type MetricsSnapshot = metrics.Snapshot

// OperationKey names one operation/outcome pair in a MetricsSnapshot.
type OperationKey = metrics.OperationKey

// MetricsSnapshot returns the counts recorded since Build. It is kept
// whether or not a Prometheus registerer was supplied.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return metrics.NewTally().Snapshot()
	}
	return e.tally.Snapshot()
}

// AccessTTL returns the configured access-token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh-session lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.Session.RefreshTTL
}

func (e *Engine) expiresIn() int64 {
	return int64(e.config.JWT.AccessTTL / time.Second)
}

func (e *Engine) issueAccessToken(u *model.User) (string, error) {
	var slug string
	if u.Tenant != nil {
		slug = u.Tenant.Slug
	}
	return e.tokens.Issue(u.ID, u.TenantID, slug, u.Email, u.RoleNames(), 0)
}

// loadUser resolves id to a user with its tenant populated.
func (e *Engine) loadUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, ErrUserNotFound
	}
	u, ok, err := e.repos.Users.FindUserByID(ctx, id)
	if err != nil {
		return nil, unavailable(err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Tenant == nil {
		t, ok, err := e.repos.Tenants.FindTenantByID(ctx, u.TenantID)
		if err != nil {
			return nil, unavailable(err)
		}
		if !ok {
			return nil, ErrTenantNotFound
		}
		u.Tenant = t
	}
	return u, nil
}

// sendMail runs send and logs its failure. Mail is best-effort.
func (e *Engine) sendMail(kind mail.Kind, to string, send func() error) {
	if err := send(); err != nil {
		e.logger.Warn("email dispatch failed",
			zap.String("kind", string(kind)),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}

func displayName(u *model.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}
