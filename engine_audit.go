package tenantAuth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	auditEventTenantCreated            = "tenant_created"
	auditEventTenantStatusChange       = "tenant_status_change"
	auditEventRegisterSuccess          = "register_success"
	auditEventRegisterFailure          = "register_failure"
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshFailure           = "refresh_failure"
	auditEventLogoutSession            = "logout_session"
	auditEventLogoutAll                = "logout_all"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventPasswordResetRequest     = "password_reset_request"
	auditEventPasswordResetConfirm     = "password_reset_confirm"
	auditEventEmailVerificationConfirm = "email_verification_confirm"
	auditEventProfileUpdate            = "profile_update"
	auditEventAccountStatusChange      = "account_status_change"
	auditEventRoleChange               = "role_change"
	auditEventRateLimitTriggered       = "rate_limit_triggered"
	auditEventSessionsPurged           = "sessions_purged"
)

type auditEntry struct {
	eventType  string
	userID     string
	tenantID   string
	tenantSlug string
	email      string
	ip         string
	userAgent  string
	err        error
	metadata   map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, entry auditEntry) {
	if e == nil || e.audit == nil {
		return
	}
	if entry.ip == "" {
		entry.ip = clientIPFromContext(ctx)
	}
	if entry.userAgent == "" {
		entry.userAgent = userAgentFromContext(ctx)
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  entry.eventType,
		UserID:     entry.userID,
		TenantID:   entry.tenantID,
		TenantSlug: entry.tenantSlug,
		Email:      entry.email,
		IP:         entry.ip,
		UserAgent:  entry.userAgent,
		Success:    entry.err == nil,
		Metadata:   entry.metadata,
	}
	if entry.err != nil {
		event.Error = string(KindOf(entry.err))
	}

	e.audit.Emit(ctx, event)
}

// observe counts the outcome of operation and logs unexpected failures.
func (e *Engine) observe(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	e.metrics.Operation(operation, outcome)
	e.tally.Operation(operation, outcome)

	switch KindOf(err) {
	case KindInternal, KindUnavailable:
		e.logger.Error("operation failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", e.now().Sub(started)),
			zap.Error(err),
		)
	}
}
