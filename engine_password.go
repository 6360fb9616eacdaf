package tenantAuth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword verifies currentPassword, stores the hash of newPassword
// and revokes every refresh token of the user, forcing a new login on all
// devices.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("change_password", started, err) }()
	defer func() {
		entry := auditEntry{eventType: auditEventPasswordChangeSuccess, userID: userID, err: err}
		if err != nil {
			entry.eventType = auditEventPasswordChangeFailure
		}
		e.emitAudit(ctx, entry)
	}()

	if newPassword == "" {
		return ErrInvalidRequest
	}
	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !e.checkPassword(u, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	u.SetPasswordHash(hash, e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return unavailable(err)
	}
	return e.revokeAllSessions(ctx, userID)
}

func (e *Engine) revokeAllSessions(ctx context.Context, userID string) error {
	n, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return unavailable(err)
	}
	e.logger.Debug("refresh tokens revoked", zap.String("user_id", userID), zap.Int("count", n))
	return nil
}
