package tenantAuth

import (
	"context"
	"strings"
)

// GetProfile returns the sanitized profile of userID.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(u), nil
}

// UpdateProfile replaces the user's first and last name.
func (e *Engine) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (profile *UserProfile, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("update_profile", started, err) }()

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return nil, ErrInvalidRequest
	}

	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.UpdateProfile(firstName, lastName, e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return nil, unavailable(err)
	}

	e.emitAudit(ctx, auditEntry{eventType: auditEventProfileUpdate, userID: u.ID, tenantID: u.TenantID})
	return profileOf(u), nil
}
