package tenantAuth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/tenantAuth/model"
)

// SetUserEnabled enables or disables a user. Disabling revokes every
// refresh session of the user; access tokens already issued stay valid
// until they expire.
func (e *Engine) SetUserEnabled(ctx context.Context, userID string, enabled bool) (profile *UserProfile, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("set_user_enabled", started, err) }()

	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Enabled == enabled {
		return profileOf(u), nil
	}

	u.SetEnabled(enabled, e.now())
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return nil, unavailable(err)
	}

	revoked := 0
	if !enabled {
		if revoked, err = e.sessions.RevokeAll(ctx, u.ID); err != nil {
			return nil, unavailable(err)
		}
	}

	e.emitAudit(ctx, auditEntry{
		eventType: auditEventAccountStatusChange,
		userID:    u.ID,
		tenantID:  u.TenantID,
		metadata: map[string]string{
			"enabled": strconv.FormatBool(enabled),
			"revoked": strconv.Itoa(revoked),
		},
	})
	return profileOf(u), nil
}

// GrantRole adds role to the user. Tokens issued before the change keep
// their old role claims.
func (e *Engine) GrantRole(ctx context.Context, userID string, role model.Role) (*UserProfile, error) {
	return e.changeRole(ctx, userID, role, true)
}

// RevokeRole removes role from the user. A user always keeps at least one
// role; removing the last one fails with ErrInvalidRequest.
func (e *Engine) RevokeRole(ctx context.Context, userID string, role model.Role) (*UserProfile, error) {
	return e.changeRole(ctx, userID, role, false)
}

func (e *Engine) changeRole(ctx context.Context, userID string, role model.Role, grant bool) (profile *UserProfile, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("change_role", started, err) }()

	if role == "" {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidRequest)
	}
	u, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if grant {
		if u.HasRole(role) {
			return profileOf(u), nil
		}
		u.AddRole(role, e.now())
	} else {
		if !u.HasRole(role) {
			return profileOf(u), nil
		}
		if err := u.RemoveRole(role, e.now()); err != nil {
			if errors.Is(err, model.ErrLastRole) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			return nil, err
		}
	}
	if err := e.repos.Users.UpdateUser(ctx, u); err != nil {
		return nil, unavailable(err)
	}

	action := "revoke"
	if grant {
		action = "grant"
	}
	e.emitAudit(ctx, auditEntry{
		eventType: auditEventRoleChange,
		userID:    u.ID,
		tenantID:  u.TenantID,
		metadata:  map[string]string{"action": action, "role": string(role)},
	})
	return profileOf(u), nil
}
