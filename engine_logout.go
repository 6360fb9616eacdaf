package tenantAuth

import (
	"context"
	"strconv"

	"github.com/MrEthical07/tenantAuth/internal"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout blacklists accessToken for exactly its remaining lifetime and
// revokes refreshToken when it belongs to userID. Either token may be
// empty; an unknown or foreign refresh token is ignored. Other sessions
// of the same user stay valid.
func (e *Engine) Logout(ctx context.Context, userID, accessToken, refreshToken string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("logout", started, err) }()

	if err := e.blacklistAccessToken(ctx, accessToken); err != nil {
		return err
	}

	revoked := false
	if refreshToken != "" {
		hash := internal.HashToken(refreshToken)
		rec, ok, err := e.sessions.FindByHash(ctx, hash)
		if err != nil {
			return unavailable(err)
		}
		if ok && rec.UserID == userID && !rec.Revoked {
			if _, err := e.sessions.RevokeByHash(ctx, hash); err != nil {
				return unavailable(err)
			}
			revoked = true
		}
	}

	e.emitAudit(ctx, auditEntry{
		eventType: auditEventLogoutSession,
		userID:    userID,
		metadata:  map[string]string{"refresh_revoked": strconv.FormatBool(revoked)},
	})
	return nil
}

// LogoutAllDevices describes the logoutalldevices operation and its observable behavior.
//
// LogoutAllDevices blacklists accessToken (when present) and revokes every
// refresh token owned by userID.
func (e *Engine) LogoutAllDevices(ctx context.Context, userID, accessToken string) (err error) {
	if e == nil {
		return ErrEngineNotReady
	}
	started := e.now()
	defer func() { e.observe("logout_all", started, err) }()

	if err := e.blacklistAccessToken(ctx, accessToken); err != nil {
		return err
	}
	n, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return unavailable(err)
	}

	e.emitAudit(ctx, auditEntry{
		eventType: auditEventLogoutAll,
		userID:    userID,
		metadata:  map[string]string{"revoked": strconv.Itoa(n)},
	})
	return nil
}

// blacklistAccessToken is a no-op for empty, invalid or expired tokens.
func (e *Engine) blacklistAccessToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	claims, err := e.tokens.Verify(accessToken)
	if err != nil {
		return nil
	}
	ttl := e.tokens.RemainingTTL(accessToken)
	if err := e.blacklist.Blacklist(ctx, claims.TokenID(), ttl); err != nil {
		return unavailable(err)
	}
	return nil
}
