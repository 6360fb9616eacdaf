package tenantAuth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/tenantAuth/jwt"
)

// Introspect describes the introspect operation and its observable behavior.
//
// Introspect never fails. A token is active only when its signature and
// expiry check out, it is not blacklisted, and every claim parses.
// Anything else, including a blacklist store failure, yields an inactive
// result with no identity fields set.
func (e *Engine) Introspect(ctx context.Context, accessToken string) *Introspection {
	if e == nil {
		return &Introspection{}
	}
	p, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return &Introspection{}
	}
	out := &Introspection{
		Active:     true,
		UserID:     p.UserID,
		Email:      p.Email,
		TenantID:   p.TenantID,
		TenantSlug: p.TenantSlug,
		Roles:      append([]string(nil), p.Roles...),
		TokenID:    p.TokenID,
		IssuedAt:   p.IssuedAt,
		ExpiresAt:  p.ExpiresAt,
	}
	return out
}

// Authenticate verifies an access token and returns its principal. It
// fails with ErrTokenExpired, ErrTokenRevoked for blacklisted tokens, or
// ErrInvalidToken for everything else that is wrong with the token.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := e.tokens.Verify(accessToken)
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.TenantSlug == "" || len(claims.Roles) == 0 {
		return nil, ErrInvalidToken
	}

	blacklisted, err := e.blacklist.IsBlacklisted(ctx, claims.TokenID())
	if err != nil {
		return nil, unavailable(err)
	}
	if blacklisted {
		return nil, ErrTokenRevoked
	}

	p := &Principal{
		UserID:     claims.Subject,
		Email:      claims.Email,
		TenantID:   claims.TenantID,
		TenantSlug: claims.TenantSlug,
		Roles:      append([]string(nil), claims.Roles...),
		TokenID:    claims.TokenID(),
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}
