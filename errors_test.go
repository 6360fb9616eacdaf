package tenantAuth_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want tenantAuth.ErrorKind
	}{
		{"nil", nil, tenantAuth.KindNone},
		{"wrapped credentials", fmt.Errorf("login: %w", tenantAuth.ErrInvalidCredentials), tenantAuth.KindInvalidCredentials},
		{"already used is invalid token", tenantAuth.ErrTokenAlreadyUsed, tenantAuth.KindInvalidToken},
		{"expired", tenantAuth.ErrTokenExpired, tenantAuth.KindTokenExpired},
		{"revoked", tenantAuth.ErrTokenRevoked, tenantAuth.KindTokenRevoked},
		{"rate limit", &tenantAuth.RateLimitError{Endpoint: "login", RetryAfter: time.Minute}, tenantAuth.KindRateLimited},
		{"tenant disabled", tenantAuth.ErrTenantDisabled, tenantAuth.KindTenantDisabled},
		{"unavailable", fmt.Errorf("%w: dial tcp", tenantAuth.ErrUnavailable), tenantAuth.KindUnavailable},
		{"unknown", errors.New("boom"), tenantAuth.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tenantAuth.KindOf(tt.err))
		})
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "", tenantAuth.PublicMessage(nil))
	assert.Equal(t, "an unexpected error occurred", tenantAuth.PublicMessage(errors.New("pq: relation users does not exist")))
	assert.Equal(t, "service temporarily unavailable",
		tenantAuth.PublicMessage(fmt.Errorf("%w: redis: connection refused", tenantAuth.ErrUnavailable)))
	assert.Equal(t, "invalid credentials", tenantAuth.PublicMessage(fmt.Errorf("wrapped: %w", tenantAuth.ErrInvalidCredentials)))
	assert.Equal(t, "invalid token", tenantAuth.PublicMessage(tenantAuth.ErrInvalidToken))
	assert.Equal(t, "invalid token: token has already been used", tenantAuth.PublicMessage(tenantAuth.ErrTokenAlreadyUsed))
}

func TestRateLimitError(t *testing.T) {
	err := error(&tenantAuth.RateLimitError{Endpoint: "login", RetryAfter: 90 * time.Second})

	assert.ErrorIs(t, err, tenantAuth.ErrRateLimitExceeded)
	assert.Equal(t, "rate limit exceeded for login, retry after 90s", err.Error())
	assert.Equal(t, err.Error(), tenantAuth.PublicMessage(err))

	var rl *tenantAuth.RateLimitError
	if assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &rl) {
		assert.Equal(t, 90*time.Second, rl.RetryAfter)
	}
}
