package tenantAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/tenantAuth/internal/rate"
)

// Rate-limited endpoints. The limiter key is "<endpoint>:<client ip>".
const (
	EndpointLogin                = "login"
	EndpointRegister             = "register"
	EndpointPasswordResetRequest = "password_reset_request"
	EndpointPasswordReset        = "password_reset"
)

func (e *Engine) ruleFor(endpoint string) RateLimitRule {
	switch endpoint {
	case EndpointLogin:
		return e.config.RateLimit.Login
	case EndpointRegister:
		return e.config.RateLimit.Register
	case EndpointPasswordResetRequest:
		return e.config.RateLimit.PasswordResetRequest
	case EndpointPasswordReset:
		return e.config.RateLimit.PasswordReset
	}
	return RateLimitRule{}
}

// enforceRateLimit consumes one attempt for endpoint from ip. Requests
// without a known client IP are not limited. A store failure rejects the
// request.
func (e *Engine) enforceRateLimit(ctx context.Context, endpoint, ip string) error {
	if !e.config.RateLimit.Enabled || ip == "" {
		return nil
	}
	rule := e.ruleFor(endpoint).rule()
	if !rule.Enabled() {
		return nil
	}

	retryAfter, err := e.limiter.Enforce(ctx, rateKey(endpoint, ip), rule)
	if errors.Is(err, rate.ErrRateLimited) {
		e.metrics.RateLimited(endpoint)
		e.tally.RateLimited(endpoint)
		limited := &RateLimitError{Endpoint: endpoint, RetryAfter: retryAfter}
		e.emitAudit(ctx, auditEntry{
			eventType: auditEventRateLimitTriggered,
			ip:        ip,
			err:       limited,
			metadata:  map[string]string{"endpoint": endpoint},
		})
		return limited
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// ResetRateLimit clears the counter for endpoint and ip.
func (e *Engine) ResetRateLimit(ctx context.Context, endpoint, ip string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.limiter.Reset(ctx, rateKey(endpoint, ip)); err != nil {
		return unavailable(err)
	}
	return nil
}

func rateKey(endpoint, ip string) string {
	return endpoint + ":" + ip
}
