package tenantAuth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTenantNotFound is returned when no tenant has the given slug or id.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantDisabled is returned when the tenant exists but is disabled.
	ErrTenantDisabled = errors.New("tenant disabled")
	// ErrTenantAlreadyExists is returned by CreateTenant for a taken slug.
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	// ErrUserNotFound is returned when a user id no longer resolves.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDisabled is returned when the user account is disabled.
	ErrUserDisabled = errors.New("user disabled")
	// ErrUserNotVerified is returned by Login before email verification.
	ErrUserNotVerified = errors.New("email not verified")
	// ErrUserAlreadyExists is returned by Register for a taken email within a tenant.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials is identical for unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers unknown, malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenAlreadyUsed is an ErrInvalidToken with its own message.
	ErrTokenAlreadyUsed = fmt.Errorf("%w: token has already been used", ErrInvalidToken)
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for revoked refresh tokens and blacklisted access tokens.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRateLimitExceeded is matched by every *RateLimitError.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest is returned for missing required input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnavailable wraps store and infrastructure failures.
	ErrUnavailable = errors.New("service unavailable")
	// ErrEngineNotReady is returned when methods are called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a rejected request and when to retry.
type RateLimitError struct {
	Endpoint   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %ds", e.Endpoint, int64(e.RetryAfter/time.Second))
}

// Is makes errors.Is(err, ErrRateLimitExceeded) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// ErrorKind is the stable failure taxonomy a transport maps to status codes.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindTenantNotFound     ErrorKind = "tenant_not_found"
	KindTenantDisabled     ErrorKind = "tenant_disabled"
	KindTenantExists       ErrorKind = "tenant_already_exists"
	KindUserNotFound       ErrorKind = "user_not_found"
	KindUserDisabled       ErrorKind = "user_disabled"
	KindUserNotVerified    ErrorKind = "user_not_verified"
	KindUserExists         ErrorKind = "user_already_exists"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindInvalidToken       ErrorKind = "invalid_token"
	KindTokenExpired       ErrorKind = "token_expired"
	KindTokenRevoked       ErrorKind = "token_revoked"
	KindRateLimited        ErrorKind = "rate_limit_exceeded"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindUnavailable        ErrorKind = "unavailable"
	KindInternal           ErrorKind = "internal"
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrRateLimitExceeded, KindRateLimited},
	{ErrTenantNotFound, KindTenantNotFound},
	{ErrTenantDisabled, KindTenantDisabled},
	{ErrTenantAlreadyExists, KindTenantExists},
	{ErrUserNotFound, KindUserNotFound},
	{ErrUserDisabled, KindUserDisabled},
	{ErrUserNotVerified, KindUserNotVerified},
	{ErrUserAlreadyExists, KindUserExists},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrInvalidToken, KindInvalidToken},
	{ErrTokenExpired, KindTokenExpired},
	{ErrTokenRevoked, KindTokenRevoked},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrUnavailable, KindUnavailable},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, row := range kindTable {
		if errors.Is(err, row.err) {
			return row.kind
		}
	}
	return KindInternal
}

// PublicMessage returns text that is safe to show a caller for kind.
// Internal and unavailable failures never expose detail.
func PublicMessage(err error) string {
	switch kind := KindOf(err); kind {
	case KindNone:
		return ""
	case KindInternal:
		return "an unexpected error occurred"
	case KindUnavailable:
		return "service temporarily unavailable"
	case KindInvalidToken:
		if errors.Is(err, ErrTokenAlreadyUsed) {
			return ErrTokenAlreadyUsed.Error()
		}
		return ErrInvalidToken.Error()
	case KindRateLimited:
		var rl *RateLimitError
		if errors.As(err, &rl) {
			return rl.Error()
		}
		return ErrRateLimitExceeded.Error()
	default:
		for _, row := range kindTable {
			if row.kind == kind {
				return row.err.Error()
			}
		}
		return "an unexpected error occurred"
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
