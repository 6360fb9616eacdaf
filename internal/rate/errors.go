package rate

import "errors"

var (
	// ErrRateLimited is returned by Enforce when the window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backing store failures.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
