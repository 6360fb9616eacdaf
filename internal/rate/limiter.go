package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/tenantAuth/kv"
)

const keyPrefix = "rl:"

// Rule caps attempts per fixed window.
type Rule struct {
	MaxAttempts int
	Window      time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.MaxAttempts > 0 && r.Window > 0
}

// Limiter counts attempts per key in fixed windows.
type Limiter struct {
	store kv.Store
}

// New creates a [Limiter] over store.
func New(store kv.Store) *Limiter {
	return &Limiter{store: store}
}

// Allow increments the counter for key and reports whether the post-increment
// count is within maxAttempts. The first increment in a window sets its
// expiry to window.
func (l *Limiter) Allow(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	count, err := l.store.IncrementWindow(ctx, keyPrefix+key, window)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count <= int64(maxAttempts), nil
}

// Enforce applies rule to key. When the budget is spent it returns
// ErrRateLimited together with the time left in the window.
func (l *Limiter) Enforce(ctx context.Context, key string, rule Rule) (time.Duration, error) {
	if !rule.Enabled() {
		return 0, nil
	}
	ok, err := l.Allow(ctx, key, rule.MaxAttempts, rule.Window)
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}

	retryAfter, err := l.TimeToReset(ctx, key)
	if err != nil {
		return 0, err
	}
	return retryAfter, ErrRateLimited
}

// TimeToReset returns the time remaining in key's current window, rounded up
// to whole seconds, or 0 when unknown.
func (l *Limiter) TimeToReset(ctx context.Context, key string) (time.Duration, error) {
	ttl, ok, err := l.store.TTL(ctx, keyPrefix+key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok || ttl <= 0 {
		return 0, nil
	}
	return (ttl + time.Second - 1) / time.Second * time.Second, nil
}

// Reset clears key immediately.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for key, 0 when absent.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	v, ok, err := l.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}
