// Package kv is the TTL key-value abstraction behind the rate limiter and
// the access-token revocation list.
//
// Two backends are provided and behave identically: NewMemory keeps state
// in the process, NewRedis shares it through Redis. Pick one at startup
// and pass it explicitly to the components that need it.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every backend failure. Callers treat it as a
// generic store outage, never as a domain outcome.
var ErrUnavailable = errors.New("kv: store unavailable")

// Store is a string key-value store with per-key expiry.
type Store interface {
	// Set stores value under key. ttl <= 0 stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value and whether the key is present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Increment atomically adds one to the integer at key, creating it at
	// 1 without expiry when absent.
	Increment(ctx context.Context, key string) (int64, error)
	// IncrementWindow atomically increments key and, when the increment
	// created the key, sets its expiry to window. It is the fixed-window
	// counter primitive: concurrent callers never lose increments and the
	// window is never extended by later hits.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	// Expire sets the expiry of an existing key. It reports false when the
	// key does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining lifetime. ok is false when the key is
	// absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}
