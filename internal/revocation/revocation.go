// Package revocation keeps the access-token blacklist: identifiers of
// still-unexpired access tokens that must be rejected after logout.
//
// Entries expire on their own once the token would have expired anyway, so
// the list never needs an explicit sweep.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tenantAuth/kv"
)

const keyPrefix = "bl:"

// ErrStoreUnavailable wraps backing store failures.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// List is the blacklist over a kv.Store.
type List struct {
	store kv.Store
}

func New(store kv.Store) *List {
	return &List{store: store}
}

// Blacklist marks tokenID invalid for ttl. A non-positive ttl is a no-op:
// the token has already expired naturally.
func (l *List) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 || tokenID == "" {
		return nil
	}
	if err := l.store.Set(ctx, keyPrefix+tokenID, "1", ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsBlacklisted reports whether tokenID has an unexpired entry.
func (l *List) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	ok, err := l.store.Exists(ctx, keyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}
