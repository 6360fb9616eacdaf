package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/tenantAuth/internal"
	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// DefaultTTL is the fixed refresh-token lifetime from issuance.
const DefaultTTL = 30 * 24 * time.Hour

// Config tunes the store.
type Config struct {
	TTL        time.Duration
	TokenBytes int
	Now        func() time.Time
}

// Store issues, looks up and revokes refresh tokens through a
// store.RefreshTokens repository.
type Store struct {
	repo       store.RefreshTokens
	ttl        time.Duration
	tokenBytes int
	now        func() time.Time
}

// NewStore applies defaults for zero Config fields.
func NewStore(repo store.RefreshTokens, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TokenBytes < internal.OpaqueTokenBytes {
		cfg.TokenBytes = internal.OpaqueTokenBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		repo:       repo,
		ttl:        cfg.TTL,
		tokenBytes: cfg.TokenBytes,
		now:        cfg.Now,
	}
}

// TTL returns the refresh-token lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Issue creates a token for userID. The plaintext is returned here and
// nowhere else; the record only carries its hash.
func (s *Store) Issue(ctx context.Context, userID string) (string, *model.RefreshToken, error) {
	if userID == "" {
		return "", nil, errors.New("session: user id is required")
	}

	plaintext, err := internal.NewOpaqueToken(s.tokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("session: generate token: %w", err)
	}

	now := s.now().UTC()
	record := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: internal.HashToken(plaintext),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.CreateRefreshToken(ctx, record); err != nil {
		return "", nil, fmt.Errorf("session: persist token: %w", err)
	}
	return plaintext, record, nil
}

// Find hashes plaintext and looks the record up.
func (s *Store) Find(ctx context.Context, plaintext string) (*model.RefreshToken, bool, error) {
	if plaintext == "" {
		return nil, false, nil
	}
	return s.FindByHash(ctx, internal.HashToken(plaintext))
}

func (s *Store) FindByHash(ctx context.Context, hash string) (*model.RefreshToken, bool, error) {
	rec, ok, err := s.repo.FindRefreshTokenByHash(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("session: find token: %w", err)
	}
	return rec, ok, nil
}

// Revoke revokes the token whose plaintext is given.
func (s *Store) Revoke(ctx context.Context, plaintext string) (bool, error) {
	if plaintext == "" {
		return false, nil
	}
	return s.RevokeByHash(ctx, internal.HashToken(plaintext))
}

func (s *Store) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	ok, err := s.repo.RevokeRefreshToken(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("session: revoke token: %w", err)
	}
	return ok, nil
}

// RevokeAll revokes every token owned by userID and returns how many were
// still active.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.RevokeAllRefreshTokens(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: revoke all: %w", err)
	}
	return n, nil
}

// PurgeExpired deletes expired records. Expired tokens are already rejected
// on lookup, so this only reclaims space.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("session: purge expired: %w", err)
	}
	return n, nil
}
