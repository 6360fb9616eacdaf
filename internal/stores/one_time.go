package stores

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

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = time.Hour
)

var (
	ErrTokenNotFound = errors.New("one-time token not found")
	ErrTokenUsed     = errors.New("one-time token already used")
	ErrTokenExpired  = errors.New("one-time token expired")
)

// OneTimeConfig sets per-kind lifetimes.
type OneTimeConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	TokenBytes      int
	Now             func() time.Time
}

// OneTimeTokens issues and redeems email verification and password reset
// tokens.
type OneTimeTokens struct {
	repo store.OneTimeTokens
	cfg  OneTimeConfig
}

func NewOneTimeTokens(repo store.OneTimeTokens, cfg OneTimeConfig) *OneTimeTokens {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.TokenBytes < internal.OpaqueTokenBytes {
		cfg.TokenBytes = internal.OpaqueTokenBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OneTimeTokens{repo: repo, cfg: cfg}
}

// TTL returns the lifetime for kind.
func (s *OneTimeTokens) TTL(kind model.TokenKind) time.Duration {
	if kind == model.KindPasswordReset {
		return s.cfg.ResetTTL
	}
	return s.cfg.VerificationTTL
}

// Issue creates a fresh token of kind for userID.
func (s *OneTimeTokens) Issue(ctx context.Context, userID string, kind model.TokenKind) (string, *model.OneTimeToken, error) {
	rec, err := s.newRecord(userID, kind)
	if err != nil {
		return "", nil, err
	}
	if err := s.repo.CreateOneTimeToken(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("one-time token: persist: %w", err)
	}
	return rec.Token, rec, nil
}

// Replace issues a fresh token of kind and invalidates every earlier one
// for userID in the same step.
func (s *OneTimeTokens) Replace(ctx context.Context, userID string, kind model.TokenKind) (string, *model.OneTimeToken, error) {
	rec, err := s.newRecord(userID, kind)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.repo.ReplaceOneTimeTokens(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("one-time token: replace: %w", err)
	}
	return rec.Token, rec, nil
}

func (s *OneTimeTokens) newRecord(userID string, kind model.TokenKind) (*model.OneTimeToken, error) {
	value, err := internal.NewOpaqueToken(s.cfg.TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("one-time token: generate: %w", err)
	}
	now := s.cfg.Now().UTC()
	return &model.OneTimeToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Token:     value,
		ExpiresAt: now.Add(s.TTL(kind)),
		CreatedAt: now,
	}, nil
}

// Find looks a token up by its plaintext value.
func (s *OneTimeTokens) Find(ctx context.Context, kind model.TokenKind, value string) (*model.OneTimeToken, bool, error) {
	if value == "" {
		return nil, false, nil
	}
	rec, ok, err := s.repo.FindOneTimeToken(ctx, kind, value)
	if err != nil {
		return nil, false, fmt.Errorf("one-time token: find: %w", err)
	}
	return rec, ok, nil
}

// MarkUsed durably consumes rec. It returns ErrTokenUsed when another
// caller consumed it first.
func (s *OneTimeTokens) MarkUsed(ctx context.Context, rec *model.OneTimeToken) error {
	claimed, err := s.repo.ClaimOneTimeToken(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("one-time token: claim: %w", err)
	}
	if !claimed {
		rec.MarkUsed()
		return ErrTokenUsed
	}
	rec.MarkUsed()
	return nil
}

// Redeem runs the full check sequence: unknown, then used, then expired,
// then the atomic claim.
func (s *OneTimeTokens) Redeem(ctx context.Context, kind model.TokenKind, value string) (*model.OneTimeToken, error) {
	rec, ok, err := s.Find(ctx, kind, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	if rec.Used {
		return nil, ErrTokenUsed
	}
	if rec.IsExpired(s.cfg.Now()) {
		return nil, ErrTokenExpired
	}
	if err := s.MarkUsed(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
