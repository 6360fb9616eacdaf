// Package storetest holds the behavioral contract every storage backend
// must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// Run executes the contract against fresh backends built by newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Helper()

	t.Run("Tenants", func(t *testing.T) { testTenants(t, newBackend(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newBackend(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newBackend(t)) })
	t.Run("OneTimeTokens", func(t *testing.T) { testOneTimeTokens(t, newBackend(t)) })
	t.Run("OneTimeTokenClaimRace", func(t *testing.T) { testClaimRace(t, newBackend(t)) })
	t.Run("OneTimeTokenReplaceRace", func(t *testing.T) { testReplaceRace(t, newBackend(t)) })
	t.Run("LoginAttempts", func(t *testing.T) { testLoginAttempts(t, newBackend(t)) })
}

func seedTenant(t *testing.T, b store.Backend, slug string) *model.Tenant {
	t.Helper()
	tenant := model.NewTenant("Tenant "+slug, slug, time.Now())
	require.NoError(t, b.CreateTenant(context.Background(), tenant))
	return tenant
}

func seedUser(t *testing.T, b store.Backend, tenant *model.Tenant, email string) *model.User {
	t.Helper()
	u := model.NewUser(tenant, email, "hash", "First", "Last", time.Now())
	require.NoError(t, b.CreateUser(context.Background(), u))
	return u
}

func testTenants(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tenant := seedTenant(t, b, "acme")

	dup := model.NewTenant("Other", "acme", time.Now())
	assert.ErrorIs(t, b.CreateTenant(ctx, dup), store.ErrConflict)

	got, ok, err := b.FindTenantBySlug(ctx, "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tenant.ID, got.ID)
	assert.True(t, got.Enabled)

	_, ok, err = b.FindTenantBySlug(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	got.Disable()
	require.NoError(t, b.UpdateTenant(ctx, got))

	byID, ok, err := b.FindTenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, byID.Enabled)
	assert.Equal(t, "acme", byID.Slug)

	exists, err := b.TenantExistsBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, exists)
}

func testUsers(t *testing.T, b store.Backend) {
	ctx := context.Background()
	acme := seedTenant(t, b, "acme")
	globex := seedTenant(t, b, "globex")

	u := seedUser(t, b, acme, "a@x.com")

	// same email in another tenant is a different user
	seedUser(t, b, globex, "a@x.com")

	dup := model.NewUser(acme, "a@x.com", "h", "", "", time.Now())
	assert.ErrorIs(t, b.CreateUser(ctx, dup), store.ErrConflict)

	got, ok, err := b.FindUserByEmailAndTenantSlug(ctx, "a@x.com", "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.Tenant)
	assert.Equal(t, "acme", got.Tenant.Slug)
	assert.Equal(t, []model.Role{model.RoleUser}, got.Roles)

	_, ok, err = b.FindUserByEmailAndTenantSlug(ctx, "a@x.com", "initech")
	require.NoError(t, err)
	assert.False(t, ok)

	got.VerifyEmail(time.Now())
	got.AddRole(model.RoleAdmin, time.Now())
	require.NoError(t, b.UpdateUser(ctx, got))

	again, ok, err := b.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, again.EmailVerified)
	assert.ElementsMatch(t, []model.Role{model.RoleUser, model.RoleAdmin}, again.Roles)
	assert.Equal(t, acme.ID, again.TenantID)

	exists, err := b.UserExistsByEmailAndTenantID(ctx, "a@x.com", acme.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = b.UserExistsByEmailAndTenantID(ctx, "b@x.com", acme.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func newRefresh(userID, hash string, expires time.Time) *model.RefreshToken {
	return &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: expires,
		CreatedAt: time.Now(),
	}
}

func testRefreshTokens(t *testing.T, b store.Backend) {
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, b.CreateRefreshToken(ctx, newRefresh("u1", "h1", now.Add(time.Hour))))
	require.NoError(t, b.CreateRefreshToken(ctx, newRefresh("u1", "h2", now.Add(time.Hour))))
	require.NoError(t, b.CreateRefreshToken(ctx, newRefresh("u2", "h3", now.Add(time.Hour))))
	require.NoError(t, b.CreateRefreshToken(ctx, newRefresh("u2", "old", now.Add(-time.Hour))))

	ok, err := b.RevokeRefreshToken(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.RevokeRefreshToken(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	h1, found, err := b.FindRefreshTokenByHash(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, h1.Revoked)

	h2, found, err := b.FindRefreshTokenByHash(ctx, "h2")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, h2.Revoked)

	n, err := b.RevokeAllRefreshTokens(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	purged, err := b.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, found, err = b.FindRefreshTokenByHash(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)

	h3, found, err := b.FindRefreshTokenByHash(ctx, "h3")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, h3.Revoked)
}

func newOneTime(userID string, kind model.TokenKind, token string) *model.OneTimeToken {
	return &model.OneTimeToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Token:     token,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
}

func testOneTimeTokens(t *testing.T, b store.Backend) {
	ctx := context.Background()

	reset := newOneTime("u1", model.KindPasswordReset, "r1")
	require.NoError(t, b.CreateOneTimeToken(ctx, reset))
	require.NoError(t, b.CreateOneTimeToken(ctx, newOneTime("u1", model.KindEmailVerification, "v1")))

	_, found, err := b.FindOneTimeToken(ctx, model.KindEmailVerification, "r1")
	require.NoError(t, err)
	assert.False(t, found, "lookup must be scoped by kind")

	got, found, err := b.FindOneTimeToken(ctx, model.KindPasswordReset, "r1")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.Used)

	claimed, err := b.ClaimOneTimeToken(ctx, reset.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = b.ClaimOneTimeToken(ctx, reset.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must fail")

	got, _, err = b.FindOneTimeToken(ctx, model.KindPasswordReset, "r1")
	require.NoError(t, err)
	assert.True(t, got.Used)

	n, err := b.DeleteOneTimeTokens(ctx, "u1", model.KindPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, found, err = b.FindOneTimeToken(ctx, model.KindEmailVerification, "v1")
	require.NoError(t, err)
	assert.True(t, found, "other kinds survive deletion")
}

func testReplaceRace(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.CreateOneTimeToken(ctx, newOneTime("u1", model.KindPasswordReset, "stale")))
	require.NoError(t, b.CreateOneTimeToken(ctx, newOneTime("u1", model.KindEmailVerification, "keep")))

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.ReplaceOneTimeTokens(ctx, newOneTime("u1", model.KindPasswordReset, fmt.Sprintf("r%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	live := 0
	for i := 0; i < workers; i++ {
		_, found, err := b.FindOneTimeToken(ctx, model.KindPasswordReset, fmt.Sprintf("r%d", i))
		require.NoError(t, err)
		if found {
			live++
		}
	}
	assert.Equal(t, 1, live, "exactly one reset token must survive concurrent replaces")

	_, found, err := b.FindOneTimeToken(ctx, model.KindPasswordReset, "stale")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = b.FindOneTimeToken(ctx, model.KindEmailVerification, "keep")
	require.NoError(t, err)
	assert.True(t, found, "other kinds are untouched")
}

func testClaimRace(t *testing.T, b store.Backend) {
	ctx := context.Background()
	tok := newOneTime("u1", model.KindPasswordReset, "race")
	require.NoError(t, b.CreateOneTimeToken(ctx, tok))

	const workers = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := b.ClaimOneTimeToken(ctx, tok.ID)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func testLoginAttempts(t *testing.T, b store.Backend) {
	ctx := context.Background()
	now := time.Now()

	add := func(userID, email, ip string, success bool, at time.Time) {
		require.NoError(t, b.AppendLoginAttempt(ctx, &model.LoginAttempt{
			ID:         uuid.NewString(),
			UserID:     userID,
			Email:      email,
			TenantSlug: "acme",
			IP:         ip,
			UserAgent:  "test",
			Success:    success,
			CreatedAt:  at,
		}))
	}

	for i := 0; i < 3; i++ {
		add("", "a@x.com", "10.0.0.1", false, now.Add(-time.Duration(i)*time.Minute))
	}
	add("", "a@x.com", "10.0.0.2", false, now.Add(-2*time.Hour))
	add("u1", "a@x.com", "10.0.0.1", true, now)

	since := now.Add(-time.Hour)
	n, err := b.CountFailuresByEmailSince(ctx, "a@x.com", "acme", since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.CountFailuresByIPSince(ctx, "10.0.0.2", since)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = b.CountFailuresByIPSince(ctx, "10.0.0.1", now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ok, err := b.HasSuccessFromIPSince(ctx, "u1", "10.0.0.1", since)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.HasSuccessFromIPSince(ctx, "u1", "10.0.0.9", since)
	require.NoError(t, err)
	assert.False(t, ok)
}

// UniqueName returns a name safe to use for per-test resources.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
