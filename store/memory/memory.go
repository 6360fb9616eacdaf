// Package memory provides process-local implementations of every storage
// port. It is safe for concurrent use and is intended for tests, the load
// generator and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

// Store holds every entity behind a single RWMutex.
type Store struct {
	mu sync.RWMutex

	tenants      map[string]*model.Tenant       // by id
	tenantSlugs  map[string]string              // slug -> id
	users        map[string]*model.User         // by id
	userKeys     map[string]string              // tenantID|email -> id
	refresh      map[string]*model.RefreshToken // by hash
	oneTime      map[string]*model.OneTimeToken // by id
	oneTimeIndex map[string]string              // kind|token -> id
	attempts     []model.LoginAttempt
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		tenants:      make(map[string]*model.Tenant),
		tenantSlugs:  make(map[string]string),
		users:        make(map[string]*model.User),
		userKeys:     make(map[string]string),
		refresh:      make(map[string]*model.RefreshToken),
		oneTime:      make(map[string]*model.OneTimeToken),
		oneTimeIndex: make(map[string]string),
	}
}

// Repositories returns the store wired into every port.
func (s *Store) Repositories() store.Repositories {
	return store.From(s)
}

func userKey(tenantID, email string) string {
	return tenantID + "|" + email
}

func oneTimeKey(kind model.TokenKind, token string) string {
	return string(kind) + "|" + token
}

func cloneTenant(t *model.Tenant) *model.Tenant {
	cp := *t
	return &cp
}

// Tenants

func (s *Store) CreateTenant(_ context.Context, t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenantSlugs[t.Slug]; ok {
		return store.ErrConflict
	}
	if _, ok := s.tenants[t.ID]; ok {
		return store.ErrConflict
	}
	s.tenants[t.ID] = cloneTenant(t)
	s.tenantSlugs[t.Slug] = t.ID
	return nil
}

func (s *Store) UpdateTenant(_ context.Context, t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tenants[t.ID]
	if !ok {
		return nil
	}
	next := cloneTenant(t)
	// the slug is immutable once assigned
	next.Slug = current.Slug
	s.tenants[t.ID] = next
	return nil
}

func (s *Store) FindTenantByID(_ context.Context, id string) (*model.Tenant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, false, nil
	}
	return cloneTenant(t), true, nil
}

func (s *Store) FindTenantBySlug(_ context.Context, slug string) (*model.Tenant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tenantSlugs[slug]
	if !ok {
		return nil, false, nil
	}
	return cloneTenant(s.tenants[id]), true, nil
}

func (s *Store) TenantExistsBySlug(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tenantSlugs[slug]
	return ok, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(u.TenantID, u.Email)
	if _, ok := s.userKeys[key]; ok {
		return store.ErrConflict
	}
	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	cp := u.Clone()
	cp.Tenant = nil
	s.users[u.ID] = cp
	s.userKeys[key] = u.ID
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return nil
	}
	oldKey := userKey(current.TenantID, current.Email)
	newKey := userKey(current.TenantID, u.Email)
	if newKey != oldKey {
		if _, taken := s.userKeys[newKey]; taken {
			return store.ErrConflict
		}
		delete(s.userKeys, oldKey)
		s.userKeys[newKey] = u.ID
	}

	cp := u.Clone()
	cp.Tenant = nil
	cp.TenantID = current.TenantID
	s.users[u.ID] = cp
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*model.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, false, nil
	}
	return s.withTenant(u), true, nil
}

func (s *Store) FindUserByEmailAndTenantSlug(_ context.Context, email, tenantSlug string) (*model.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.tenantSlugs[tenantSlug]
	if !ok {
		return nil, false, nil
	}
	id, ok := s.userKeys[userKey(tenantID, email)]
	if !ok {
		return nil, false, nil
	}
	return s.withTenant(s.users[id]), true, nil
}

func (s *Store) UserExistsByEmailAndTenantID(_ context.Context, email, tenantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.userKeys[userKey(tenantID, email)]
	return ok, nil
}

// withTenant must be called with the lock held.
func (s *Store) withTenant(u *model.User) *model.User {
	cp := u.Clone()
	if t, ok := s.tenants[u.TenantID]; ok {
		cp.Tenant = cloneTenant(t)
	}
	return cp
}

// Refresh tokens

func (s *Store) CreateRefreshToken(_ context.Context, t *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refresh[t.TokenHash]; ok {
		return store.ErrConflict
	}
	cp := *t
	s.refresh[t.TokenHash] = &cp
	return nil
}

func (s *Store) FindRefreshTokenByHash(_ context.Context, hash string) (*model.RefreshToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.refresh[hash]
	if !ok {
		return nil, false, nil
	}
	cp := *t
	return &cp, true, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refresh[hash]
	if !ok {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for hash, t := range s.refresh {
		if t.IsExpired(now) {
			delete(s.refresh, hash)
			n++
		}
	}
	return n, nil
}

// One-time tokens

func (s *Store) CreateOneTimeToken(_ context.Context, t *model.OneTimeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := oneTimeKey(t.Kind, t.Token)
	if _, ok := s.oneTimeIndex[key]; ok {
		return store.ErrConflict
	}
	cp := *t
	s.oneTime[t.ID] = &cp
	s.oneTimeIndex[key] = t.ID
	return nil
}

func (s *Store) FindOneTimeToken(_ context.Context, kind model.TokenKind, token string) (*model.OneTimeToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.oneTimeIndex[oneTimeKey(kind, token)]
	if !ok {
		return nil, false, nil
	}
	cp := *s.oneTime[id]
	return &cp, true, nil
}

func (s *Store) ClaimOneTimeToken(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.oneTime[id]
	if !ok || t.Used {
		return false, nil
	}
	t.MarkUsed()
	return true, nil
}

func (s *Store) DeleteOneTimeTokens(_ context.Context, userID string, kind model.TokenKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, t := range s.oneTime {
		if t.UserID == userID && t.Kind == kind {
			delete(s.oneTimeIndex, oneTimeKey(t.Kind, t.Token))
			delete(s.oneTime, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ReplaceOneTimeTokens(_ context.Context, t *model.OneTimeToken) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := oneTimeKey(t.Kind, t.Token)
	if _, ok := s.oneTimeIndex[key]; ok {
		return 0, store.ErrConflict
	}
	n := 0
	for id, old := range s.oneTime {
		if old.UserID == t.UserID && old.Kind == t.Kind {
			delete(s.oneTimeIndex, oneTimeKey(old.Kind, old.Token))
			delete(s.oneTime, id)
			n++
		}
	}
	cp := *t
	s.oneTime[t.ID] = &cp
	s.oneTimeIndex[key] = t.ID
	return n, nil
}

// Login attempts

func (s *Store) AppendLoginAttempt(_ context.Context, a *model.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *Store) CountFailuresByEmailSince(_ context.Context, email, tenantSlug string, since time.Time) (int, error) {
	return s.countAttempts(func(a model.LoginAttempt) bool {
		return !a.Success && a.Email == email && a.TenantSlug == tenantSlug && !a.CreatedAt.Before(since)
	}), nil
}

func (s *Store) CountFailuresByIPSince(_ context.Context, ip string, since time.Time) (int, error) {
	return s.countAttempts(func(a model.LoginAttempt) bool {
		return !a.Success && a.IP == ip && !a.CreatedAt.Before(since)
	}), nil
}

func (s *Store) HasSuccessFromIPSince(_ context.Context, userID, ip string, since time.Time) (bool, error) {
	return s.countAttempts(func(a model.LoginAttempt) bool {
		return a.Success && a.UserID == userID && a.IP == ip && !a.CreatedAt.Before(since)
	}) > 0, nil
}

// LoginAttempts returns a snapshot of the ledger in insertion order.
func (s *Store) LoginAttempts() []model.LoginAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LoginAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

func (s *Store) countAttempts(match func(model.LoginAttempt) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.attempts {
		if match(a) {
			n++
		}
	}
	return n
}
