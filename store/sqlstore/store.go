// Package sqlstore implements the storage ports on top of bun. SQLite
// (through sqliteshim) and PostgreSQL (through pgx) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/MrEthical07/tenantAuth/model"
	"github.com/MrEthical07/tenantAuth/store"
)

const pgUniqueViolation = "23505"

// Store serves every storage port from one bun database handle.
type Store struct {
	db bun.IDB
}

var _ store.Backend = (*Store)(nil)

// New wraps db. It accepts *bun.DB or a bun.Tx.
func New(db bun.IDB) *Store {
	return &Store{db: db}
}

// Repositories returns the store wired into every port.
func (s *Store) Repositories() store.Repositories {
	return store.From(s)
}

func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return store.ErrConflict
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return store.ErrConflict
	}
	return fmt.Errorf("sqlstore: %s: %w", op, err)
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Tenants

func (s *Store) CreateTenant(ctx context.Context, t *model.Tenant) error {
	t.CreatedAt = t.CreatedAt.UTC()
	_, err := s.db.NewInsert().Model(t).Exec(ctx)
	return mapErr("create tenant", err)
}

func (s *Store) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	_, err := s.db.NewUpdate().
		Model(t).
		Column("name", "enabled").
		WherePK().
		Exec(ctx)
	return mapErr("update tenant", err)
}

func (s *Store) FindTenantByID(ctx context.Context, id string) (*model.Tenant, bool, error) {
	return s.findTenant(ctx, "tnt.id = ?", id)
}

func (s *Store) FindTenantBySlug(ctx context.Context, slug string) (*model.Tenant, bool, error) {
	return s.findTenant(ctx, "tnt.slug = ?", slug)
}

func (s *Store) findTenant(ctx context.Context, where string, arg any) (*model.Tenant, bool, error) {
	t := new(model.Tenant)
	err := s.db.NewSelect().Model(t).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("find tenant", err)
	}
	return t, true, nil
}

func (s *Store) TenantExistsBySlug(ctx context.Context, slug string) (bool, error) {
	ok, err := s.db.NewSelect().Model((*model.Tenant)(nil)).Where("tnt.slug = ?", slug).Exists(ctx)
	return ok, mapErr("tenant exists", err)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	_, err := s.db.NewInsert().Model(u).Exec(ctx)
	return mapErr("create user", err)
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = u.UpdatedAt.UTC()
	_, err := s.db.NewUpdate().
		Model(u).
		ExcludeColumn("id", "tenant_id", "created_at").
		WherePK().
		Exec(ctx)
	return mapErr("update user", err)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, bool, error) {
	return s.findUser(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("usr.id = ?", id)
	})
}

func (s *Store) FindUserByEmailAndTenantSlug(ctx context.Context, email, tenantSlug string) (*model.User, bool, error) {
	return s.findUser(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("usr.email = ?", email).Where("tenant.slug = ?", tenantSlug)
	})
}

func (s *Store) findUser(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) (*model.User, bool, error) {
	u := new(model.User)
	err := filter(s.db.NewSelect().Model(u).Relation("Tenant")).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("find user", err)
	}
	return u, true, nil
}

func (s *Store) UserExistsByEmailAndTenantID(ctx context.Context, email, tenantID string) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*model.User)(nil)).
		Where("usr.email = ?", email).
		Where("usr.tenant_id = ?", tenantID).
		Exists(ctx)
	return ok, mapErr("user exists", err)
}

// Refresh tokens

func (s *Store) CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error {
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	_, err := s.db.NewInsert().Model(t).Exec(ctx)
	return mapErr("create refresh token", err)
}

func (s *Store) FindRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, bool, error) {
	t := new(model.RefreshToken)
	err := s.db.NewSelect().Model(t).Where("rt.token_hash = ?", hash).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("find refresh token", err)
	}
	return t, true, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*model.RefreshToken)(nil)).
		Set("revoked = ?", true).
		Where("token_hash = ?", hash).
		Exec(ctx)
	if err != nil {
		return false, mapErr("revoke refresh token", err)
	}
	n, err := affected(res)
	return n > 0, mapErr("revoke refresh token", err)
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) (int, error) {
	res, err := s.db.NewUpdate().
		Model((*model.RefreshToken)(nil)).
		Set("revoked = ?", true).
		Where("user_id = ?", userID).
		Where("revoked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, mapErr("revoke refresh tokens", err)
	}
	n, err := affected(res)
	return n, mapErr("revoke refresh tokens", err)
}

func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.NewDelete().
		Model((*model.RefreshToken)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, mapErr("delete expired refresh tokens", err)
	}
	n, err := affected(res)
	return n, mapErr("delete expired refresh tokens", err)
}

// One-time tokens

func (s *Store) CreateOneTimeToken(ctx context.Context, t *model.OneTimeToken) error {
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	_, err := s.db.NewInsert().Model(t).Exec(ctx)
	return mapErr("create one-time token", err)
}

func (s *Store) FindOneTimeToken(ctx context.Context, kind model.TokenKind, token string) (*model.OneTimeToken, bool, error) {
	t := new(model.OneTimeToken)
	err := s.db.NewSelect().
		Model(t).
		Where("ott.kind = ?", kind).
		Where("ott.token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapErr("find one-time token", err)
	}
	return t, true, nil
}

func (s *Store) ClaimOneTimeToken(ctx context.Context, id string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*model.OneTimeToken)(nil)).
		Set("used = ?", true).
		Where("id = ?", id).
		Where("used = ?", false).
		Exec(ctx)
	if err != nil {
		return false, mapErr("claim one-time token", err)
	}
	n, err := affected(res)
	return n == 1, mapErr("claim one-time token", err)
}

func (s *Store) DeleteOneTimeTokens(ctx context.Context, userID string, kind model.TokenKind) (int, error) {
	res, err := s.db.NewDelete().
		Model((*model.OneTimeToken)(nil)).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Exec(ctx)
	if err != nil {
		return 0, mapErr("delete one-time tokens", err)
	}
	n, err := affected(res)
	return n, mapErr("delete one-time tokens", err)
}

func (s *Store) ReplaceOneTimeTokens(ctx context.Context, t *model.OneTimeToken) (int, error) {
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()

	var removed int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// SQLite serializes writers on its own; PostgreSQL needs a lock
		// per user and kind or two transactions can both insert.
		if tx.Dialect().Name() == dialect.PG {
			if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", t.UserID+":"+string(t.Kind)); err != nil {
				return err
			}
		}
		res, err := tx.NewDelete().
			Model((*model.OneTimeToken)(nil)).
			Where("user_id = ?", t.UserID).
			Where("kind = ?", t.Kind).
			Exec(ctx)
		if err != nil {
			return err
		}
		if removed, err = affected(res); err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(t).Exec(ctx)
		return err
	})
	if err != nil {
		return 0, mapErr("replace one-time tokens", err)
	}
	return removed, nil
}

// Login attempts

func (s *Store) AppendLoginAttempt(ctx context.Context, a *model.LoginAttempt) error {
	a.CreatedAt = a.CreatedAt.UTC()
	_, err := s.db.NewInsert().Model(a).Exec(ctx)
	return mapErr("append login attempt", err)
}

func (s *Store) CountFailuresByEmailSince(ctx context.Context, email, tenantSlug string, since time.Time) (int, error) {
	n, err := s.db.NewSelect().
		Model((*model.LoginAttempt)(nil)).
		Where("la.success = ?", false).
		Where("la.email = ?", email).
		Where("la.tenant_slug = ?", tenantSlug).
		Where("la.created_at >= ?", since.UTC()).
		Count(ctx)
	return n, mapErr("count failures by email", err)
}

func (s *Store) CountFailuresByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	n, err := s.db.NewSelect().
		Model((*model.LoginAttempt)(nil)).
		Where("la.success = ?", false).
		Where("la.ip_address = ?", ip).
		Where("la.created_at >= ?", since.UTC()).
		Count(ctx)
	return n, mapErr("count failures by ip", err)
}

func (s *Store) HasSuccessFromIPSince(ctx context.Context, userID, ip string, since time.Time) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*model.LoginAttempt)(nil)).
		Where("la.success = ?", true).
		Where("la.user_id = ?", userID).
		Where("la.ip_address = ?", ip).
		Where("la.created_at >= ?", since.UTC()).
		Exists(ctx)
	return ok, mapErr("success from ip", err)
}
