package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/MrEthical07/tenantAuth/model"
)

// Option tunes Open.
type Option func(*openOptions)

type openOptions struct {
	debug bool
}

// WithQueryDebug logs every query through bundebug.
func WithQueryDebug(enabled bool) Option {
	return func(o *openOptions) { o.debug = enabled }
}

// Open connects to dsn. postgres:// and postgresql:// DSNs use pgx with the
// PostgreSQL dialect; anything else is handed to SQLite.
func Open(dsn string, opts ...Option) (*bun.DB, error) {
	var o openOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var db *bun.DB
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps
		// :memory: databases from splitting per connection.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if o.debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// CreateSchema creates every table and index if they do not exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*model.Tenant)(nil),
		(*model.User)(nil),
		(*model.RefreshToken)(nil),
		(*model.OneTimeToken)(nil),
		(*model.LoginAttempt)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*model.RefreshToken)(nil), "refresh_tokens_user_idx", []string{"user_id"}},
		{(*model.OneTimeToken)(nil), "one_time_tokens_user_kind_idx", []string{"user_id", "kind"}},
		{(*model.LoginAttempt)(nil), "login_attempts_email_idx", []string{"email", "tenant_slug", "created_at"}},
		{(*model.LoginAttempt)(nil), "login_attempts_ip_idx", []string{"ip_address", "created_at"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create index %s: %w", idx.name, err)
		}
	}
	return nil
}
