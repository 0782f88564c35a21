package repository

import (
	"context"
	"fmt"

	"github.com/SasLord/tma/internal/xerrors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the storefront tables when they do not exist yet.
// The orders / order_services / admins layout mirrors the serverless
// storage this service replaces.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			is_premium BOOLEAN NOT NULL DEFAULT FALSE,
			language_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_name TEXT,
			username TEXT,
			total_price BIGINT NOT NULL,
			platform TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_services (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT REFERENCES orders (id),
			service_id TEXT NOT NULL,
			service_name TEXT NOT NULL,
			service_price BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT UNIQUE NOT NULL,
			name TEXT,
			username TEXT,
			is_super_admin BOOLEAN NOT NULL DEFAULT FALSE,
			added_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_order_services_order_id ON order_services (order_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: init schema: %v", xerrors.ErrPersistence, err)
		}
	}
	return nil
}
