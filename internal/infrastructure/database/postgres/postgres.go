// Package postgres opens the order database and keeps its schema current.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL DEFAULT 0,
		stock INT NOT NULL DEFAULT 0,
		merchant_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		merchant_id BIGINT NOT NULL,
		user_email TEXT NOT NULL DEFAULT '',
		line_items JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		total_price NUMERIC NOT NULL DEFAULT 0,
		total_item_count INT NOT NULL DEFAULT 0,
		delivery_date DATE,
		refund_request_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_merchant_id ON orders (merchant_id)`,
	`CREATE TABLE IF NOT EXISTS refund_requests (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		merchant_id BIGINT NOT NULL,
		order_id BIGINT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		deposited BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE refund_requests ADD COLUMN IF NOT EXISTS deposited BOOLEAN NOT NULL DEFAULT false`,
	// at most one pending refund per order
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_refund_requests_pending ON refund_requests (order_id) WHERE status = 'PENDING'`,
}

// EnsureSchema creates missing tables and indexes. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
