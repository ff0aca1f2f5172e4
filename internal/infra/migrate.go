package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements executed once at startup. Request handlers assume the
// schema already exists.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(255) PRIMARY KEY,
		seller_id VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(50) NOT NULL,
		image_url TEXT NOT NULL,
		image_handle VARCHAR(255),
		color VARCHAR(100) NOT NULL DEFAULT 'Unknown',
		style VARCHAR(100) NOT NULL DEFAULT 'General',
		best_skin_tones TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[],
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_products_seller_uploaded
		ON products (seller_id, uploaded_at DESC);`,
	`CREATE TABLE IF NOT EXISTS tryon_tasks (
		id VARCHAR(255) PRIMARY KEY,
		owner_id VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL,
		product_id VARCHAR(255) REFERENCES products(id) ON DELETE CASCADE,
		provider_task_id VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'processing',
		input JSONB NOT NULL DEFAULT '{}'::JSONB,
		provider_result_url TEXT,
		durable_result_url TEXT,
		durable_result_handle VARCHAR(255),
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT tryon_tasks_provider_task_unique UNIQUE (kind, provider_task_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tryon_tasks_owner_created
		ON tryon_tasks (owner_id, created_at DESC);`,
}

// Migrate brings the schema up to date. Run once at process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
