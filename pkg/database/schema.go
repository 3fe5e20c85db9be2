package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// schema is applied on startup. Statements are idempotent so restarts are
// safe without a separate migration tool.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS providers (
		id               BIGSERIAL PRIMARY KEY,
		actor_id         BIGINT NOT NULL UNIQUE,
		name             TEXT NOT NULL,
		phone            TEXT NOT NULL,
		category         TEXT NOT NULL,
		division         TEXT NOT NULL DEFAULT '',
		lat              DOUBLE PRECISION,
		lon              DOUBLE PRECISION,
		short_code       BIGINT UNIQUE,
		level            INT NOT NULL DEFAULT 0,
		expires_at       TIMESTAMPTZ,
		coupon_code      TEXT NOT NULL DEFAULT '',
		times_shown      BIGINT NOT NULL DEFAULT 0,
		times_selected   BIGINT NOT NULL DEFAULT 0,
		ratings_received BIGINT NOT NULL DEFAULT 0,
		avg_rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_providers_category ON providers (category)`,

	`CREATE TABLE IF NOT EXISTS requests (
		id                   BIGSERIAL PRIMARY KEY,
		reference            UUID NOT NULL UNIQUE,
		actor_id             BIGINT NOT NULL,
		category             TEXT NOT NULL,
		division             TEXT NOT NULL DEFAULT '',
		phone                TEXT NOT NULL,
		lat                  DOUBLE PRECISION NOT NULL,
		lon                  DOUBLE PRECISION NOT NULL,
		assigned_provider_id BIGINT REFERENCES providers (id),
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_actor ON requests (actor_id)`,

	`CREATE TABLE IF NOT EXISTS coupons (
		id         BIGSERIAL PRIMARY KEY,
		code       TEXT NOT NULL,
		amount     INT NOT NULL,
		used       BOOLEAN NOT NULL DEFAULT FALSE,
		used_by    BIGINT,
		used_at    TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code ON coupons (UPPER(code))`,

	`CREATE TABLE IF NOT EXISTS usage_stats (
		id               INT PRIMARY KEY CHECK (id = 1),
		total_requesters BIGINT NOT NULL DEFAULT 0,
		total_requests   BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO usage_stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
}

// EnsureSchema creates the tables, indexes, and the usage_stats singleton
// row if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info().Msg("database schema ensured")
	return nil
}
