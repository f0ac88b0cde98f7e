package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables lists the tables created by Migrate
var Tables = []string{"place", "leg", "import_log", "plan_log", "usage_log"}

// schema creates the timetable, history and usage tables. Every statement is
// idempotent so Migrate can run at each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS place (
		code      TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		lat       DOUBLE PRECISION,
		lon       DOUBLE PRECISION,
		timezone  TEXT NOT NULL DEFAULT 'UTC'
	)`,
	`CREATE INDEX IF NOT EXISTS place_name_idx ON place (lower(name))`,
	`CREATE TABLE IF NOT EXISTS leg (
		id                TEXT PRIMARY KEY,
		from_code         TEXT NOT NULL REFERENCES place (code),
		to_code           TEXT NOT NULL REFERENCES place (code),
		departure_utc     TIMESTAMPTZ NOT NULL,
		arrival_utc       TIMESTAMPTZ NOT NULL,
		departure_offset  INTEGER NOT NULL DEFAULT 0,
		arrival_offset    INTEGER NOT NULL DEFAULT 0,
		duration_seconds  INTEGER NOT NULL,
		transport_type    TEXT NOT NULL,
		schedule_id       TEXT NOT NULL DEFAULT '',
		number            TEXT NOT NULL DEFAULT '',
		title             TEXT NOT NULL DEFAULT '',
		feed              TEXT NOT NULL DEFAULT '',
		service_date      DATE
	)`,
	`CREATE INDEX IF NOT EXISTS leg_pair_departure_idx ON leg (from_code, to_code, departure_utc)`,
	`CREATE INDEX IF NOT EXISTS leg_feed_service_idx ON leg (feed, service_date)`,
	`CREATE TABLE IF NOT EXISTS import_log (
		id            BIGSERIAL PRIMARY KEY,
		feed          TEXT NOT NULL,
		status        TEXT NOT NULL,
		message       TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS plan_log (
		id               UUID PRIMARY KEY,
		created_at       TIMESTAMPTZ NOT NULL,
		criterion        TEXT NOT NULL,
		stops            JSONB NOT NULL,
		itinerary_count  INTEGER NOT NULL,
		duration_ms      INTEGER NOT NULL,
		result           JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usage_log (
		id                BIGSERIAL PRIMARY KEY,
		endpoint          TEXT NOT NULL,
		method            TEXT NOT NULL,
		response_status   INTEGER NOT NULL,
		response_time_ms  INTEGER NOT NULL,
		itinerary_count   INTEGER,
		ip_address        TEXT NOT NULL DEFAULT '',
		user_agent        TEXT NOT NULL DEFAULT '',
		timestamp         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates any missing tables
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
