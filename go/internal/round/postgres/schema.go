// Package postgres stores durable and archived rounds in Postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS live_rounds (
    course_name TEXT PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS live_round_players (
    course_name TEXT NOT NULL REFERENCES live_rounds (course_name) ON DELETE CASCADE,
    player_name TEXT NOT NULL,
    scores      INT4[] NOT NULL DEFAULT '{}',
    version     BIGINT NOT NULL DEFAULT 0,
    joined_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (course_name, player_name)
);

CREATE TABLE IF NOT EXISTS archived_rounds (
    id              UUID PRIMARY KEY,
    seq             BIGSERIAL NOT NULL UNIQUE,
    course_name     TEXT NOT NULL,
    player_names    TEXT[] NOT NULL DEFAULT '{}',
    players         JSONB NOT NULL,
    course_snapshot JSONB,
    finished_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS archived_rounds_course_name_idx ON archived_rounds (course_name);
`

// Migrate creates the tables used by both repositories when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("database schema is up to date")
	return nil
}
