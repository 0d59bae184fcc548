package postgres

import (
	"context"
	"fmt"
)

// Schema is the DDL for every table the store writes.
const Schema = `
CREATE TABLE IF NOT EXISTS steps (
	tx_hash         TEXT PRIMARY KEY,
	label           TEXT NOT NULL,
	source_contract TEXT NOT NULL,
	fn              TEXT NOT NULL,
	block_number    BIGINT NOT NULL,
	block_ts        BIGINT NOT NULL,
	event_count     INTEGER NOT NULL,
	hero_count      INTEGER NOT NULL,
	hook_from       TEXT,
	hook_to         TEXT,
	hook_reason     TEXT,
	data            JSONB,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS step_events (
	tx_hash    TEXT NOT NULL REFERENCES steps (tx_hash) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	contract   TEXT NOT NULL,
	event_name TEXT NOT NULL,
	args       JSONB NOT NULL,
	is_hero    BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tx_hash, position)
);

CREATE INDEX IF NOT EXISTS step_events_hero_idx ON step_events (contract, event_name) WHERE is_hero;

CREATE TABLE IF NOT EXISTS event_window_counts (
	contract            TEXT NOT NULL,
	event_name          TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	event_count         BIGINT NOT NULL,
	hero_count          BIGINT NOT NULL,
	step_count          BIGINT NOT NULL,
	first_block         BIGINT NOT NULL,
	last_block          BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (contract, event_name, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS replay_state (
	name           TEXT PRIMARY KEY,
	last_processed BIGINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
