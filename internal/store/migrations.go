package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all webextools tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		command    TEXT NOT NULL,
		file       TEXT NOT NULL DEFAULT '',
		dry_run    INTEGER NOT NULL DEFAULT 0,
		succeeded  INTEGER NOT NULL DEFAULT 0,
		failed     INTEGER NOT NULL DEFAULT 0,
		skipped    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS run_outcomes (
		run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		person_id    TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON run_outcomes(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_run_outcomes_status ON run_outcomes(status)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
