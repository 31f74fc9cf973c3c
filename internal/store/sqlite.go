package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/webextools/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Run CRUD ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, file, dry_run, succeeded, failed, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.File, boolToInt(run.DryRun),
		run.Succeeded, run.Failed, run.Skipped,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	var run model.Run
	var dryRun int
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, command, file, dry_run, succeeded, failed, skipped, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Command, &run.File, &dryRun,
		&run.Succeeded, &run.Failed, &run.Skipped, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.DryRun = dryRun != 0
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, file, dry_run, succeeded, failed, skipped, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var run model.Run
		var dryRun int
		var createdAt string

		if err := rows.Scan(&run.ID, &run.Command, &run.File, &dryRun,
			&run.Succeeded, &run.Failed, &run.Skipped, &createdAt); err != nil {
			return nil, 0, err
		}
		run.DryRun = dryRun != 0
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		runs = append(runs, &run)
	}
	return runs, total, rows.Err()
}

// --- Outcome operations ---

func (s *SQLiteStore) AddOutcomes(ctx context.Context, outcomes []*model.RunOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	s.logger.Debug("sql", "op", "insert", "table", "run_outcomes", "count", len(outcomes))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_outcomes (run_id, person_id, email, display_name, status, reason)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, o.RunID, o.PersonID, o.Email, o.DisplayName, string(o.Status), o.Reason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListOutcomesByRun(ctx context.Context, runID string) ([]*model.RunOutcome, error) {
	s.logger.Debug("sql", "op", "list", "table", "run_outcomes", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, person_id, email, display_name, status, reason
		 FROM run_outcomes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*model.RunOutcome
	for rows.Next() {
		var o model.RunOutcome
		var status string
		if err := rows.Scan(&o.RunID, &o.PersonID, &o.Email, &o.DisplayName, &status, &o.Reason); err != nil {
			return nil, err
		}
		o.Status = model.OutcomeStatus(status)
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
