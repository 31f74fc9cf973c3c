package store

import (
	"context"

	"github.com/me/webextools/pkg/model"
)

// Store defines the persistence layer for run history.
type Store interface {
	// Run CRUD
	CreateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)

	// Outcome operations
	AddOutcomes(ctx context.Context, outcomes []*model.RunOutcome) error
	ListOutcomesByRun(ctx context.Context, runID string) ([]*model.RunOutcome, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
