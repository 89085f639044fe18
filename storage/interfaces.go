package storage

import (
	"context"

	"github.com/poiesic/scout/core"
)

// RunRepository persists the validated output of orchestration runs.
// Implementations must be thread-safe and must store a run atomically:
// either the whole run is visible or none of it is.
type RunRepository interface {
	// SaveRun stores a completed run keyed by its metadata ID.
	// Saving an existing ID replaces the earlier run.
	SaveRun(ctx context.Context, run *core.RunResult) error

	// GetRun retrieves a run by ID.
	// Returns ErrNotFound if the run doesn't exist.
	GetRun(ctx context.Context, id string) (*core.RunResult, error)

	// ListRuns returns run metadata, most recently started first, up to limit entries.
	ListRuns(ctx context.Context, limit int) ([]core.RunMetadata, error)

	// DeleteRun removes a run and its index entries.
	// Returns ErrNotFound if the run doesn't exist.
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources held by the repository.
	Close() error
}
