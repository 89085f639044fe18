package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
// Runs are stored whole under their ID, with a start-time index for listing.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *RunRepository) Close() error {
	return nil
}

// SaveRun stores a run and its index entry in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run *core.RunResult) error {
	if run == nil || run.Metadata.ID == "" {
		return storage.ErrInvalidRun
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := makeRunKey(run.Metadata.ID)
	value := storage.MarshalRunResult(run)
	return r.backend.Update(func(tx *badger.Txn) error {
		old, err := readRun(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeRunStartedKey(old.Metadata.StartedAt, old.Metadata.ID)); err != nil {
				return err
			}
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Set(makeRunStartedKey(run.Metadata.StartedAt, run.Metadata.ID), []byte(run.Metadata.ID))
	})
}

// GetRun retrieves a run by ID.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*core.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var run *core.RunResult
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		run, err = readRun(tx, makeRunKey(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", storage.ErrNotFound, id)
	}
	return run, nil
}

// ListRuns returns run metadata, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]core.RunMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	var results []core.RunMetadata
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(runStartedPrefix)
		// Seek past the newest possible timestamp
		start := makeRunStartedKey(time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC), "\xff")
		for iter.Seek(start); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}
			id, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := readRun(tx, makeRunKey(string(id)))
			if err != nil {
				return err
			}
			if run != nil {
				results = append(results, run.Metadata)
			}
		}
		return nil
	})
	return results, err
}

// DeleteRun removes a run and its index entry.
func (r *RunRepository) DeleteRun(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := makeRunKey(id)
	return r.backend.Update(func(tx *badger.Txn) error {
		old, err := readRun(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return fmt.Errorf("%w: run %s", storage.ErrNotFound, id)
		}
		if err := tx.Delete(makeRunStartedKey(old.Metadata.StartedAt, id)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

func readRun(tx *badger.Txn, key []byte) (*core.RunResult, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var run *core.RunResult
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		run, unmarshalErr = storage.UnmarshalRunResult(val)
		return unmarshalErr
	})
	return run, err
}
