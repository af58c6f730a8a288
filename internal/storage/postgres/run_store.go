package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL. Trades and daily
// snapshots live in their own tables; the run row holds identity, status,
// and capital.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunResult) (err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "runs_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		INSERT INTO runs (
			run_id, status, error,
			started_at, finished_at, range_from, range_to,
			initial_capital, skipped_weeks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, string(r.Status), r.Error,
		r.StartedAt, r.FinishedAt, r.RangeFrom, r.RangeTo,
		r.InitialCapital.String(), r.SkippedWeeks,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
// Trades and daily snapshots are loaded separately through their stores.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunResult, error) {
	query := `
		SELECT run_id, status, error,
		       started_at, finished_at, range_from, range_to,
		       initial_capital, skipped_weeks
		FROM runs
		WHERE run_id = $1
	`

	var (
		r       domain.RunResult
		status  string
		capital string
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&r.RunID, &status, &r.Error,
		&r.StartedAt, &r.FinishedAt, &r.RangeFrom, &r.RangeTo,
		&capital, &r.SkippedWeeks,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}

	r.Status = domain.RunStatus(status)
	r.InitialCapital, err = decimal.NewFromString(capital)
	if err != nil {
		return nil, fmt.Errorf("parse initial capital: %w", err)
	}
	return &r, nil
}
