package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	started := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	week := time.Date(2025, 2, 23, 9, 15, 0, 0, time.UTC)
	r := &domain.RunResult{
		RunID:          "run-1",
		Status:         domain.RunCompleted,
		StartedAt:      started,
		FinishedAt:     started.Add(2 * time.Minute),
		RangeFrom:      started.AddDate(0, -1, 0),
		RangeTo:        started,
		InitialCapital: decimal.RequireFromString("1000000.5"),
		SkippedWeeks:   []time.Time{week},
	}

	err := store.Insert(ctx, r)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Empty(t, got.Error)
	assert.True(t, got.StartedAt.Equal(started))
	assert.True(t, got.InitialCapital.Equal(decimal.RequireFromString("1000000.5")))
	require.Len(t, got.SkippedWeeks, 1)
	assert.True(t, got.SkippedWeeks[0].Equal(week))
}

func TestRunStore_Insert_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")

	now := time.Now().UTC()
	err := store.Insert(ctx, &domain.RunResult{
		RunID:          "run-1",
		Status:         domain.RunFailed,
		StartedAt:      now,
		FinishedAt:     now,
		RangeFrom:      now,
		RangeTo:        now,
		InitialCapital: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)

	_, err := store.GetByID(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_FailedRunKeepsError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	r := &domain.RunResult{
		RunID:          "run-failed",
		Status:         domain.RunFailed,
		Error:          "context canceled",
		StartedAt:      now,
		FinishedAt:     now,
		RangeFrom:      now.AddDate(0, -1, 0),
		RangeTo:        now,
		InitialCapital: decimal.NewFromInt(500000),
	}
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, "run-failed")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Status)
	assert.Equal(t, "context canceled", got.Error)
}
