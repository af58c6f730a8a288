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

func testDaily(runID string, date time.Time, pnl int64) *domain.DailyResult {
	open := decimal.NewFromInt(1000000)
	return &domain.DailyResult{
		RunID:        runID,
		Date:         date,
		OpenCapital:  open,
		CloseCapital: open.Add(decimal.NewFromInt(pnl)),
		Pnl:          decimal.NewFromInt(pnl),
		TradesOpened: 1,
		TradesClosed: 0,
		BarsSeen:     7,
	}
}

func TestDailyResultStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyResultStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	day1 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	// Insert out of date order; reads come back sorted
	err := store.InsertBulk(ctx, []*domain.DailyResult{
		testDaily("run-1", day2, -500),
		testDaily("run-1", day1, 1200),
	})
	require.NoError(t, err)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(day1))
	assert.True(t, got[0].Pnl.Equal(decimal.NewFromInt(1200)))
	assert.True(t, got[1].Date.Equal(day2))
	assert.True(t, got[1].CloseCapital.Equal(decimal.NewFromInt(999500)))
	assert.Equal(t, 7, got[0].BarsSeen)
}

func TestDailyResultStore_InsertBulk_DuplicateDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyResultStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBulk(ctx, []*domain.DailyResult{testDaily("run-1", day, 100)}))

	// Whole batch rolls back on the duplicate
	err := store.InsertBulk(ctx, []*domain.DailyResult{
		testDaily("run-1", day.AddDate(0, 0, 1), 200),
		testDaily("run-1", day, 300),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDailyResultStore_GetByRunID_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyResultStore(pool)

	got, err := store.GetByRunID(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
