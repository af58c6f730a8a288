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

func TestTradeStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	entry := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)
	tr := testTrade("run-1", "trade-1", entry)

	err := store.Insert(ctx, tr)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)
	assert.Equal(t, "trade-1", got.TradeID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, domain.SignalS1, got.SignalType)
	assert.Equal(t, domain.DirectionBullish, got.Direction)
	assert.True(t, got.EntryTime.Equal(entry))
	assert.Equal(t, 25040.0, got.EntrySpot)
	assert.Equal(t, domain.OutcomeWin, got.Outcome)
	assert.Equal(t, domain.ExitReasonStopped, got.ExitReason)
	assert.True(t, got.TotalPnl.Equal(decimal.NewFromInt(29200)))
	assert.Equal(t, 0.8, got.Confidence)

	// Legs come back in insert order: main then hedge
	require.Len(t, got.Positions, 2)
	assert.Equal(t, domain.PositionMain, got.Positions[0].Kind)
	assert.Equal(t, 24750.0, got.Positions[0].Strike)
	assert.True(t, got.Positions[0].EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.PositionHedge, got.Positions[1].Kind)
	assert.Equal(t, 24550.0, got.Positions[1].Strike)
	assert.True(t, got.Positions[1].Pnl.Equal(decimal.NewFromInt(-15000)))
}

func TestTradeStore_Insert_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	entry := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)
	tr := testTrade("run-1", "trade-1", entry)

	require.NoError(t, store.Insert(ctx, tr))

	err := store.Insert(ctx, tr)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeStore_InsertBulk_Atomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	entry := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, testTrade("run-1", "trade-1", entry)))

	// Batch containing an existing trade; the new trade must not survive
	batch := []*domain.Trade{
		testTrade("run-1", "trade-2", entry.Add(7*24*time.Hour)),
		testTrade("run-1", "trade-1", entry),
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "trade-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetByRunID_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	insertTestRun(t, pool, "run-2")
	entry := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)

	// Insert out of entry order
	require.NoError(t, store.Insert(ctx, testTrade("run-1", "trade-b", entry.Add(7*24*time.Hour))))
	require.NoError(t, store.Insert(ctx, testTrade("run-1", "trade-a", entry)))
	require.NoError(t, store.Insert(ctx, testTrade("run-2", "trade-c", entry)))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trade-a", got[0].TradeID)
	assert.Equal(t, "trade-b", got[1].TradeID)
	require.Len(t, got[0].Positions, 2)

	got, err = store.GetByRunID(ctx, "run-3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeStore_UnhedgedTrade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	entry := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)
	tr := testTrade("run-1", "trade-1", entry)
	tr.Positions = tr.Positions[:1]

	require.NoError(t, store.Insert(ctx, tr))

	got, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	assert.Nil(t, got.HedgePosition())
	assert.NotNil(t, got.MainPosition())
}
