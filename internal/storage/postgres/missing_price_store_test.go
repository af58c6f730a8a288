package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

func TestMissingPriceStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMissingPriceStore(pool)
	ctx := context.Background()

	insertTestRun(t, pool, "run-1")
	base := time.Date(2025, 3, 3, 10, 15, 0, 0, time.UTC)
	expiry := time.Date(2025, 3, 6, 15, 30, 0, 0, time.UTC)

	records := []domain.MissingPrice{
		{Timestamp: base.Add(time.Hour), Strike: 25000, Side: domain.SideCall, Expiry: expiry},
		{Timestamp: base, Strike: 24750, Side: domain.SidePut, Expiry: expiry},
	}
	err := store.InsertBulk(ctx, "run-1", records)
	require.NoError(t, err)

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.Equal(t, 24750.0, got[0].Strike)
	assert.Equal(t, domain.SidePut, got[0].Side)
	assert.True(t, got[1].Timestamp.Equal(base.Add(time.Hour)))
	assert.Equal(t, domain.SideCall, got[1].Side)
}

func TestMissingPriceStore_InsertBulk_EmptyRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMissingPriceStore(pool)

	err := store.InsertBulk(context.Background(), "", []domain.MissingPrice{{Strike: 25000}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestMissingPriceStore_GetByRunID_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMissingPriceStore(pool)

	got, err := store.GetByRunID(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got)
}
