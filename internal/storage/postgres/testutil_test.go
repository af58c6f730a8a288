package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	err = migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err, "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// insertTestRun inserts a minimal run row for records keyed by run_id.
func insertTestRun(t *testing.T, pool *Pool, runID string) {
	t.Helper()

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	r := &domain.RunResult{
		RunID:          runID,
		Status:         domain.RunCompleted,
		StartedAt:      now,
		FinishedAt:     now.Add(time.Minute),
		RangeFrom:      now.AddDate(0, -1, 0),
		RangeTo:        now,
		InitialCapital: decimal.NewFromInt(1000000),
	}
	require.NoError(t, NewRunStore(pool).Insert(context.Background(), r))
}

// testTrade builds a closed trade with a main and hedge leg.
func testTrade(runID, tradeID string, entry time.Time) *domain.Trade {
	expiry := time.Date(2025, 3, 6, 15, 30, 0, 0, time.UTC)
	return &domain.Trade{
		TradeID:       tradeID,
		RunID:         runID,
		SignalType:    domain.SignalS1,
		Direction:     domain.DirectionBullish,
		EntryTime:     entry,
		EntrySpot:     25040,
		StopLossPrice: 24900,
		Positions: []*domain.Position{
			{
				Kind:       domain.PositionMain,
				Side:       domain.SidePut,
				Strike:     24750,
				Expiry:     expiry,
				Lots:       10,
				Quantity:   750,
				EntryPrice: decimal.NewFromInt(100),
				ExitPrice:  decimal.NewFromInt(40),
				ExitTime:   entry.Add(24 * time.Hour),
				Pnl:        decimal.NewFromInt(45000),
			},
			{
				Kind:       domain.PositionHedge,
				Side:       domain.SidePut,
				Strike:     24550,
				Expiry:     expiry,
				Lots:       10,
				Quantity:   750,
				EntryPrice: decimal.NewFromInt(30),
				ExitPrice:  decimal.NewFromInt(10),
				ExitTime:   entry.Add(24 * time.Hour),
				Pnl:        decimal.NewFromInt(-15000),
			},
		},
		Outcome:    domain.OutcomeWin,
		ExitReason: domain.ExitReasonStopped,
		ExitTime:   entry.Add(24 * time.Hour),
		ExitSpot:   24700,
		Commission: decimal.NewFromInt(800),
		GrossPnl:   decimal.NewFromInt(30000),
		TotalPnl:   decimal.NewFromInt(29200),
		Reason:     "low broke support zone, reclaimed on close",
		Confidence: 0.8,
	}
}
