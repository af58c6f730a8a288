package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
	"weekly-options-lab/internal/storage/memory"
)

func TestAggregator_ComputeForRun(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	trades := memory.NewTradeStore()
	daily := memory.NewDailyResultStore()

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	err := runs.Insert(ctx, &domain.RunResult{
		RunID:          "run-1",
		Status:         domain.RunCompleted,
		StartedAt:      now,
		FinishedAt:     now,
		RangeFrom:      now.AddDate(0, -1, 0),
		RangeTo:        now,
		InitialCapital: decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}

	tr := closedTrade("t1", metricsBase, domain.SignalS1, 1000)
	tr.RunID = "run-1"
	if err := trades.Insert(ctx, tr); err != nil {
		t.Fatalf("insert trade: %v", err)
	}

	day := dailySnapshot(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), 100000, 1000)
	day.RunID = "run-1"
	if err := daily.InsertBulk(ctx, []*domain.DailyResult{day}); err != nil {
		t.Fatalf("insert daily: %v", err)
	}

	agg := NewAggregator(runs, trades, daily)
	stats, err := agg.ComputeForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ComputeForRun: %v", err)
	}

	if stats.TotalTrades != 1 || stats.WinningTrades != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", stats.TotalTrades, stats.WinningTrades)
	}
	if !stats.FinalCapital.Equal(decimal.NewFromInt(101000)) {
		t.Fatalf("FinalCapital = %s, want 101000", stats.FinalCapital)
	}
}

func TestAggregator_NoTrades(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()

	now := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	err := runs.Insert(ctx, &domain.RunResult{
		RunID:          "run-1",
		Status:         domain.RunCompleted,
		StartedAt:      now,
		FinishedAt:     now,
		RangeFrom:      now,
		RangeTo:        now,
		InitialCapital: decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}

	agg := NewAggregator(runs, memory.NewTradeStore(), memory.NewDailyResultStore())
	_, err = agg.ComputeForRun(ctx, "run-1")
	if !errors.Is(err, ErrNoTrades) {
		t.Fatalf("err = %v, want ErrNoTrades", err)
	}
}

func TestAggregator_UnknownRun(t *testing.T) {
	agg := NewAggregator(memory.NewRunStore(), memory.NewTradeStore(), memory.NewDailyResultStore())

	_, err := agg.ComputeForRun(context.Background(), "no-such-run")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
