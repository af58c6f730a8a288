package metrics

import (
	"context"
	"errors"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// ErrNoTrades is returned when a run has no closed trades to aggregate.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator recomputes run statistics from persisted records, so stored
// runs can be re-summarized without replaying bars.
type Aggregator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	dailyStore storage.DailyResultStore
}

// NewAggregator creates a metrics aggregator over persisted run records.
func NewAggregator(runStore storage.RunStore, tradeStore storage.TradeStore, dailyStore storage.DailyResultStore) *Aggregator {
	return &Aggregator{
		runStore:   runStore,
		tradeStore: tradeStore,
		dailyStore: dailyStore,
	}
}

// ComputeForRun loads a run's trades and daily snapshots and computes its
// statistics block. Returns ErrNoTrades when the run closed no trades.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) (*domain.RunStatistics, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	daily, err := a.dailyStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	return Compute(&domain.RunResult{
		RunID:          runID,
		InitialCapital: run.InitialCapital,
		Trades:         trades,
		Daily:          daily,
	}), nil
}
