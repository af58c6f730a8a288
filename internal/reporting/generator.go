package reporting

import (
	"context"
	"fmt"
	"time"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/metrics"
	"weekly-options-lab/internal/storage"
)

// Generator produces reports from stored run records. Statistics are
// recomputed from the persisted trades and daily snapshots, so a report
// can be regenerated for any stored run without replaying bars.
type Generator struct {
	runStore     storage.RunStore
	tradeStore   storage.TradeStore
	dailyStore   storage.DailyResultStore
	missingStore storage.MissingPriceStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	tradeStore storage.TradeStore,
	dailyStore storage.DailyResultStore,
	missingStore storage.MissingPriceStore,
) *Generator {
	return &Generator{
		runStore:     runStore,
		tradeStore:   tradeStore,
		dailyStore:   dailyStore,
		missingStore: missingStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for a stored run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	daily, err := g.dailyStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load daily results: %w", err)
	}

	missing, err := g.missingStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load missing prices: %w", err)
	}

	stats := metrics.Compute(&domain.RunResult{
		RunID:          runID,
		InitialCapital: run.InitialCapital,
		Trades:         trades,
		Daily:          daily,
	})

	return &Report{
		GeneratedAt:    g.now(),
		RunID:          runID,
		Status:         run.Status,
		Error:          run.Error,
		RangeFrom:      run.RangeFrom,
		RangeTo:        run.RangeTo,
		InitialCapital: run.InitialCapital,
		Summary:        buildSummary(stats),
		Signals:        buildSignalRows(stats),
		Trades:         buildTradeRows(trades),
		SkippedWeeks:   run.SkippedWeeks,
		MissingPrices:  buildMissingRows(missing),
	}, nil
}

// Build assembles a report directly from an in-memory run result, for runs
// that were never persisted.
func Build(result *domain.RunResult, missing []domain.MissingPrice) *Report {
	stats := result.Statistics
	if stats == nil {
		stats = metrics.Compute(result)
	}

	return &Report{
		GeneratedAt:    time.Now().UTC(),
		RunID:          result.RunID,
		Status:         result.Status,
		Error:          result.Error,
		RangeFrom:      result.RangeFrom,
		RangeTo:        result.RangeTo,
		InitialCapital: result.InitialCapital,
		Summary:        buildSummary(stats),
		Signals:        buildSignalRows(stats),
		Trades:         buildTradeRows(result.Trades),
		SkippedWeeks:   result.SkippedWeeks,
		MissingPrices:  buildMissingRows(missing),
	}
}

func buildSummary(stats *domain.RunStatistics) SummarySection {
	return SummarySection{
		FinalCapital:         stats.FinalCapital,
		TotalPnl:             stats.TotalPnl,
		TotalTrades:          stats.TotalTrades,
		WinningTrades:        stats.WinningTrades,
		LosingTrades:         stats.LosingTrades,
		WinRate:              stats.WinRate,
		TotalReturnPct:       stats.TotalReturnPct,
		AnnualizedReturnPct:  stats.AnnualizedReturnPct,
		MaxDrawdown:          stats.MaxDrawdown,
		MaxDrawdownPct:       stats.MaxDrawdownPct,
		SharpeRatio:          stats.SharpeRatio,
		SortinoRatio:         stats.SortinoRatio,
		MaxConsecutiveLosses: stats.MaxConsecutiveLosses,
	}
}

// buildSignalRows emits rows in signal priority order, skipping signals that
// never traded.
func buildSignalRows(stats *domain.RunStatistics) []SignalRow {
	rows := make([]SignalRow, 0, len(stats.BySignal))
	for _, st := range domain.AllSignalTypes {
		ss, ok := stats.BySignal[st]
		if !ok || ss.Trades == 0 {
			continue
		}
		winRate := 0.0
		if ss.Trades > 0 {
			winRate = float64(ss.Wins) / float64(ss.Trades)
		}
		rows = append(rows, SignalRow{
			Signal:   st,
			Trades:   ss.Trades,
			Wins:     ss.Wins,
			Losses:   ss.Losses,
			WinRate:  winRate,
			TotalPnl: ss.TotalPnl,
		})
	}
	return rows
}

func buildTradeRows(trades []*domain.Trade) []TradeRow {
	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		row := TradeRow{
			TradeID:    t.TradeID,
			Signal:     t.SignalType,
			Direction:  t.Direction,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntrySpot:  t.EntrySpot,
			ExitSpot:   t.ExitSpot,
			Hedged:     t.HedgePosition() != nil,
			Outcome:    t.Outcome,
			ExitReason: t.ExitReason,
			TotalPnl:   t.TotalPnl,
		}
		if main := t.MainPosition(); main != nil {
			row.Strike = main.Strike
			row.Side = main.Side
		}
		rows = append(rows, row)
	}
	return rows
}

func buildMissingRows(missing []domain.MissingPrice) []MissingPriceRow {
	rows := make([]MissingPriceRow, 0, len(missing))
	for _, m := range missing {
		rows = append(rows, MissingPriceRow{
			Timestamp: m.Timestamp,
			Strike:    m.Strike,
			Side:      m.Side,
			Expiry:    m.Expiry,
		})
	}
	return rows
}
