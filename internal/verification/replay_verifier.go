package verification

import (
	"context"
	"fmt"

	"weekly-options-lab/internal/backtest"
	"weekly-options-lab/internal/storage"
)

// RunVerifier replays stored runs and diffs the outcome against the
// persisted trades. The runner it is given must carry no persistence sinks,
// otherwise the replay would overwrite the records under verification.
type RunVerifier struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	runner     *backtest.Runner
}

// NewRunVerifier creates a run verifier over stored records.
func NewRunVerifier(runStore storage.RunStore, tradeStore storage.TradeStore, runner *backtest.Runner) *RunVerifier {
	return &RunVerifier{
		runStore:   runStore,
		tradeStore: tradeStore,
		runner:     runner,
	}
}

// VerifyRun re-executes a stored run over its original range with cfg and
// compares every trade. cfg must be the configuration the run was recorded
// with; the run ID is taken from the stored record so derived trade IDs
// line up.
func (v *RunVerifier) VerifyRun(ctx context.Context, runID string, cfg backtest.Config) (*Report, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	cfg.RunID = runID
	cfg.InitialCapital = run.InitialCapital

	replayResult, err := v.runner.Run(ctx, cfg, run.RangeFrom, run.RangeTo)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	replayed := make(map[string]int, len(replayResult.Trades))
	for i, t := range replayResult.Trades {
		replayed[t.TradeID] = i
	}

	report := &Report{RunID: runID, TotalTrades: len(stored)}
	seen := make(map[string]struct{}, len(stored))

	for _, st := range stored {
		seen[st.TradeID] = struct{}{}
		idx, ok := replayed[st.TradeID]
		if !ok {
			report.MissingTrades = append(report.MissingTrades, st.TradeID)
			continue
		}
		divergences := CompareTrades(st, replayResult.Trades[idx])
		result := TradeResult{
			TradeID:     st.TradeID,
			Match:       len(divergences) == 0,
			Divergences: divergences,
		}
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
		report.Results = append(report.Results, result)
	}

	for _, t := range replayResult.Trades {
		if _, ok := seen[t.TradeID]; !ok {
			report.ExtraTrades = append(report.ExtraTrades, t.TradeID)
		}
	}

	return report, nil
}
