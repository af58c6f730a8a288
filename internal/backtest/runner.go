package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/lifecycle"
	"weekly-options-lab/internal/metrics"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/prediction"
	"weekly-options-lab/internal/pricing"
	"weekly-options-lab/internal/signals"
	"weekly-options-lab/internal/storage"
)

func newSignalEngine(cfg Config) *signals.Engine {
	return signals.NewEngine(cfg.Lifecycle.StrikeStep)
}

// Stores groups the optional persistence sinks for a run. Any nil store is
// skipped; persistence failures are logged and never fail the run.
type Stores struct {
	Runs    storage.RunStore
	Trades  storage.TradeStore
	Daily   storage.DailyResultStore
	Missing storage.MissingPriceStore
}

// Runner loads bars, replays them through a fresh engine, and persists the
// results.
type Runner struct {
	bars      storage.BarStore
	prices    pricing.OptionPriceSource
	validator pricing.PriceValidator
	predictor prediction.Predictor
	stores    Stores
	logger    zerolog.Logger
}

// NewRunner creates a backtest runner. The predictor may be nil, in which
// case trades are never exited on model advice.
func NewRunner(
	bars storage.BarStore,
	prices pricing.OptionPriceSource,
	validator pricing.PriceValidator,
	predictor prediction.Predictor,
	stores Stores,
	logger zerolog.Logger,
) *Runner {
	if predictor == nil {
		predictor = prediction.NewStaticPredictor()
	}
	return &Runner{
		bars:      bars,
		prices:    prices,
		validator: validator,
		predictor: predictor,
		stores:    stores,
		logger:    logger,
	}
}

// Run executes one backtest over [from, to]. A bar-level failure or
// cancellation produces a FAILED result carrying the partial records; the
// error is returned alongside so callers can distinguish. Persistence
// problems only log.
func (r *Runner) Run(ctx context.Context, cfg Config, from, to time.Time) (*domain.RunResult, error) {
	started := time.Now()

	missing := pricing.NewMissingPriceLog()
	controller := lifecycle.NewController(cfg.Lifecycle, newSignalEngine(cfg),
		r.prices, r.validator, r.predictor, missing, r.logger, cfg.RunID)
	engine := NewEngine(cfg, controller, r.logger)

	bars, err := r.bars.GetByTimeRange(ctx, cfg.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	var runErr error
	for _, bar := range bars {
		if err := engine.OnBar(ctx, bar); err != nil {
			runErr = err
			break
		}
	}

	result := engine.Results()
	result.StartedAt = started
	result.FinishedAt = time.Now()
	result.RangeFrom = from
	result.RangeTo = to
	result.Statistics = metrics.Compute(result)
	if runErr != nil {
		result.Status = domain.RunFailed
		result.Error = runErr.Error()
	}
	observability.RecordRun(string(result.Status), time.Since(started).Seconds())

	r.persist(result, missing)
	return result, runErr
}

// persist writes the run output to whichever stores are wired. Runs the
// writes on a fresh context so a cancelled run still persists its partial
// records.
func (r *Runner) persist(result *domain.RunResult, missing *pricing.MissingPriceLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := r.logger.With().Str("run_id", result.RunID).Logger()

	if r.stores.Runs != nil {
		if err := r.stores.Runs.Insert(ctx, result); err != nil {
			log.Error().Err(err).Msg("persist run record failed")
		}
	}
	if r.stores.Trades != nil && len(result.Trades) > 0 {
		if err := r.stores.Trades.InsertBulk(ctx, result.Trades); err != nil {
			log.Error().Err(err).Msg("persist trades failed")
		}
	}
	if r.stores.Daily != nil && len(result.Daily) > 0 {
		if err := r.stores.Daily.InsertBulk(ctx, result.Daily); err != nil {
			log.Error().Err(err).Msg("persist daily results failed")
		}
	}
	if r.stores.Missing != nil && missing.Len() > 0 {
		if err := r.stores.Missing.InsertBulk(ctx, result.RunID, missing.Snapshot()); err != nil {
			log.Error().Err(err).Msg("persist missing prices failed")
		}
	}
}
