// Package simulation runs batches of backtest configurations over the same
// bar range, one run per variant, with bounded parallelism. Runs share no
// mutable state, so variants can execute concurrently.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"weekly-options-lab/internal/backtest"
	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/idhash"
)

// Batch errors.
var (
	ErrNoVariants       = errors.New("no variants to run")
	ErrDuplicateVariant = errors.New("duplicate variant name")
)

// Variant is one named configuration to backtest. A variant with an empty
// RunID gets a deterministic one derived from its name and range.
type Variant struct {
	Name   string
	Config backtest.Config
}

// VariantResult pairs a variant with its run outcome. A FAILED run carries
// both the partial Result and its Err.
type VariantResult struct {
	Name   string
	Result *domain.RunResult
	Err    error
}

// Batch executes variants through a shared backtest runner.
type Batch struct {
	runner  *backtest.Runner
	workers int
	logger  zerolog.Logger
}

// NewBatch creates a batch executor. workers <= 0 means one worker per CPU.
func NewBatch(runner *backtest.Runner, workers int, logger zerolog.Logger) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch{
		runner:  runner,
		workers: workers,
		logger:  logger,
	}
}

// Run executes every variant over [from, to] and returns results in variant
// order. A failing variant does not stop the others; context cancellation
// does. The returned error is the first variant error, if any.
func (b *Batch) Run(ctx context.Context, variants []Variant, from, to time.Time) ([]VariantResult, error) {
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if _, dup := seen[v.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateVariant, v.Name)
		}
		seen[v.Name] = struct{}{}
	}

	results := make([]VariantResult, len(variants))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.runVariant(ctx, variants[i], from, to)
			}
		}()
	}

	for i := range variants {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			firstErr = r.Err
			break
		}
	}
	return results, firstErr
}

func (b *Batch) runVariant(ctx context.Context, v Variant, from, to time.Time) VariantResult {
	if err := ctx.Err(); err != nil {
		return VariantResult{Name: v.Name, Err: err}
	}

	cfg := v.Config
	if cfg.RunID == "" {
		cfg.RunID = idhash.ComputeRunID(cfg.Symbol, from.Unix(), to.Unix(), v.Name)
	}

	log := b.logger.With().Str("variant", v.Name).Str("run_id", cfg.RunID).Logger()
	log.Info().Time("from", from).Time("to", to).Msg("variant started")

	result, err := b.runner.Run(ctx, cfg, from, to)
	if err != nil {
		log.Error().Err(err).Msg("variant failed")
	} else {
		log.Info().
			Int("trades", len(result.Trades)).
			Str("final_capital", result.Statistics.FinalCapital.String()).
			Msg("variant finished")
	}

	return VariantResult{Name: v.Name, Result: result, Err: err}
}
