// Package backtest drives a run: bars stream through the engine in
// timestamp order, week boundaries roll the zone context, and the lifecycle
// controller owns every resulting trade. Same bars, same config, same
// output.
package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/lifecycle"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/weekly"
)

// Config identifies one run and its capital and market parameters.
type Config struct {
	RunID          string
	Symbol         string
	InitialCapital decimal.Decimal
	MinTick        float64
	Lifecycle      lifecycle.Config
}

// Engine is the per-run state machine. Bars must arrive through OnBar in
// non-decreasing timestamp order; the engine never reorders.
type Engine struct {
	cfg        Config
	controller *lifecycle.Controller
	logger     zerolog.Logger

	capital decimal.Decimal

	weekCtx      *weekly.Context
	weekStart    time.Time
	weekBars     []*domain.Bar
	prevWeekBars []*domain.Bar

	day   *domain.DailyResult
	daily []*domain.DailyResult

	trades  []*domain.Trade
	skipped []time.Time

	firstBar time.Time
	lastBar  time.Time
}

// NewEngine creates the run engine around an already-wired lifecycle
// controller.
func NewEngine(cfg Config, controller *lifecycle.Controller, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		controller: controller,
		logger:     logger.With().Str("component", "backtest").Str("run_id", cfg.RunID).Logger(),
		capital:    cfg.InitialCapital,
	}
}

// OnBar folds one completed hourly bar into the run. Cancellation is
// honored between bars only, so an admitted bar is always fully processed.
func (e *Engine) OnBar(ctx context.Context, bar *domain.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := bar.Validate(); err != nil {
		observability.RecordInvalidBar()
		e.logger.Warn().Err(err).Time("ts", bar.Timestamp).Msg("implausible bar skipped")
		return nil
	}
	observability.RecordBarProcessed()

	if e.firstBar.IsZero() {
		e.firstBar = bar.Timestamp
	}
	e.lastBar = bar.Timestamp

	e.rollWeek(bar.Timestamp)
	e.rollDay(bar.Timestamp)

	e.weekCtx.Update(bar)
	e.weekBars = append(e.weekBars, bar)

	out, err := e.controller.ProcessBar(ctx, bar, e.weekCtx, e.capital)
	if err != nil {
		return err
	}

	e.day.BarsSeen++
	if out.Opened != nil {
		e.day.TradesOpened++
		observability.RecordTradeOpened()
		observability.RecordSignalTriggered(string(out.Opened.SignalType))
	}
	if out.Closed != nil {
		e.capital = e.capital.Add(out.Closed.TotalPnl)
		e.trades = append(e.trades, out.Closed)
		e.day.TradesClosed++
		observability.RecordTradeClosed(string(out.Closed.ExitReason))
	}

	return nil
}

// rollWeek starts a fresh weekly context at each Sunday 09:15 boundary,
// deriving zones from the completed week's bars. A week whose zones cannot
// be derived is recorded as skipped and runs with a nil-zone context, so
// open trades still see their exit checks.
func (e *Engine) rollWeek(ts time.Time) {
	ws := weekly.WeekStart(ts)
	if e.weekCtx != nil && ws.Equal(e.weekStart) {
		return
	}

	e.prevWeekBars = e.weekBars
	e.weekBars = nil
	e.weekStart = ws

	// Zones come from the immediately preceding week only; after a data
	// gap the stale week is not a substitute.
	if len(e.prevWeekBars) > 0 && !weekly.WeekStart(e.prevWeekBars[0].Timestamp).Equal(ws.AddDate(0, 0, -7)) {
		e.prevWeekBars = nil
	}

	zones, err := weekly.CalculateZones(e.prevWeekBars, e.cfg.MinTick)
	if err != nil {
		werr := &domain.WeekDataError{WeekStart: ws, Err: err}
		e.logger.Warn().Err(werr).Time("week_start", ws).Msg("week skipped, zones unavailable")
		observability.RecordWeekSkipped()
		e.skipped = append(e.skipped, ws)
		e.weekCtx = weekly.NewContext(ws, nil, domain.BiasNeutral)
		return
	}

	bias := weekly.ComputeBias(zones)
	e.weekCtx = weekly.NewContext(ws, zones, bias)
	e.logger.Debug().
		Time("week_start", ws).
		Str("bias", string(bias)).
		Float64("resistance_top", zones.Resistance.Top).
		Float64("support_bottom", zones.Support.Bottom).
		Msg("weekly zones derived")
}

// rollDay closes the running daily snapshot at each calendar-day boundary.
func (e *Engine) rollDay(ts time.Time) {
	date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	if e.day != nil && e.day.Date.Equal(date) {
		return
	}

	e.closeDay()
	e.day = &domain.DailyResult{
		RunID:       e.cfg.RunID,
		Date:        date,
		OpenCapital: e.capital,
	}
}

func (e *Engine) closeDay() {
	if e.day == nil {
		return
	}
	e.day.CloseCapital = e.capital
	e.day.Pnl = e.day.CloseCapital.Sub(e.day.OpenCapital)
	e.daily = append(e.daily, e.day)
}

// Capital returns the running capital after all closed trades.
func (e *Engine) Capital() decimal.Decimal {
	return e.capital
}

// Results assembles the run output accumulated so far. Callable after a
// failure as well; partial records are kept.
func (e *Engine) Results() *domain.RunResult {
	e.closeDay()
	e.day = nil

	return &domain.RunResult{
		RunID:          e.cfg.RunID,
		Status:         domain.RunCompleted,
		RangeFrom:      e.firstBar,
		RangeTo:        e.lastBar,
		InitialCapital: e.cfg.InitialCapital,
		Trades:         e.trades,
		Daily:          e.daily,
		SkippedWeeks:   e.skipped,
	}
}
