// Package lifecycle owns open trades: admission on a triggered signal,
// per-bar exit checks, and close accounting. The per-bar check order is
// fixed (expiry, price stop, progressive stop, scheduled exit, admission)
// so that runs replay identically.
package lifecycle

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/idhash"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/prediction"
	"weekly-options-lab/internal/pricing"
	"weekly-options-lab/internal/signals"
	"weekly-options-lab/internal/stoploss"
	"weekly-options-lab/internal/weekly"
)

const barInterval = time.Hour

// Outcome reports what one bar did to the controller's state. At most one
// trade closes and at most one opens per bar, never the same trade.
type Outcome struct {
	Closed *domain.Trade
	Opened *domain.Trade
}

// Controller drives every open trade through its lifecycle and admits new
// trades from triggered signals. One controller serves one run; it is not
// safe for concurrent use.
type Controller struct {
	cfg       Config
	engine    *signals.Engine
	prices    pricing.OptionPriceSource
	validator pricing.PriceValidator
	predictor prediction.Predictor
	missing   *pricing.MissingPriceLog
	logger    zerolog.Logger
	runID     string

	open    *domain.Trade
	machine *stoploss.Machine
}

// NewController creates a lifecycle controller for one run.
func NewController(
	cfg Config,
	engine *signals.Engine,
	prices pricing.OptionPriceSource,
	validator pricing.PriceValidator,
	predictor prediction.Predictor,
	missing *pricing.MissingPriceLog,
	logger zerolog.Logger,
	runID string,
) *Controller {
	return &Controller{
		cfg:       cfg,
		engine:    engine,
		prices:    prices,
		validator: validator,
		predictor: predictor,
		missing:   missing,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
		runID:     runID,
	}
}

// OpenTrade returns the currently open trade, or nil.
func (c *Controller) OpenTrade() *domain.Trade {
	return c.open
}

// ProcessBar runs the fixed per-bar sequence against one hourly bar.
// wctx may be nil during weeks skipped for missing zone data; exit checks
// still run so an open trade is never orphaned.
func (c *Controller) ProcessBar(ctx context.Context, bar *domain.Bar, wctx *weekly.Context, capital decimal.Decimal) (Outcome, error) {
	var out Outcome

	if c.open != nil {
		closed, err := c.checkExits(ctx, bar)
		if err != nil {
			return out, err
		}
		out.Closed = closed
	}

	if c.open == nil && wctx != nil {
		closeTime := bar.Timestamp.Add(barInterval)
		res := c.engine.Evaluate(bar, wctx, closeTime)
		if res.Triggered {
			opened, err := c.admit(ctx, bar, res, capital)
			if err != nil {
				return out, err
			}
			out.Opened = opened
		}
	}

	return out, nil
}

// checkExits applies the exit rules in order and returns the closed trade,
// if any.
func (c *Controller) checkExits(ctx context.Context, bar *domain.Bar) (*domain.Trade, error) {
	main := c.open.MainPosition()
	closeTime := bar.Timestamp.Add(barInterval)

	// 1. Expiry: settle at the live quote when one exists, otherwise at
	// intrinsic value.
	if main != nil && !closeTime.Before(main.Expiry) {
		return c.closeTrade(ctx, bar, domain.ExitReasonExpired), nil
	}

	// 2. Directional spot stop.
	if c.stopHit(bar) {
		return c.closeTrade(ctx, bar, domain.ExitReasonStopped), nil
	}

	// 3. Progressive stop loss, marked to market in premium P&L.
	if c.machine != nil {
		pnl, ok := c.markToMarket(ctx, bar)
		if ok {
			day := weekly.TradingDay(c.open.EntryTime, bar.Timestamp)
			if c.machine.Update(closeTime, day, pnl) {
				return c.closeTrade(ctx, bar, domain.ExitReasonProgressiveSL), nil
			}
		}
	}

	// 4. Predictor advisory.
	if closed := c.checkPredictor(ctx, bar); closed != nil {
		return closed, nil
	}

	// 5. Scheduled mid-week exit, at most once per trade.
	if closed := c.checkScheduledExit(ctx, bar); closed != nil {
		return closed, nil
	}

	return nil, nil
}

// stopHit reports whether spot crossed the trade's stop-loss price.
// Bullish trades stop on a close at or below the stop, bearish at or above.
func (c *Controller) stopHit(bar *domain.Bar) bool {
	if c.open.Direction == domain.DirectionBullish {
		return bar.Close <= c.open.StopLossPrice
	}
	return bar.Close >= c.open.StopLossPrice
}

func (c *Controller) checkPredictor(ctx context.Context, bar *domain.Bar) *domain.Trade {
	if c.predictor == nil || c.cfg.PredictorExitConfidence <= 0 {
		return nil
	}

	state := prediction.State{
		SignalType: c.open.SignalType,
		Direction:  c.open.Direction,
		TradingDay: weekly.TradingDay(c.open.EntryTime, bar.Timestamp),
	}
	if pnl, ok := c.markToMarket(ctx, bar); ok {
		if maxProfit := c.open.MaxProfitReceivable(); maxProfit.IsPositive() {
			state.CurrentPnl, _ = pnl.Div(maxProfit).Float64()
		}
	}
	if bar.Close != 0 {
		state.SpotDistance = math.Abs(bar.Close-c.open.StopLossPrice) / bar.Close
	}

	pred, err := c.predictor.Predict(ctx, state)
	if err != nil {
		c.logger.Warn().Err(err).Str("trade_id", c.open.TradeID).Msg("predictor unavailable, holding")
		return nil
	}
	if pred.Action == prediction.ActionExit && pred.Confidence >= c.cfg.PredictorExitConfidence {
		return c.closeTrade(ctx, bar, domain.ExitReasonPredictorExit)
	}
	return nil
}

func (c *Controller) checkScheduledExit(ctx context.Context, bar *domain.Bar) *domain.Trade {
	if !c.cfg.ScheduledExitEnabled || c.open.ScheduledExitDone {
		return nil
	}
	if bar.Timestamp.Weekday() != c.cfg.ScheduledExitWeekday {
		return nil
	}
	gate := time.Date(bar.Timestamp.Year(), bar.Timestamp.Month(), bar.Timestamp.Day(),
		c.cfg.ScheduledExitHour, c.cfg.ScheduledExitMinute, 0, 0, bar.Timestamp.Location())
	if bar.Timestamp.Before(gate) {
		return nil
	}

	c.open.ScheduledExitDone = true
	c.open.ScheduledExitTime = bar.Timestamp
	if pnl, ok := c.markToMarket(ctx, bar); ok {
		c.open.ScheduledExitPnl = pnl
	}
	c.logger.Info().
		Str("trade_id", c.open.TradeID).
		Str("pnl", c.open.ScheduledExitPnl.String()).
		Msg("scheduled exit snapshot")

	if c.cfg.ScheduledExitClose {
		return c.closeTrade(ctx, bar, domain.ExitReasonScheduledExit)
	}
	return nil
}

// markToMarket values the open trade at bar time: gross premium P&L across
// all legs minus commission. Returns false when any leg has no quote.
func (c *Controller) markToMarket(ctx context.Context, bar *domain.Bar) (decimal.Decimal, bool) {
	gross := decimal.Zero
	for _, pos := range c.open.Positions {
		price, err := c.prices.GetOptionPrice(ctx, bar.Timestamp, pos.Strike, pos.Side, pos.Expiry)
		if err != nil {
			c.logger.Debug().
				Time("ts", bar.Timestamp).
				Float64("strike", pos.Strike).
				Str("side", string(pos.Side)).
				Msg("no quote for mark to market, skipping")
			return decimal.Zero, false
		}
		gross = gross.Add(pos.GrossPnl(price))
	}
	return gross.Sub(c.open.Commission), true
}

// closeTrade settles every leg, applies commission, classifies WIN/LOSS, and
// releases the trade. Legs without a quote settle at intrinsic value.
func (c *Controller) closeTrade(ctx context.Context, bar *domain.Bar, reason domain.ExitReason) *domain.Trade {
	t := c.open

	gross := decimal.Zero
	for _, pos := range t.Positions {
		exit, err := c.prices.GetOptionPrice(ctx, bar.Timestamp, pos.Strike, pos.Side, pos.Expiry)
		if err != nil {
			exit = pricing.Intrinsic(bar.Close, pos.Strike, pos.Side)
			c.logger.Warn().
				Time("ts", bar.Timestamp).
				Float64("strike", pos.Strike).
				Str("side", string(pos.Side)).
				Str("intrinsic", exit.String()).
				Msg("no exit quote, settling at intrinsic value")
		}
		pos.ExitPrice = exit
		pos.ExitTime = bar.Timestamp
		pos.Pnl = pos.GrossPnl(exit)
		gross = gross.Add(pos.Pnl)
	}

	t.GrossPnl = gross
	t.TotalPnl = gross.Sub(t.Commission)
	t.ExitReason = reason
	t.ExitTime = bar.Timestamp
	t.ExitSpot = bar.Close
	if t.TotalPnl.IsPositive() {
		t.Outcome = domain.OutcomeWin
	} else {
		t.Outcome = domain.OutcomeLoss
	}

	c.logger.Info().
		Str("trade_id", t.TradeID).
		Str("signal", string(t.SignalType)).
		Str("reason", string(reason)).
		Str("total_pnl", t.TotalPnl.String()).
		Msg("trade closed")

	c.open = nil
	c.machine = nil
	return t
}

// admit opens a trade from a triggered signal. A missing or invalid entry
// quote abandons the trade without error; the tuple is recorded for audit.
func (c *Controller) admit(ctx context.Context, bar *domain.Bar, res domain.SignalResult, capital decimal.Decimal) (*domain.Trade, error) {
	expiry := c.cfg.NextExpiry(bar.Timestamp)

	mainPrice, ok := c.resolveEntryPrice(ctx, bar, res.Strike, res.Side, expiry)
	if !ok {
		return nil, nil
	}

	var hedgeStrike float64
	var hedgePrice decimal.Decimal
	if c.cfg.HedgeEnabled {
		offset := float64(c.cfg.HedgeOffsetSteps) * c.cfg.StrikeStep
		if res.Direction == domain.DirectionBullish {
			hedgeStrike = res.Strike - offset
		} else {
			hedgeStrike = res.Strike + offset
		}
		hedgePrice, ok = c.resolveEntryPrice(ctx, bar, hedgeStrike, res.Side, expiry)
		if !ok {
			return nil, nil
		}
	}

	lots := c.sizeLots(capital, bar.Close, res.StopLoss)
	quantity := lots * c.cfg.LotSize
	commission := c.cfg.CommissionPerLot.Mul(decimal.NewFromInt(int64(lots))).Mul(decimal.NewFromInt(2))

	t := &domain.Trade{
		TradeID:       idhash.ComputeTradeID(c.runID, string(res.Type), res.EntryTime.Unix(), res.Strike),
		RunID:         c.runID,
		SignalType:    res.Type,
		Direction:     res.Direction,
		EntryTime:     res.EntryTime,
		EntrySpot:     res.EntryPrice,
		StopLossPrice: res.StopLoss,
		Outcome:       domain.OutcomeOpen,
		Commission:    commission,
		Reason:        res.Reason,
		Confidence:    res.Confidence,
		Positions: []*domain.Position{
			{
				Kind:       domain.PositionMain,
				Side:       res.Side,
				Strike:     res.Strike,
				Expiry:     expiry,
				Lots:       lots,
				Quantity:   quantity,
				EntryPrice: mainPrice,
			},
		},
	}
	if c.cfg.HedgeEnabled {
		t.Positions = append(t.Positions, &domain.Position{
			Kind:       domain.PositionHedge,
			Side:       res.Side,
			Strike:     hedgeStrike,
			Expiry:     expiry,
			Lots:       lots,
			Quantity:   quantity,
			EntryPrice: hedgePrice,
		})
	}

	c.open = t
	if c.cfg.ProgressiveSLEnabled {
		c.machine = stoploss.NewMachine(c.cfg.ProgressiveSL, lots, t.MaxProfitReceivable())
	}

	c.logger.Info().
		Str("trade_id", t.TradeID).
		Str("signal", string(t.SignalType)).
		Str("direction", string(t.Direction)).
		Float64("strike", res.Strike).
		Int("lots", lots).
		Msg("trade opened")

	return t, nil
}

// resolveEntryPrice looks up and validates one leg's entry premium.
// Failure abandons the signal: it is logged and recorded, never fatal.
func (c *Controller) resolveEntryPrice(ctx context.Context, bar *domain.Bar, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, bool) {
	price, err := c.prices.GetOptionPrice(ctx, bar.Timestamp, strike, side, expiry)
	if err != nil {
		if c.missing != nil {
			c.missing.Record(bar.Timestamp, strike, side, expiry)
		}
		observability.RecordMissingPrice()
		observability.RecordSignalAbandoned()
		c.logger.Warn().
			Time("ts", bar.Timestamp).
			Float64("strike", strike).
			Str("side", string(side)).
			Msg("no entry quote, abandoning signal")
		return decimal.Zero, false
	}

	if c.validator != nil {
		if v := c.validator.ValidatePrice(bar.Close, strike, side, price); !v.Valid {
			observability.RecordSignalAbandoned()
			c.logger.Warn().
				Time("ts", bar.Timestamp).
				Float64("strike", strike).
				Str("side", string(side)).
				Str("price", price.String()).
				Str("rejection", v.Reason).
				Msg("entry quote rejected, abandoning signal")
			return decimal.Zero, false
		}
	}

	return price, true
}

// sizeLots converts the per-trade risk budget into lots:
// floor((capital * riskPct) / (stopDistance * lotSize)), never below 1.
func (c *Controller) sizeLots(capital decimal.Decimal, spot, stopLoss float64) int {
	stopDistance := math.Abs(spot - stopLoss)
	if stopDistance == 0 || c.cfg.LotSize == 0 {
		return 1
	}
	riskBudget, _ := capital.Mul(decimal.NewFromFloat(c.cfg.RiskPerTradePct)).Float64()
	lots := int(math.Floor(riskBudget / (stopDistance * float64(c.cfg.LotSize))))
	if lots < 1 {
		lots = 1
	}
	return lots
}
