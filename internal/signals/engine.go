// Package signals evaluates the eight weekly index-options signals against
// the live weekly context. Evaluation order is a strategy design decision:
// fixed priority S1 through S8, first hit wins, at most one signal per week.
package signals

import (
	"math"
	"time"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// triggers carries the per-bar outcome of the stateful breakout/breakdown
// trackers, computed exactly once per bar before the evaluator chain runs.
type triggers struct {
	breakoutFired  bool
	breakdownFired bool
}

// Evaluator is the common contract the eight signal evaluators share.
type Evaluator interface {
	// Type returns the signal identifier.
	Type() domain.SignalType

	// Evaluate checks the evaluator's preconditions against the completed
	// bar and the already-updated weekly context. Returns the no-signal
	// zero value when preconditions do not hold.
	Evaluate(bar *domain.Bar, ctx *weekly.Context, trig triggers) domain.SignalResult
}

// Engine runs the fixed-priority evaluator chain.
type Engine struct {
	strikeStep float64
	evaluators []Evaluator
}

// NewEngine creates the engine with the canonical S1..S8 evaluator order.
// strikeStep is the exchange strike increment used for strike rounding.
func NewEngine(strikeStep float64) *Engine {
	return &Engine{
		strikeStep: strikeStep,
		evaluators: []Evaluator{
			&BearTrap{},
			&SupportHold{},
			&ResistanceHold{},
			&BiasFailureBullish{},
			&BiasFailureBearish{},
			&WeaknessConfirmed{},
			&BreakoutConfirmed{},
			&BreakdownConfirmed{},
		},
	}
}

// Evaluate must be called exactly once per completed hourly bar, after the
// context has been updated with that bar. Its only observable side effect
// besides the return value is latching the context's one-signal-per-week
// flag on a trigger.
func (e *Engine) Evaluate(bar *domain.Bar, ctx *weekly.Context, closeTime time.Time) domain.SignalResult {
	if bar == nil || ctx == nil || ctx.Zones == nil {
		return domain.NoSignal
	}
	if ctx.SignalTriggered {
		return domain.NoSignal
	}

	trig := applyTrackers(bar, ctx)

	for _, ev := range e.evaluators {
		res := ev.Evaluate(bar, ctx, trig)
		if !res.Triggered {
			continue
		}
		res.EntryTime = closeTime
		res.EntryPrice = bar.Close
		res.Side = domain.SideForDirection(res.Direction)
		res.Strike = RoundStrike(res.StopLoss, e.strikeStep, res.Direction)
		ctx.MarkTriggered(res.Type, closeTime)
		return res
	}
	return domain.NoSignal
}

// RoundStrike rounds a stop-loss price to the nearest exchange strike,
// directionally: down for bullish (PUT-selling) signals, up for bearish
// (CALL-selling) signals.
func RoundStrike(price, step float64, dir domain.Direction) float64 {
	if step <= 0 {
		return price
	}
	if dir == domain.DirectionBullish {
		return math.Floor(price/step) * step
	}
	return math.Ceil(price/step) * step
}

// triggered fills the evaluator-owned fields of a signal result.
func triggered(typ domain.SignalType, dir domain.Direction, stopLoss, confidence float64, reason string) domain.SignalResult {
	return domain.SignalResult{
		Triggered:  true,
		Type:       typ,
		Direction:  dir,
		StopLoss:   stopLoss,
		Confidence: confidence,
		Reason:     reason,
	}
}
