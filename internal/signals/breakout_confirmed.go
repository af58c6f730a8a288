package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// minDistanceUnderPrevHigh rejects S7 entries whose close sits less than
// 0.40% under the previous-week high.
const minDistanceUnderPrevHigh = 0.0040

// BreakoutConfirmed is S7: fires only on the bar where the breakout tracker
// first triggers, with a distance filter against the previous-week high and a
// strict new-weekly-high/close confirmation. Bullish.
type BreakoutConfirmed struct{}

// Type implements Evaluator.
func (s *BreakoutConfirmed) Type() domain.SignalType {
	return domain.SignalS7
}

// Evaluate implements Evaluator. Stop loss: first-hour-bar low.
func (s *BreakoutConfirmed) Evaluate(bar *domain.Bar, ctx *weekly.Context, trig triggers) domain.SignalResult {
	if !trig.breakoutFired {
		return domain.NoSignal
	}

	z := ctx.Zones
	if bar.Close < z.PrevWeekHigh {
		distance := (z.PrevWeekHigh - bar.Close) / bar.Close
		if distance < minDistanceUnderPrevHigh {
			return domain.NoSignal
		}
	}

	maxHigh, _, maxClose, _, ok := ctx.PriorExtremes()
	if !ok || bar.High <= maxHigh || bar.Close <= maxClose {
		return domain.NoSignal
	}

	fh := ctx.FirstHourBar
	reason := fmt.Sprintf("breakout confirmed: close %.2f made a new weekly high/close above %.2f/%.2f",
		bar.Close, maxHigh, maxClose)
	return triggered(domain.SignalS7, domain.DirectionBullish, fh.Low, 0.68, reason)
}

var _ Evaluator = (*BreakoutConfirmed)(nil)

// BreakdownConfirmed is S8: symmetric to S7 via the breakdown tracker,
// additionally requiring that the week touched the resistance zone at some
// point, with a new weekly-low/close confirmation. Bearish.
type BreakdownConfirmed struct{}

// Type implements Evaluator.
func (s *BreakdownConfirmed) Type() domain.SignalType {
	return domain.SignalS8
}

// Evaluate implements Evaluator. Stop loss: first-hour-bar high.
func (s *BreakdownConfirmed) Evaluate(bar *domain.Bar, ctx *weekly.Context, trig triggers) domain.SignalResult {
	if !trig.breakdownFired || !ctx.ResistanceTouched {
		return domain.NoSignal
	}

	_, minLow, _, minClose, ok := ctx.PriorExtremes()
	if !ok || bar.Low >= minLow || bar.Close >= minClose {
		return domain.NoSignal
	}

	fh := ctx.FirstHourBar
	reason := fmt.Sprintf("breakdown confirmed: close %.2f made a new weekly low/close below %.2f/%.2f after touching resistance",
		bar.Close, minLow, minClose)
	return triggered(domain.SignalS8, domain.DirectionBearish, fh.High, 0.68, reason)
}

var _ Evaluator = (*BreakdownConfirmed)(nil)
