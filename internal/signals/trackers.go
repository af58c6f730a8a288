package signals

import (
	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// applyTrackers advances the two one-shot breakout/breakdown trackers with
// the current bar. Must run exactly once per bar; the candidate records and
// fired latches live on the weekly context and reset at the week boundary.
func applyTrackers(bar *domain.Bar, ctx *weekly.Context) triggers {
	return triggers{
		breakoutFired:  advanceBreakout(bar, ctx),
		breakdownFired: advanceBreakdown(bar, ctx),
	}
}

// advanceBreakout tracks closes above the first-hour high.
//
// Same calendar day as the first-hour bar: any close above the first-hour
// high fires immediately. Later days: first find a candidate bar (bullish
// body, close above the first-hour high, high above all prior weekly highs),
// record its high, then fire the first time a later close surpasses it.
func advanceBreakout(bar *domain.Bar, ctx *weekly.Context) bool {
	fh := ctx.FirstHourBar
	if fh == nil || bar == fh || ctx.S4BreakoutFired {
		return false
	}

	if weekly.SameDay(bar.Timestamp, fh.Timestamp) {
		if bar.Close > fh.High {
			ctx.S4BreakoutFired = true
			return true
		}
		return false
	}

	if ctx.S4BreakoutCandleHigh == nil {
		maxHigh, _, _, _, ok := ctx.PriorExtremes()
		if ok && bar.IsBullish() && bar.Close > fh.High && bar.High > maxHigh {
			high := bar.High
			ctx.S4BreakoutCandleHigh = &high
		}
		return false
	}

	if bar.Close > *ctx.S4BreakoutCandleHigh {
		ctx.S4BreakoutFired = true
		return true
	}
	return false
}

// advanceBreakdown is the symmetric tracker for closes below the first-hour
// low, recording the candidate bar's low.
func advanceBreakdown(bar *domain.Bar, ctx *weekly.Context) bool {
	fh := ctx.FirstHourBar
	if fh == nil || bar == fh || ctx.S8BreakdownFired {
		return false
	}

	if weekly.SameDay(bar.Timestamp, fh.Timestamp) {
		if bar.Close < fh.Low {
			ctx.S8BreakdownFired = true
			return true
		}
		return false
	}

	if ctx.S8BreakdownCandleLow == nil {
		_, minLow, _, _, ok := ctx.PriorExtremes()
		if ok && bar.IsBearish() && bar.Close < fh.Low && bar.Low < minLow {
			low := bar.Low
			ctx.S8BreakdownCandleLow = &low
		}
		return false
	}

	if bar.Close < *ctx.S8BreakdownCandleLow {
		ctx.S8BreakdownFired = true
		return true
	}
	return false
}
