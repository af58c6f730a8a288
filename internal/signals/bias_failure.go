package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// BiasFailureBullish is S4: the bias said BEARISH but the week gapped open
// above the resistance-zone top, and the breakout tracker confirmed the first
// qualifying close above the first-hour high. Bullish, fires once per week.
type BiasFailureBullish struct{}

// Type implements Evaluator.
func (s *BiasFailureBullish) Type() domain.SignalType {
	return domain.SignalS4
}

// Evaluate implements Evaluator. Stop loss: first-hour-bar low.
func (s *BiasFailureBullish) Evaluate(_ *domain.Bar, ctx *weekly.Context, trig triggers) domain.SignalResult {
	if ctx.Bias != domain.BiasBearish || !trig.breakoutFired {
		return domain.NoSignal
	}

	fh := ctx.FirstHourBar
	z := ctx.Zones
	if fh.Open <= z.Resistance.Top {
		return domain.NoSignal
	}

	reason := fmt.Sprintf("bias failure: bearish week gapped open %.2f above resistance top %.2f and broke the first-hour high %.2f",
		fh.Open, z.Resistance.Top, fh.High)
	return triggered(domain.SignalS4, domain.DirectionBullish, fh.Low, 0.62, reason)
}

var _ Evaluator = (*BiasFailureBullish)(nil)

// BiasFailureBearish is S5: the bias said BULLISH but the week gapped below
// the support-zone bottom, the first-hour bar also closed below it and below
// the previous-week low, and the current bar broke the first-hour low.
type BiasFailureBearish struct{}

// Type implements Evaluator.
func (s *BiasFailureBearish) Type() domain.SignalType {
	return domain.SignalS5
}

// Evaluate implements Evaluator. Stop loss: first-hour-bar high.
func (s *BiasFailureBearish) Evaluate(bar *domain.Bar, ctx *weekly.Context, _ triggers) domain.SignalResult {
	if ctx.Bias != domain.BiasBullish || len(ctx.Bars) < 2 {
		return domain.NoSignal
	}

	fh := ctx.FirstHourBar
	z := ctx.Zones

	gappedBelow := fh.Open < z.Support.Bottom
	closedBelow := fh.Close < z.Support.Bottom && fh.Close < z.PrevWeekLow
	brokeFirstHour := bar.Close < fh.Low
	if !gappedBelow || !closedBelow || !brokeFirstHour {
		return domain.NoSignal
	}

	reason := fmt.Sprintf("bias failure: bullish week gapped open %.2f below support bottom %.2f and broke the first-hour low %.2f",
		fh.Open, z.Support.Bottom, fh.Low)
	return triggered(domain.SignalS5, domain.DirectionBearish, fh.High, 0.62, reason)
}

var _ Evaluator = (*BiasFailureBearish)(nil)
