package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// ResistanceHold is S3: with a bearish bias, either a second-bar rejection
// after touching the resistance zone, or a later breakdown below all prior
// weekly lows and closes and below the resistance-zone bottom. Bearish.
type ResistanceHold struct{}

// Type implements Evaluator.
func (s *ResistanceHold) Type() domain.SignalType {
	return domain.SignalS3
}

// Evaluate implements Evaluator. Stop loss: previous-week high.
func (s *ResistanceHold) Evaluate(bar *domain.Bar, ctx *weekly.Context, _ triggers) domain.SignalResult {
	if ctx.Bias != domain.BiasBearish {
		return domain.NoSignal
	}

	z := ctx.Zones

	if ctx.IsSecondBar() {
		fb := ctx.FirstBar()
		touched := fb.High >= z.Resistance.Bottom
		rejected := fb.Close < z.Resistance.Bottom
		if touched && rejected && bar.Close < fb.Close {
			reason := fmt.Sprintf("resistance hold: first bar touched %.2f and was rejected, second bar closed below %.2f",
				z.Resistance.Bottom, fb.Close)
			return triggered(domain.SignalS3, domain.DirectionBearish, z.PrevWeekHigh, 0.66, reason)
		}
		return domain.NoSignal
	}

	_, minLow, _, minClose, ok := ctx.PriorExtremes()
	if !ok {
		return domain.NoSignal
	}
	if bar.Close < minLow && bar.Close < minClose && bar.Close < z.Resistance.Bottom {
		reason := fmt.Sprintf("resistance hold: close %.2f broke below weekly low %.2f and close %.2f under resistance",
			bar.Close, minLow, minClose)
		return triggered(domain.SignalS3, domain.DirectionBearish, z.PrevWeekHigh, 0.64, reason)
	}
	return domain.NoSignal
}

var _ Evaluator = (*ResistanceHold)(nil)
