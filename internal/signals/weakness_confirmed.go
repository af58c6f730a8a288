package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// WeaknessConfirmed is S6: structurally the second-bar branch of S3 with a
// narrower first-bar precondition — the first bar's high touched the
// resistance zone, its close stayed within the zone and at or under the
// previous-week high. Bearish.
type WeaknessConfirmed struct{}

// Type implements Evaluator.
func (s *WeaknessConfirmed) Type() domain.SignalType {
	return domain.SignalS6
}

// Evaluate implements Evaluator. Stop loss: previous-week high.
func (s *WeaknessConfirmed) Evaluate(bar *domain.Bar, ctx *weekly.Context, _ triggers) domain.SignalResult {
	if ctx.Bias != domain.BiasBearish || !ctx.IsSecondBar() {
		return domain.NoSignal
	}

	fb := ctx.FirstBar()
	z := ctx.Zones

	touched := fb.High >= z.Resistance.Bottom
	closedInZone := fb.Close >= z.Resistance.Bottom && fb.Close <= z.Resistance.Top
	underPrevHigh := fb.Close <= z.PrevWeekHigh
	confirmed := bar.Close < fb.Low
	if !touched || !closedInZone || !underPrevHigh || !confirmed {
		return domain.NoSignal
	}

	reason := fmt.Sprintf("weakness confirmed: first bar stalled inside resistance [%.2f, %.2f], second bar broke its low %.2f",
		z.Resistance.Bottom, z.Resistance.Top, fb.Low)
	return triggered(domain.SignalS6, domain.DirectionBearish, z.PrevWeekHigh, 0.64, reason)
}

var _ Evaluator = (*WeaknessConfirmed)(nil)
