package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// BearTrap is S1: the week's first bar opened above the support-zone bottom
// but closed below it (fake breakdown), and the second bar's close recovered
// above the first bar's low. Bullish.
type BearTrap struct{}

// Type implements Evaluator.
func (s *BearTrap) Type() domain.SignalType {
	return domain.SignalS1
}

// Evaluate implements Evaluator. Fires only on the week's second bar.
// Stop loss: first-bar low minus the first-bar body size.
func (s *BearTrap) Evaluate(bar *domain.Bar, ctx *weekly.Context, _ triggers) domain.SignalResult {
	if !ctx.IsSecondBar() {
		return domain.NoSignal
	}

	fb := ctx.FirstBar()
	z := ctx.Zones

	fakeBreakdown := fb.Open > z.Support.Bottom && fb.Close < z.Support.Bottom
	recovered := bar.Close > fb.Low
	if !fakeBreakdown || !recovered {
		return domain.NoSignal
	}

	stopLoss := fb.Low - fb.BodySize()
	reason := fmt.Sprintf("bear trap: first bar broke support %.2f and closed %.2f below it, second bar recovered above %.2f",
		z.Support.Bottom, fb.Close, fb.Low)
	return triggered(domain.SignalS1, domain.DirectionBullish, stopLoss, 0.72, reason)
}

var _ Evaluator = (*BearTrap)(nil)
