package signals

import (
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/weekly"
)

// SupportHold is S2: with a bullish bias, the first bar opened near the
// previous week's close, dipped into the support area and held above it, and
// the second bar confirmed. Bullish.
type SupportHold struct{}

// Type implements Evaluator.
func (s *SupportHold) Type() domain.SignalType {
	return domain.SignalS2
}

// Evaluate implements Evaluator. Fires only on the week's second bar with
// bias BULLISH; all seven margin-aware proximity/ordering conditions must
// hold. Stop loss: support-zone bottom.
func (s *SupportHold) Evaluate(bar *domain.Bar, ctx *weekly.Context, _ triggers) domain.SignalResult {
	if !ctx.IsSecondBar() || ctx.Bias != domain.BiasBullish {
		return domain.NoSignal
	}

	fb := ctx.FirstBar()
	z := ctx.Zones

	conditions := []bool{
		fb.Low >= z.Support.Bottom-z.SupportMargin,  // held inside the margin band
		fb.Low <= z.Support.Top+z.SupportMargin,     // actually reached the support area
		fb.Close > z.Support.Top,                    // closed back above the zone
		fb.Close >= z.PrevWeekClose-z.SupportMargin, // no deep gap under prev close
		fb.Open <= z.PrevWeekClose+z.SupportMargin,  // opened near prev close
		bar.Close > fb.Low,                          // second bar holds the first low
		bar.Close >= z.Support.Top,                  // and stays above support
	}
	for _, ok := range conditions {
		if !ok {
			return domain.NoSignal
		}
	}

	reason := fmt.Sprintf("support hold: bullish week held support zone [%.2f, %.2f] within margin %.2f",
		z.Support.Bottom, z.Support.Top, z.SupportMargin)
	return triggered(domain.SignalS2, domain.DirectionBullish, z.Support.Bottom, 0.66, reason)
}

var _ Evaluator = (*SupportHold)(nil)
