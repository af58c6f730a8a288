package lifecycle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/stoploss"
)

// Config holds the lifecycle parameters for one backtest run.
type Config struct {
	// RiskPerTradePct sizes positions as a fraction of capital risked per
	// trade (e.g. 0.02 = 2%).
	RiskPerTradePct float64

	// LotSize is the exchange-fixed option lot quantity.
	LotSize int

	// CommissionPerLot is charged per lot per round trip leg (x2 at close).
	CommissionPerLot decimal.Decimal

	// StrikeStep is the exchange strike increment.
	StrikeStep float64

	// HedgeEnabled buys a protective option HedgeOffsetSteps strikes away
	// from the sold strike.
	HedgeEnabled     bool
	HedgeOffsetSteps int

	// Scheduled mid-week exit: fires at most once per trade, records the
	// P&L snapshot, and closes the trade only when ScheduledExitClose is set.
	ScheduledExitEnabled bool
	ScheduledExitClose   bool
	ScheduledExitWeekday time.Weekday
	ScheduledExitHour    int
	ScheduledExitMinute  int

	// Weekly expiry.
	ExpiryWeekday time.Weekday
	ExpiryHour    int
	ExpiryMinute  int

	// Progressive stop loss.
	ProgressiveSLEnabled bool
	ProgressiveSL        stoploss.Config

	// PredictorExitConfidence acts on an EXIT recommendation at or above
	// this confidence; zero disables predictor-driven exits.
	PredictorExitConfidence float64
}

// DefaultConfig returns the standard lifecycle parameters for NIFTY weekly
// options.
func DefaultConfig() Config {
	return Config{
		RiskPerTradePct:      0.02,
		LotSize:              75,
		CommissionPerLot:     decimal.NewFromInt(40),
		StrikeStep:           50,
		HedgeEnabled:         true,
		HedgeOffsetSteps:     4,
		ScheduledExitEnabled: true,
		ScheduledExitWeekday: time.Wednesday,
		ScheduledExitHour:    13,
		ScheduledExitMinute:  15,
		ExpiryWeekday:        time.Thursday,
		ExpiryHour:           15,
		ExpiryMinute:         30,
		ProgressiveSLEnabled: true,
		ProgressiveSL:        stoploss.DefaultConfig(),
	}
}

// Fingerprint returns a stable textual digest of the sizing-relevant
// parameters, used in run ID derivation.
func (c Config) Fingerprint() string {
	return fmt.Sprintf("risk=%g,lot=%d,comm=%s,step=%g,hedge=%t/%d,psl=%t",
		c.RiskPerTradePct, c.LotSize, c.CommissionPerLot.String(), c.StrikeStep,
		c.HedgeEnabled, c.HedgeOffsetSteps, c.ProgressiveSLEnabled)
}

// NextExpiry returns the first weekly expiry strictly after t.
func (c Config) NextExpiry(t time.Time) time.Time {
	days := (int(c.ExpiryWeekday) - int(t.Weekday()) + 7) % 7
	candidate := time.Date(t.Year(), t.Month(), t.Day()+days,
		c.ExpiryHour, c.ExpiryMinute, 0, 0, t.Location())
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
