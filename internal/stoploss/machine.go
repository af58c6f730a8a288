// Package stoploss implements the progressive stop-loss stage machine: a
// per-trade, P&L-denominated stop that ratchets through four ordered stages
// as time passes or profit accrues. Stages never regress.
package stoploss

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is one of the four ordered stop-loss stages.
type Stage int

// Stages in ratchet order.
const (
	StageInitial Stage = iota
	StageHalf
	StageBreakeven
	StageProfitLock
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageInitial:
		return "INITIAL"
	case StageHalf:
		return "HALF"
	case StageBreakeven:
		return "BREAKEVEN"
	case StageProfitLock:
		return "PROFIT_LOCK"
	default:
		return "UNKNOWN"
	}
}

// Config holds the stage-machine parameters.
type Config struct {
	// PerLotAmount is the acceptable initial loss per lot.
	PerLotAmount decimal.Decimal

	// Day2Factor scales the initial stop on trading day 2 (e.g. 0.5).
	Day2Factor float64

	// Day2Hour/Day2Minute is the local time-of-day gate for the HALF stage.
	Day2Hour   int
	Day2Minute int

	// ProfitTriggerPct moves the stop to breakeven once current P&L
	// reaches this percentage of the maximum receivable profit.
	ProfitTriggerPct float64

	// DayNProfitLockPct is the percentage of maximum receivable profit
	// locked in from trading day 4 onward.
	DayNProfitLockPct float64
}

// DefaultConfig returns the standard stage parameters.
func DefaultConfig() Config {
	return Config{
		PerLotAmount:      decimal.NewFromInt(1000),
		Day2Factor:        0.5,
		Day2Hour:          13,
		Day2Minute:        0,
		ProfitTriggerPct:  60,
		DayNProfitLockPct: 30,
	}
}

// Transition records one stage advance.
type Transition struct {
	From      Stage
	To        Stage
	At        time.Time
	StopLevel decimal.Decimal
	Trigger   string
}

// Machine is the per-trade progressive stop-loss state. Owned exclusively by
// its trade and discarded with it.
type Machine struct {
	cfg       Config
	lots      int
	maxProfit decimal.Decimal

	stage     Stage
	currentSL decimal.Decimal
	history   []Transition
}

// NewMachine creates the machine in the INITIAL stage with stop level
// -(perLotAmount * lots).
func NewMachine(cfg Config, lots int, maxProfit decimal.Decimal) *Machine {
	return &Machine{
		cfg:       cfg,
		lots:      lots,
		maxProfit: maxProfit,
		stage:     StageInitial,
		currentSL: cfg.PerLotAmount.Mul(decimal.NewFromInt(int64(lots))).Abs().Neg(),
	}
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	return m.stage
}

// StopLevel returns the current stop as a P&L amount.
func (m *Machine) StopLevel() decimal.Decimal {
	return m.currentSL
}

// History returns the recorded stage transitions.
func (m *Machine) History() []Transition {
	return m.history
}

// Update advances the machine for one bar and reports whether the stop is
// hit: currentPnl <= current stop level. tradingDay is 1-indexed from the
// entry day, weekends excluded. The profit-trigger rule takes precedence
// over the time-based rules and can pre-empt them from any non-terminal
// stage.
func (m *Machine) Update(now time.Time, tradingDay int, currentPnl decimal.Decimal) bool {
	if m.stage < StageBreakeven && m.profitTriggerReached(currentPnl) {
		m.advance(StageBreakeven, decimal.Zero, now, "profit trigger")
	} else {
		switch {
		case tradingDay >= 4 && m.stage < StageProfitLock:
			lock := m.maxProfit.Mul(decimal.NewFromFloat(m.cfg.DayNProfitLockPct / 100))
			m.advance(StageProfitLock, lock, now, "trading day 4+")
		case tradingDay == 3 && m.stage < StageBreakeven:
			m.advance(StageBreakeven, decimal.Zero, now, "trading day 3")
		case tradingDay == 2 && m.stage == StageInitial && m.pastDay2Gate(now):
			half := m.currentSL.Mul(decimal.NewFromFloat(m.cfg.Day2Factor))
			m.advance(StageHalf, half, now, "trading day 2 afternoon")
		}
	}

	return currentPnl.LessThanOrEqual(m.currentSL)
}

func (m *Machine) profitTriggerReached(currentPnl decimal.Decimal) bool {
	if !m.maxProfit.IsPositive() {
		return false
	}
	threshold := m.maxProfit.Mul(decimal.NewFromFloat(m.cfg.ProfitTriggerPct / 100))
	return currentPnl.GreaterThanOrEqual(threshold)
}

func (m *Machine) pastDay2Gate(now time.Time) bool {
	h, min, _ := now.Clock()
	if h != m.cfg.Day2Hour {
		return h > m.cfg.Day2Hour
	}
	return min >= m.cfg.Day2Minute
}

func (m *Machine) advance(to Stage, level decimal.Decimal, at time.Time, trigger string) {
	m.history = append(m.history, Transition{
		From:      m.stage,
		To:        to,
		At:        at,
		StopLevel: level,
		Trigger:   trigger,
	})
	m.stage = to
	m.currentSL = level
}
