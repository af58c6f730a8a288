package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the terminal status of a backtest run.
type RunStatus string

// Run status constants.
const (
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// DailyResult is the per-calendar-day capital snapshot accrued by the driver.
type DailyResult struct {
	RunID        string
	Date         time.Time // midnight, exchange timezone
	OpenCapital  decimal.Decimal
	CloseCapital decimal.Decimal
	Pnl          decimal.Decimal
	TradesOpened int
	TradesClosed int
	BarsSeen     int
}

// RunStatistics are the aggregate figures computed over a completed run.
type RunStatistics struct {
	FinalCapital decimal.Decimal
	TotalPnl     decimal.Decimal

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalReturnPct      float64
	AnnualizedReturnPct float64

	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64

	SharpeRatio  float64
	SortinoRatio float64

	MaxConsecutiveLosses int

	// Per-signal trade counts and P&L.
	BySignal map[SignalType]*SignalStatistics
}

// SignalStatistics break run results down by signal type.
type SignalStatistics struct {
	Trades   int
	Wins     int
	Losses   int
	TotalPnl decimal.Decimal
}

// RunResult is the full output of one backtest run. A run always completes
// with a status; on FAILED the partial records accumulated so far are kept.
type RunResult struct {
	RunID  string
	Status RunStatus
	Error  string

	StartedAt  time.Time
	FinishedAt time.Time
	RangeFrom  time.Time
	RangeTo    time.Time

	InitialCapital decimal.Decimal

	Statistics *RunStatistics

	Trades []*Trade
	Daily  []*DailyResult

	// Weeks skipped because zones could not be established.
	SkippedWeeks []time.Time
}

// MissingPrice records an option quote that could not be resolved, keyed for
// later batched backfill.
type MissingPrice struct {
	Timestamp time.Time
	Strike    float64
	Side      OptionSide
	Expiry    time.Time
}
