package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// Report is the renderable summary of one completed backtest run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Status      domain.RunStatus
	Error       string

	RangeFrom time.Time
	RangeTo   time.Time

	InitialCapital decimal.Decimal

	// Run Summary
	Summary SummarySection

	// Per-signal breakdown (sorted by signal priority order)
	Signals []SignalRow

	// Trade list (sorted by entry time)
	Trades []TradeRow

	// Weeks skipped because zones could not be established.
	SkippedWeeks []time.Time

	// Unresolved option quotes recorded during the run.
	MissingPrices []MissingPriceRow
}

// SummarySection holds the aggregate figures of a run.
type SummarySection struct {
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
}

// SignalRow is one row in the per-signal breakdown table.
type SignalRow struct {
	Signal   domain.SignalType
	Trades   int
	Wins     int
	Losses   int
	WinRate  float64
	TotalPnl decimal.Decimal
}

// TradeRow is one row in the trade list table.
type TradeRow struct {
	TradeID    string
	Signal     domain.SignalType
	Direction  domain.Direction
	EntryTime  time.Time
	ExitTime   time.Time
	EntrySpot  float64
	ExitSpot   float64
	Strike     float64
	Side       domain.OptionSide
	Hedged     bool
	Outcome    domain.TradeOutcome
	ExitReason domain.ExitReason
	TotalPnl   decimal.Decimal
}

// MissingPriceRow is one unresolved-quote audit record.
type MissingPriceRow struct {
	Timestamp time.Time
	Strike    float64
	Side      domain.OptionSide
	Expiry    time.Time
}
