package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionKind distinguishes the sold main leg from the bought hedge leg.
type PositionKind string

// Position kind constants.
const (
	PositionMain  PositionKind = "MAIN"  // sold option, collects premium
	PositionHedge PositionKind = "HEDGE" // bought option, caps risk
)

// Position is one option leg of a trade. Premiums are money values and use
// decimal arithmetic throughout.
type Position struct {
	Kind     PositionKind
	Side     OptionSide
	Strike   float64
	Expiry   time.Time
	Lots     int
	Quantity int // lots * lot size

	EntryPrice decimal.Decimal

	// Set at close.
	ExitPrice decimal.Decimal
	ExitTime  time.Time
	Pnl       decimal.Decimal
}

// GrossPnl returns the realized leg P&L for given exit premium.
// Sold legs profit when premium decays; bought legs when it rises.
func (p *Position) GrossPnl(exit decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(p.Quantity))
	if p.Kind == PositionMain {
		return p.EntryPrice.Sub(exit).Mul(qty)
	}
	return exit.Sub(p.EntryPrice).Mul(qty)
}

// TradeOutcome is the terminal classification of a trade.
type TradeOutcome string

// Trade outcome constants. OPEN transitions to WIN or LOSS at close.
const (
	OutcomeOpen TradeOutcome = "OPEN"
	OutcomeWin  TradeOutcome = "WIN"
	OutcomeLoss TradeOutcome = "LOSS"
)

// ExitReason records why a trade closed. WIN/LOSS is the result, the reason
// is preserved separately.
type ExitReason string

// Exit reason constants.
const (
	ExitReasonStopped       ExitReason = "STOPPED"
	ExitReasonExpired       ExitReason = "EXPIRED"
	ExitReasonProgressiveSL ExitReason = "PROGRESSIVE_SL"
	ExitReasonScheduledExit ExitReason = "SCHEDULED_EXIT"
	ExitReasonPredictorExit ExitReason = "PREDICTOR_EXIT"
)

// Trade is one signal-driven options trade: a sold main leg plus an optional
// bought hedge leg. Mutated by the lifecycle controller while open, immutable
// once Outcome != OPEN.
type Trade struct {
	TradeID    string
	RunID      string
	SignalType SignalType
	Direction  Direction

	EntryTime     time.Time
	EntrySpot     float64
	StopLossPrice float64

	Positions []*Position

	Outcome    TradeOutcome
	ExitReason ExitReason
	ExitTime   time.Time
	ExitSpot   float64

	Commission decimal.Decimal
	GrossPnl   decimal.Decimal
	TotalPnl   decimal.Decimal

	// Scheduled mid-week exit bookkeeping; fires at most once.
	ScheduledExitDone bool
	ScheduledExitTime time.Time
	ScheduledExitPnl  decimal.Decimal

	Reason     string
	Confidence float64
}

// IsOpen reports whether the trade is still owned by the lifecycle controller.
func (t *Trade) IsOpen() bool {
	return t.Outcome == OutcomeOpen
}

// MainPosition returns the sold leg, or nil if absent.
func (t *Trade) MainPosition() *Position {
	for _, p := range t.Positions {
		if p.Kind == PositionMain {
			return p
		}
	}
	return nil
}

// HedgePosition returns the bought leg, or nil if the trade is unhedged.
func (t *Trade) HedgePosition() *Position {
	for _, p := range t.Positions {
		if p.Kind == PositionHedge {
			return p
		}
	}
	return nil
}

// MaxProfitReceivable is the premium captured if every sold option expires
// worthless: (main entry - hedge entry) * quantity - total commission.
func (t *Trade) MaxProfitReceivable() decimal.Decimal {
	main := t.MainPosition()
	if main == nil {
		return decimal.Zero
	}
	net := main.EntryPrice
	if hedge := t.HedgePosition(); hedge != nil {
		net = net.Sub(hedge.EntryPrice)
	}
	return net.Mul(decimal.NewFromInt(int64(main.Quantity))).Sub(t.Commission)
}
