// Package verification checks that stored backtest runs replay
// deterministically: the same bars, quotes, and configuration must
// reproduce the stored trades field for field.
package verification

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. Spot levels and
// strikes are exchange ticks, so anything beyond it is a real divergence.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected any // stored value
	Actual   any // replayed value
}

// TradeResult contains the result of verifying a single trade.
type TradeResult struct {
	TradeID     string
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for one verified run.
type Report struct {
	RunID string

	TotalTrades     int
	MatchedTrades   int
	DivergentTrades int

	// Trade IDs present only on one side.
	MissingTrades []string // stored but not replayed
	ExtraTrades   []string // replayed but not stored

	Results []TradeResult
}

// Clean reports whether the replay reproduced the stored run exactly.
func (r *Report) Clean() bool {
	return r.DivergentTrades == 0 && len(r.MissingTrades) == 0 && len(r.ExtraTrades) == 0
}

// CompareTrades compares a stored trade against its replayed counterpart.
// Money fields compare with decimal equality, spot levels within
// FloatTolerance, times by instant.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	addString := func(field, expected, actual string) {
		if expected != actual {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}
	addFloat := func(field string, expected, actual float64) {
		if !floatEquals(expected, actual) {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}
	addTime := func(field string, expected, actual time.Time) {
		if !expected.Equal(actual) {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}
	addDecimal := func(field string, expected, actual decimal.Decimal) {
		if !expected.Equal(actual) {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected.String(), Actual: actual.String()})
		}
	}

	addString("TradeID", stored.TradeID, replayed.TradeID)
	addString("SignalType", string(stored.SignalType), string(replayed.SignalType))
	addString("Direction", string(stored.Direction), string(replayed.Direction))

	addTime("EntryTime", stored.EntryTime, replayed.EntryTime)
	addFloat("EntrySpot", stored.EntrySpot, replayed.EntrySpot)
	addFloat("StopLossPrice", stored.StopLossPrice, replayed.StopLossPrice)

	addString("Outcome", string(stored.Outcome), string(replayed.Outcome))
	addString("ExitReason", string(stored.ExitReason), string(replayed.ExitReason))
	addTime("ExitTime", stored.ExitTime, replayed.ExitTime)
	addFloat("ExitSpot", stored.ExitSpot, replayed.ExitSpot)

	addDecimal("Commission", stored.Commission, replayed.Commission)
	addDecimal("GrossPnl", stored.GrossPnl, replayed.GrossPnl)
	addDecimal("TotalPnl", stored.TotalPnl, replayed.TotalPnl)

	if len(stored.Positions) != len(replayed.Positions) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Positions",
			Expected: len(stored.Positions),
			Actual:   len(replayed.Positions),
		})
		return divergences
	}

	for _, kind := range []domain.PositionKind{domain.PositionMain, domain.PositionHedge} {
		sp := positionByKind(stored, kind)
		rp := positionByKind(replayed, kind)
		if sp == nil && rp == nil {
			continue
		}
		prefix := string(kind)
		if sp == nil || rp == nil {
			divergences = append(divergences, FieldDivergence{
				Field:    prefix,
				Expected: sp != nil,
				Actual:   rp != nil,
			})
			continue
		}
		addString(prefix+".Side", string(sp.Side), string(rp.Side))
		addFloat(prefix+".Strike", sp.Strike, rp.Strike)
		addTime(prefix+".Expiry", sp.Expiry, rp.Expiry)
		if sp.Lots != rp.Lots {
			divergences = append(divergences, FieldDivergence{Field: prefix + ".Lots", Expected: sp.Lots, Actual: rp.Lots})
		}
		addDecimal(prefix+".EntryPrice", sp.EntryPrice, rp.EntryPrice)
		addDecimal(prefix+".ExitPrice", sp.ExitPrice, rp.ExitPrice)
		addDecimal(prefix+".Pnl", sp.Pnl, rp.Pnl)
	}

	return divergences
}

func positionByKind(t *domain.Trade, kind domain.PositionKind) *domain.Position {
	for _, p := range t.Positions {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
