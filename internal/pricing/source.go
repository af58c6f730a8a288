// Package pricing defines the option price lookup collaborators consumed by
// the trade lifecycle. Prices are black-box inputs: a missing quote is an
// expected, non-fatal outcome modelled as a sentinel error, never a panic.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// ErrPriceNotFound is returned when no quote exists for the requested
// strike/side/expiry at or before the requested timestamp.
var ErrPriceNotFound = errors.New("option price not found")

// OptionPriceSource resolves option premiums for a timestamp.
type OptionPriceSource interface {
	// GetOptionPrice returns the premium at or before ts.
	// Returns ErrPriceNotFound when no quote is available.
	GetOptionPrice(ctx context.Context, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error)
}

// Intrinsic returns the intrinsic option value for a spot price:
// max(0, spot-strike) for calls, max(0, strike-spot) for puts. Used as the
// exit-price fallback when no live quote exists at expiry.
func Intrinsic(spot, strike float64, side domain.OptionSide) decimal.Decimal {
	var v float64
	if side == domain.SideCall {
		v = spot - strike
	} else {
		v = strike - spot
	}
	if v < 0 {
		v = 0
	}
	return decimal.NewFromFloat(v)
}
