package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// Validation is the advisory verdict on a quoted premium. An invalid price
// aborts only the specific trade-open attempt.
type Validation struct {
	Valid  bool
	Reason string
}

// PriceValidator sanity-checks quoted premiums before a trade opens.
type PriceValidator interface {
	ValidatePrice(spot float64, strike float64, side domain.OptionSide, price decimal.Decimal) Validation
}

// Greeks are the advisory option sensitivities.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// GreeksCalculator computes option greeks. Advisory only; the core never
// depends on it succeeding.
type GreeksCalculator interface {
	CalculateGreeks(ctx context.Context, ts time.Time, spot, strike float64, side domain.OptionSide, expiry time.Time) (Greeks, error)
}

// RangeValidator rejects premiums that are non-positive, below intrinsic
// value, or implausibly large relative to spot.
type RangeValidator struct {
	// MaxPremiumPctOfSpot caps the premium as a fraction of spot
	// (default 0.20).
	MaxPremiumPctOfSpot float64
}

// NewRangeValidator creates a RangeValidator with the default cap.
func NewRangeValidator() *RangeValidator {
	return &RangeValidator{MaxPremiumPctOfSpot: 0.20}
}

// ValidatePrice implements PriceValidator.
func (v *RangeValidator) ValidatePrice(spot float64, strike float64, side domain.OptionSide, price decimal.Decimal) Validation {
	if !price.IsPositive() {
		return Validation{Valid: false, Reason: "premium must be positive"}
	}
	if price.LessThan(Intrinsic(spot, strike, side)) {
		return Validation{Valid: false, Reason: "premium below intrinsic value"}
	}
	cap := decimal.NewFromFloat(spot * v.MaxPremiumPctOfSpot)
	if price.GreaterThan(cap) {
		return Validation{Valid: false, Reason: "premium implausibly large for spot"}
	}
	return Validation{Valid: true}
}

var _ PriceValidator = (*RangeValidator)(nil)
