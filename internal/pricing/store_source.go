package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// StoreSource adapts an OptionPriceStore to the lifecycle's price lookup
// contract, translating the storage not-found sentinel.
type StoreSource struct {
	store  storage.OptionPriceStore
	symbol string
}

var _ OptionPriceSource = (*StoreSource)(nil)

// NewStoreSource creates a price source reading one symbol's quotes.
func NewStoreSource(store storage.OptionPriceStore, symbol string) *StoreSource {
	return &StoreSource{store: store, symbol: symbol}
}

// GetOptionPrice implements OptionPriceSource.
func (s *StoreSource) GetOptionPrice(ctx context.Context, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error) {
	price, err := s.store.GetPriceAt(ctx, s.symbol, ts, strike, side, expiry)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, ErrPriceNotFound
		}
		return decimal.Zero, fmt.Errorf("get option price: %w", err)
	}
	return price, nil
}
