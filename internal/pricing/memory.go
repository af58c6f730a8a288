package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

type quoteKey struct {
	strike float64
	side   domain.OptionSide
	expiry string
}

type quotePoint struct {
	ts    time.Time
	price decimal.Decimal
}

// MemorySource is an in-memory OptionPriceSource keyed by contract. Lookups
// resolve to the closest quote at or before the requested timestamp. Safe for
// sharing across concurrently running backtests.
type MemorySource struct {
	mu     sync.RWMutex
	quotes map[quoteKey][]quotePoint
}

// NewMemorySource creates an empty in-memory price source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		quotes: make(map[quoteKey][]quotePoint),
	}
}

// Put records a quote for a contract, keeping the series time-ordered.
func (s *MemorySource) Put(ts time.Time, strike float64, side domain.OptionSide, expiry time.Time, price decimal.Decimal) {
	key := quoteKey{strike: strike, side: side, expiry: expiry.Format("2006-01-02")}

	s.mu.Lock()
	defer s.mu.Unlock()
	series := append(s.quotes[key], quotePoint{ts: ts, price: price})
	sort.Slice(series, func(i, j int) bool {
		return series[i].ts.Before(series[j].ts)
	})
	s.quotes[key] = series
}

// GetOptionPrice implements OptionPriceSource. Finds the closest quote at or
// before ts; returns ErrPriceNotFound if the contract has no quote yet.
func (s *MemorySource) GetOptionPrice(_ context.Context, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error) {
	key := quoteKey{strike: strike, side: side, expiry: expiry.Format("2006-01-02")}

	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.quotes[key]
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].ts.After(ts) {
			return series[i].price, nil
		}
	}
	return decimal.Zero, ErrPriceNotFound
}

var _ OptionPriceSource = (*MemorySource)(nil)
