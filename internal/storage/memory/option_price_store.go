package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// OptionPriceStore is an in-memory implementation of storage.OptionPriceStore.
type OptionPriceStore struct {
	mu   sync.RWMutex
	data map[string][]*storage.OptionQuote // keyed by contract, sorted by timestamp ASC
}

var _ storage.OptionPriceStore = (*OptionPriceStore)(nil)

// NewOptionPriceStore creates a new in-memory option price store.
func NewOptionPriceStore() *OptionPriceStore {
	return &OptionPriceStore{
		data: make(map[string][]*storage.OptionQuote),
	}
}

// contractKey identifies one option contract.
func contractKey(symbol string, strike float64, side domain.OptionSide, expiry time.Time) string {
	return fmt.Sprintf("%s|%g|%s|%d", symbol, strike, side, expiry.Unix())
}

// InsertBulk adds multiple quotes. Fails entire batch on duplicate
// (symbol, strike, side, expiry, timestamp).
func (s *OptionPriceStore) InsertBulk(_ context.Context, quotes []*storage.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if q == nil || q.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := contractKey(q.Symbol, q.Strike, q.Side, q.Expiry) + fmt.Sprintf("|%d", q.Timestamp.Unix())
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: quote %s", storage.ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}
		for _, existing := range s.data[contractKey(q.Symbol, q.Strike, q.Side, q.Expiry)] {
			if existing.Timestamp.Equal(q.Timestamp) {
				return fmt.Errorf("%w: quote %s", storage.ErrDuplicateKey, key)
			}
		}
	}

	for _, q := range quotes {
		key := contractKey(q.Symbol, q.Strike, q.Side, q.Expiry)
		cp := *q
		s.data[key] = append(s.data[key], &cp)
	}
	for key := range s.data {
		series := s.data[key]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
	}
	return nil
}

// GetPriceAt retrieves the premium quoted at or immediately before ts.
func (s *OptionPriceStore) GetPriceAt(_ context.Context, symbol string, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[contractKey(symbol, strike, side, expiry)]
	if len(series) == 0 {
		return decimal.Zero, storage.ErrNotFound
	}

	// Latest quote at or before ts.
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(ts)
	})
	if idx == 0 {
		return decimal.Zero, storage.ErrNotFound
	}
	return series[idx-1].Price, nil
}
