// Package memory holds in-memory implementations of the storage interfaces,
// used in tests and for single-process runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*symbolBars // keyed by symbol
}

type symbolBars struct {
	bars map[int64]*domain.Bar // keyed by unix timestamp
}

var _ storage.BarStore = (*BarStore)(nil)

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*symbolBars),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp).
func (s *BarStore) InsertBulk(_ context.Context, symbol string, bars []*domain.Bar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sym := s.data[symbol]
	if sym == nil {
		sym = &symbolBars{bars: make(map[int64]*domain.Bar)}
		s.data[symbol] = sym
	}

	// First pass: check existing and intra-batch duplicates.
	batchKeys := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		key := b.Timestamp.Unix()
		if _, exists := sym.bars[key]; exists {
			return fmt.Errorf("%w: bar %s %s", storage.ErrDuplicateKey, symbol, b.Timestamp)
		}
		if _, exists := batchKeys[key]; exists {
			return fmt.Errorf("%w: bar %s %s", storage.ErrDuplicateKey, symbol, b.Timestamp)
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all.
	for _, b := range bars {
		cp := *b
		sym.bars[b.Timestamp.Unix()] = &cp
	}
	return nil
}

// GetByTimeRange retrieves bars within [from, to] inclusive, timestamp ASC.
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, from, to time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sym := s.data[symbol]
	if sym == nil {
		return nil, nil
	}

	var result []*domain.Bar
	for _, b := range sym.bars {
		if b.Timestamp.Before(from) || b.Timestamp.After(to) {
			continue
		}
		cp := *b
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// GetLatestTimestamp returns the newest stored bar timestamp for a symbol.
func (s *BarStore) GetLatestTimestamp(_ context.Context, symbol string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sym := s.data[symbol]
	if sym == nil || len(sym.bars) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var latest time.Time
	for _, b := range sym.bars {
		if b.Timestamp.After(latest) {
			latest = b.Timestamp
		}
	}
	return latest, nil
}
