package memory

import (
	"context"
	"sort"
	"sync"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// MissingPriceStore is an in-memory implementation of storage.MissingPriceStore.
type MissingPriceStore struct {
	mu   sync.RWMutex
	data map[string][]domain.MissingPrice // keyed by run_id
}

var _ storage.MissingPriceStore = (*MissingPriceStore)(nil)

// NewMissingPriceStore creates a new in-memory missing price store.
func NewMissingPriceStore() *MissingPriceStore {
	return &MissingPriceStore{
		data: make(map[string][]domain.MissingPrice),
	}
}

// InsertBulk adds multiple records for a run.
func (s *MissingPriceStore) InsertBulk(_ context.Context, runID string, records []domain.MissingPrice) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID] = append(s.data[runID], records...)
	return nil
}

// GetByRunID retrieves all records for a run, ordered by timestamp ASC.
func (s *MissingPriceStore) GetByRunID(_ context.Context, runID string) ([]domain.MissingPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MissingPrice, len(s.data[runID]))
	copy(result, s.data[runID])

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}
