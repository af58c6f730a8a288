package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// DailyResultStore is an in-memory implementation of storage.DailyResultStore.
type DailyResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyResult // keyed by run_id|date
}

var _ storage.DailyResultStore = (*DailyResultStore)(nil)

// NewDailyResultStore creates a new in-memory daily result store.
func NewDailyResultStore() *DailyResultStore {
	return &DailyResultStore{
		data: make(map[string]*domain.DailyResult),
	}
}

func dailyKey(runID string, d *domain.DailyResult) string {
	return fmt.Sprintf("%s|%s", runID, d.Date.Format("2006-01-02"))
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
func (s *DailyResultStore) InsertBulk(_ context.Context, results []*domain.DailyResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(results))
	for _, d := range results {
		if d == nil || d.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := dailyKey(d.RunID, d)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, d := range results {
		cp := *d
		s.data[dailyKey(d.RunID, d)] = &cp
	}
	return nil
}

// GetByRunID retrieves all snapshots for a run, ordered by date ASC.
func (s *DailyResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.DailyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyResult
	for _, d := range s.data {
		if d.RunID == runID {
			cp := *d
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}
