package pricing

import (
	"sort"
	"sync"
	"time"

	"weekly-options-lab/internal/domain"
)

// missingKey identifies one unresolvable instrument. The expiry is truncated
// to the date: backfill requests are batched per contract, not per bar.
type missingKey struct {
	strike float64
	side   domain.OptionSide
	expiry string
}

// MissingPriceLog collects instruments whose prices could not be resolved,
// deduplicated by (strike, side, expiry date), for later batched backfill.
// Safe for use from concurrently running backtests.
type MissingPriceLog struct {
	mu      sync.Mutex
	entries map[missingKey]domain.MissingPrice
}

// NewMissingPriceLog creates an empty log.
func NewMissingPriceLog() *MissingPriceLog {
	return &MissingPriceLog{
		entries: make(map[missingKey]domain.MissingPrice),
	}
}

// Record adds an unresolvable instrument. The first sighting per contract
// wins; later timestamps do not overwrite it.
func (l *MissingPriceLog) Record(ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) {
	key := missingKey{strike: strike, side: side, expiry: expiry.Format("2006-01-02")}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.entries[key]; seen {
		return
	}
	l.entries[key] = domain.MissingPrice{
		Timestamp: ts,
		Strike:    strike,
		Side:      side,
		Expiry:    expiry,
	}
}

// Len returns the number of distinct missing instruments.
func (l *MissingPriceLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns the recorded instruments ordered by expiry, strike, side.
func (l *MissingPriceLog) Snapshot() []domain.MissingPrice {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.MissingPrice, 0, len(l.entries))
	for _, mp := range l.entries {
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Expiry.Equal(out[j].Expiry) {
			return out[i].Expiry.Before(out[j].Expiry)
		}
		if out[i].Strike != out[j].Strike {
			return out[i].Strike < out[j].Strike
		}
		return out[i].Side < out[j].Side
	})
	return out
}
