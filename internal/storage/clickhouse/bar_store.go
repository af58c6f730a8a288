package clickhouse

import (
	"context"
	"fmt"
	"time"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
//
// DateTime64 columns come back in UTC regardless of the location the bars
// were inserted with, so the store carries the exchange location and restores
// it on every read. Week- and day-boundary logic downstream depends on wall
// clock time in the exchange zone.
type BarStore struct {
	conn *Conn
	loc  *time.Location
}

// NewBarStore creates a new BarStore. loc is the exchange timezone applied to
// all timestamps read back from ClickHouse; nil defaults to UTC.
func NewBarStore(conn *Conn, loc *time.Location) *BarStore {
	if loc == nil {
		loc = time.UTC
	}
	return &BarStore{conn: conn, loc: loc}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp).
func (s *BarStore) InsertBulk(ctx context.Context, symbol string, bars []*domain.Bar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "bars_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{})
	for _, b := range bars {
		k := b.Timestamp.Unix()
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, symbol, b.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, ts, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves bars for a symbol within [from, to] (inclusive),
// ordered by timestamp ASC.
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, from, to time.Time) (_ []*domain.Bar, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "bars_range", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	var bars []*domain.Bar
	for rows.Next() {
		var b domain.Bar
		var ts time.Time
		err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Timestamp = ts.In(s.loc)
		bars = append(bars, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}

// GetLatestTimestamp returns the newest stored bar timestamp for a symbol.
func (s *BarStore) GetLatestTimestamp(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT max(ts), count(*) FROM bars
		WHERE symbol = ?
	`

	var ts time.Time
	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol).Scan(&ts, &count)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest timestamp: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return ts.In(s.loc), nil
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, ts time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE symbol = ? AND ts = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, ts).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
