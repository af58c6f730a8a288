package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/storage"
)

// OptionPriceStore implements storage.OptionPriceStore using ClickHouse.
type OptionPriceStore struct {
	conn *Conn
	loc  *time.Location
}

// NewOptionPriceStore creates a new OptionPriceStore. loc is the exchange
// timezone applied to timestamps read back from ClickHouse; nil defaults to UTC.
func NewOptionPriceStore(conn *Conn, loc *time.Location) *OptionPriceStore {
	if loc == nil {
		loc = time.UTC
	}
	return &OptionPriceStore{conn: conn, loc: loc}
}

// Compile-time interface check.
var _ storage.OptionPriceStore = (*OptionPriceStore)(nil)

// InsertBulk adds multiple quotes. Fails entire batch on duplicate
// (symbol, strike, side, expiry, timestamp).
func (s *OptionPriceStore) InsertBulk(ctx context.Context, quotes []*storage.OptionQuote) (err error) {
	if len(quotes) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "quotes_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		strike float64
		side   domain.OptionSide
		expiry int64
		ts     int64
	}
	seen := make(map[key]struct{})
	for _, q := range quotes {
		k := key{q.Symbol, q.Strike, q.Side, q.Expiry.Unix(), q.Timestamp.Unix()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, q := range quotes {
		exists, err := s.exists(ctx, q)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO option_quotes (
			symbol, ts, strike, side, expiry, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, q := range quotes {
		err = batch.Append(
			q.Symbol, q.Timestamp, q.Strike, string(q.Side), q.Expiry, q.Price,
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

// GetPriceAt retrieves the premium quoted at or immediately before ts for a
// contract. Returns ErrNotFound when no quote exists.
func (s *OptionPriceStore) GetPriceAt(ctx context.Context, symbol string, ts time.Time, strike float64, side domain.OptionSide, expiry time.Time) (decimal.Decimal, error) {
	query := `
		SELECT price FROM option_quotes
		WHERE symbol = ? AND strike = ? AND side = ? AND expiry = ? AND ts <= ?
		ORDER BY ts DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, symbol, strike, string(side), expiry, ts)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query price at: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return decimal.Zero, fmt.Errorf("iterate price rows: %w", err)
		}
		return decimal.Zero, storage.ErrNotFound
	}

	var price decimal.Decimal
	if err := rows.Scan(&price); err != nil {
		return decimal.Zero, fmt.Errorf("scan price row: %w", err)
	}
	return price, nil
}

// GetByContract retrieves all quotes for a contract, ordered by timestamp ASC.
func (s *OptionPriceStore) GetByContract(ctx context.Context, symbol string, strike float64, side domain.OptionSide, expiry time.Time) ([]*storage.OptionQuote, error) {
	query := `
		SELECT symbol, ts, strike, side, expiry, price
		FROM option_quotes
		WHERE symbol = ? AND strike = ? AND side = ? AND expiry = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, strike, string(side), expiry)
	if err != nil {
		return nil, fmt.Errorf("query by contract: %w", err)
	}
	defer rows.Close()

	var quotes []*storage.OptionQuote
	for rows.Next() {
		var q storage.OptionQuote
		var side string
		var ts, exp time.Time
		err := rows.Scan(&q.Symbol, &ts, &q.Strike, &side, &exp, &q.Price)
		if err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		q.Timestamp = ts.In(s.loc)
		q.Expiry = exp.In(s.loc)
		q.Side = domain.OptionSide(side)
		quotes = append(quotes, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote rows: %w", err)
	}

	return quotes, nil
}

// exists checks if a quote with the given key exists.
func (s *OptionPriceStore) exists(ctx context.Context, q *storage.OptionQuote) (bool, error) {
	query := `
		SELECT count(*) FROM option_quotes
		WHERE symbol = ? AND strike = ? AND side = ? AND expiry = ? AND ts = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, q.Symbol, q.Strike, string(q.Side), q.Expiry, q.Timestamp).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
