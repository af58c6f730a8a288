package postgres

import (
	"context"
	"fmt"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// MissingPriceStore implements storage.MissingPriceStore using PostgreSQL.
type MissingPriceStore struct {
	pool *Pool
}

// NewMissingPriceStore creates a new MissingPriceStore.
func NewMissingPriceStore(pool *Pool) *MissingPriceStore {
	return &MissingPriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MissingPriceStore = (*MissingPriceStore)(nil)

// InsertBulk adds multiple records for a run.
func (s *MissingPriceStore) InsertBulk(ctx context.Context, runID string, records []domain.MissingPrice) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO missing_prices (run_id, ts, strike, side, expiry)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, r := range records {
		if _, err := tx.Exec(ctx, query, runID, r.Timestamp, r.Strike, string(r.Side), r.Expiry); err != nil {
			return fmt.Errorf("insert missing price: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all records for a run, ordered by timestamp ASC.
func (s *MissingPriceStore) GetByRunID(ctx context.Context, runID string) ([]domain.MissingPrice, error) {
	query := `
		SELECT ts, strike, side, expiry
		FROM missing_prices
		WHERE run_id = $1
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get missing prices by run id: %w", err)
	}
	defer rows.Close()

	var records []domain.MissingPrice
	for rows.Next() {
		var (
			r    domain.MissingPrice
			side string
		)
		if err := rows.Scan(&r.Timestamp, &r.Strike, &side, &r.Expiry); err != nil {
			return nil, fmt.Errorf("scan missing price: %w", err)
		}
		r.Side = domain.OptionSide(side)
		records = append(records, r)
	}
	return records, rows.Err()
}
