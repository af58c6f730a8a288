package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// DailyResultStore implements storage.DailyResultStore using PostgreSQL.
type DailyResultStore struct {
	pool *Pool
}

// NewDailyResultStore creates a new DailyResultStore.
func NewDailyResultStore(pool *Pool) *DailyResultStore {
	return &DailyResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyResultStore = (*DailyResultStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (run_id, date).
func (s *DailyResultStore) InsertBulk(ctx context.Context, results []*domain.DailyResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO daily_results (
			run_id, date, open_capital, close_capital, pnl,
			trades_opened, trades_closed, bars_seen
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, d := range results {
		_, err := tx.Exec(ctx, query,
			d.RunID, d.Date, d.OpenCapital.String(), d.CloseCapital.String(), d.Pnl.String(),
			d.TradesOpened, d.TradesClosed, d.BarsSeen,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert daily result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all snapshots for a run, ordered by date ASC.
func (s *DailyResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DailyResult, error) {
	query := `
		SELECT run_id, date, open_capital, close_capital, pnl,
		       trades_opened, trades_closed, bars_seen
		FROM daily_results
		WHERE run_id = $1
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get daily results by run id: %w", err)
	}
	defer rows.Close()

	var results []*domain.DailyResult
	for rows.Next() {
		var (
			d                      domain.DailyResult
			openCap, closeCap, pnl string
		)
		err := rows.Scan(&d.RunID, &d.Date, &openCap, &closeCap, &pnl,
			&d.TradesOpened, &d.TradesClosed, &d.BarsSeen)
		if err != nil {
			return nil, fmt.Errorf("scan daily result: %w", err)
		}
		if d.OpenCapital, err = decimal.NewFromString(openCap); err != nil {
			return nil, fmt.Errorf("parse open capital: %w", err)
		}
		if d.CloseCapital, err = decimal.NewFromString(closeCap); err != nil {
			return nil, fmt.Errorf("parse close capital: %w", err)
		}
		if d.Pnl, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("parse pnl: %w", err)
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
