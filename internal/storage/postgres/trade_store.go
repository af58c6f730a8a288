package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
	"weekly-options-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL. Each trade row
// owns its leg rows in trade_positions.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, run_id, signal_type, direction,
		entry_time, entry_spot, stop_loss_price,
		outcome, exit_reason, exit_time, exit_spot,
		commission, gross_pnl, total_pnl,
		scheduled_exit_done, scheduled_exit_time, scheduled_exit_pnl,
		reason, confidence
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14,
		$15, $16, $17,
		$18, $19
	)
`

const insertPositionQuery = `
	INSERT INTO trade_positions (
		trade_id, kind, side, strike, expiry,
		lots, quantity, entry_price, exit_price, exit_time, pnl
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Insert adds a new trade with its legs. Returns ErrDuplicateKey if
// trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTradeTx(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if err := insertTradeTx(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertTradeTx(ctx context.Context, tx pgx.Tx, t *domain.Trade) error {
	_, err := tx.Exec(ctx, insertTradeQuery,
		t.TradeID, t.RunID, string(t.SignalType), string(t.Direction),
		t.EntryTime, t.EntrySpot, t.StopLossPrice,
		string(t.Outcome), string(t.ExitReason), t.ExitTime, t.ExitSpot,
		t.Commission.String(), t.GrossPnl.String(), t.TotalPnl.String(),
		t.ScheduledExitDone, t.ScheduledExitTime, t.ScheduledExitPnl.String(),
		t.Reason, t.Confidence,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}

	for _, p := range t.Positions {
		_, err := tx.Exec(ctx, insertPositionQuery,
			t.TradeID, string(p.Kind), string(p.Side), p.Strike, p.Expiry,
			p.Lots, p.Quantity, p.EntryPrice.String(), p.ExitPrice.String(), p.ExitTime, p.Pnl.String(),
		)
		if err != nil {
			return fmt.Errorf("insert trade position: %w", err)
		}
	}
	return nil
}

const selectTradeColumns = `
	trade_id, run_id, signal_type, direction,
	entry_time, entry_spot, stop_loss_price,
	outcome, exit_reason, exit_time, exit_spot,
	commission, gross_pnl, total_pnl,
	scheduled_exit_done, scheduled_exit_time, scheduled_exit_pnl,
	reason, confidence
`

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + selectTradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}

	if err := s.loadPositions(ctx, []*domain.Trade{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByRunID retrieves all trades for a run, ordered by entry time ASC,
// trade ID ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `SELECT ` + selectTradeColumns + ` FROM trades
		WHERE run_id = $1
		ORDER BY entry_time ASC, trade_id ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	if err := s.loadPositions(ctx, trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// scanTrade reads one trade row. Decimal columns travel as text.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t                                     domain.Trade
		signalType, direction, outcome, exit  string
		commission, grossPnl, totalPnl, sePnl string
	)
	err := row.Scan(
		&t.TradeID, &t.RunID, &signalType, &direction,
		&t.EntryTime, &t.EntrySpot, &t.StopLossPrice,
		&outcome, &exit, &t.ExitTime, &t.ExitSpot,
		&commission, &grossPnl, &totalPnl,
		&t.ScheduledExitDone, &t.ScheduledExitTime, &sePnl,
		&t.Reason, &t.Confidence,
	)
	if err != nil {
		return nil, err
	}

	t.SignalType = domain.SignalType(signalType)
	t.Direction = domain.Direction(direction)
	t.Outcome = domain.TradeOutcome(outcome)
	t.ExitReason = domain.ExitReason(exit)

	if t.Commission, err = decimal.NewFromString(commission); err != nil {
		return nil, fmt.Errorf("parse commission: %w", err)
	}
	if t.GrossPnl, err = decimal.NewFromString(grossPnl); err != nil {
		return nil, fmt.Errorf("parse gross pnl: %w", err)
	}
	if t.TotalPnl, err = decimal.NewFromString(totalPnl); err != nil {
		return nil, fmt.Errorf("parse total pnl: %w", err)
	}
	if t.ScheduledExitPnl, err = decimal.NewFromString(sePnl); err != nil {
		return nil, fmt.Errorf("parse scheduled exit pnl: %w", err)
	}
	return &t, nil
}

// loadPositions attaches leg rows to their trades.
func (s *TradeStore) loadPositions(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Trade, len(trades))
	ids := make([]string, 0, len(trades))
	for _, t := range trades {
		byID[t.TradeID] = t
		ids = append(ids, t.TradeID)
	}

	query := `
		SELECT trade_id, kind, side, strike, expiry,
		       lots, quantity, entry_price, exit_price, exit_time, pnl
		FROM trade_positions
		WHERE trade_id = ANY($1)
		ORDER BY trade_id ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load trade positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tradeID, kind, side        string
			entryPrice, exitPrice, pnl string
			p                          domain.Position
		)
		err := rows.Scan(&tradeID, &kind, &side, &p.Strike, &p.Expiry,
			&p.Lots, &p.Quantity, &entryPrice, &exitPrice, &p.ExitTime, &pnl)
		if err != nil {
			return fmt.Errorf("scan trade position: %w", err)
		}

		p.Kind = domain.PositionKind(kind)
		p.Side = domain.OptionSide(side)
		if p.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
			return fmt.Errorf("parse entry price: %w", err)
		}
		if p.ExitPrice, err = decimal.NewFromString(exitPrice); err != nil {
			return fmt.Errorf("parse exit price: %w", err)
		}
		if p.Pnl, err = decimal.NewFromString(pnl); err != nil {
			return fmt.Errorf("parse position pnl: %w", err)
		}

		if t := byID[tradeID]; t != nil {
			t.Positions = append(t.Positions, &p)
		}
	}
	return rows.Err()
}
