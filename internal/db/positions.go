package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// PositionSide represents the side of a position
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is the durable record of one trade attributed to a cascade
// slot. The primary key is the executor's position id (venue_symbol_ts),
// not a surrogate — crash recovery looks positions up by the same id the
// settlement ledger uses.
type Position struct {
	ID            string
	SlotID        string
	Venue         string
	Symbol        string
	Side          PositionSide
	EntryPrice    float64
	ExitPrice     *float64
	Quantity      float64
	NotionalQuote float64
	TakeProfit    float64
	StopLoss      float64
	EntryTime     time.Time
	ExitTime      *time.Time
	CloseReason   *string
	GrossPnl      *float64
	Fees          float64
	RealizedPnl   *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const positionColumns = `
	id, slot_id, venue, symbol, side, entry_price, exit_price, quantity,
	notional_quote, take_profit, stop_loss, entry_time, exit_time,
	close_reason, gross_pnl, fees, realized_pnl, created_at, updated_at`

// InsertPosition persists a freshly opened position.
func (db *DB) InsertPosition(ctx context.Context, position *Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)
	`

	now := time.Now()
	if position.CreatedAt.IsZero() {
		position.CreatedAt = now
	}
	if position.UpdatedAt.IsZero() {
		position.UpdatedAt = now
	}

	_, err := db.pool.Exec(ctx, query,
		position.ID,
		position.SlotID,
		position.Venue,
		position.Symbol,
		position.Side,
		position.EntryPrice,
		position.ExitPrice,
		position.Quantity,
		position.NotionalQuote,
		position.TakeProfit,
		position.StopLoss,
		position.EntryTime,
		position.ExitTime,
		position.CloseReason,
		position.GrossPnl,
		position.Fees,
		position.RealizedPnl,
		position.CreatedAt,
		position.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

// ClosePosition records the exit side of a position: exit price, the
// trigger that closed it, and the realized P&L breakdown already computed
// by the fee model.
func (db *DB) ClosePosition(ctx context.Context, id string, exitPrice float64, closeReason string, grossPnl, fees, realizedPnl float64) error {
	query := `
		UPDATE positions
		SET exit_price = $2, exit_time = $3, close_reason = $4,
		    gross_pnl = $5, fees = $6, realized_pnl = $7, updated_at = $8
		WHERE id = $1 AND exit_time IS NULL
	`

	now := time.Now()
	result, err := db.pool.Exec(ctx, query, id, exitPrice, now, closeReason, grossPnl, fees, realizedPnl, now)
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("position not found or already closed: %s", id)
	}
	return nil
}

// GetPosition retrieves a position by id.
func (db *DB) GetPosition(ctx context.Context, id string) (*Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	var position Position
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&position.ID,
		&position.SlotID,
		&position.Venue,
		&position.Symbol,
		&position.Side,
		&position.EntryPrice,
		&position.ExitPrice,
		&position.Quantity,
		&position.NotionalQuote,
		&position.TakeProfit,
		&position.StopLoss,
		&position.EntryTime,
		&position.ExitTime,
		&position.CloseReason,
		&position.GrossPnl,
		&position.Fees,
		&position.RealizedPnl,
		&position.CreatedAt,
		&position.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("position not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &position, nil
}

// GetOpenPositions retrieves every position that hasn't been closed yet,
// newest first. Used on restart to reconcile the in-memory store against
// what was open when the process died.
func (db *DB) GetOpenPositions(ctx context.Context) ([]*Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE exit_time IS NULL
		ORDER BY entry_time DESC
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListPositions returns positions filtered by slot and/or open state,
// newest first. limit <= 0 means no limit.
func (db *DB) ListPositions(ctx context.Context, slotID *string, openOnly bool, limit, offset int) ([]*Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if slotID != nil {
		query += fmt.Sprintf(" AND slot_id = $%d", argCount)
		args = append(args, *slotID)
		argCount++
	}
	if openOnly {
		query += " AND exit_time IS NULL"
	}
	query += " ORDER BY entry_time DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, limit, offset)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// CountPositions counts positions for a slot (or all slots when slotID is
// nil), optionally restricted to open ones.
func (db *DB) CountPositions(ctx context.Context, slotID *string, openOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM positions WHERE 1=1"
	args := []interface{}{}

	if slotID != nil {
		query += " AND slot_id = $1"
		args = append(args, *slotID)
	}
	if openOnly {
		query += " AND exit_time IS NULL"
	}

	var count int
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}
	return count, nil
}

func scanPositions(rows pgx.Rows) ([]*Position, error) {
	var positions []*Position
	for rows.Next() {
		var position Position
		err := rows.Scan(
			&position.ID,
			&position.SlotID,
			&position.Venue,
			&position.Symbol,
			&position.Side,
			&position.EntryPrice,
			&position.ExitPrice,
			&position.Quantity,
			&position.NotionalQuote,
			&position.TakeProfit,
			&position.StopLoss,
			&position.EntryTime,
			&position.ExitTime,
			&position.CloseReason,
			&position.GrossPnl,
			&position.Fees,
			&position.RealizedPnl,
			&position.CreatedAt,
			&position.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// ConvertPositionSide normalizes a side string to PositionSide.
func ConvertPositionSide(side string) PositionSide {
	if strings.EqualFold(side, "short") || strings.EqualFold(side, "sell") {
		return PositionSideShort
	}
	return PositionSideLong
}
