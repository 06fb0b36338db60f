package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ajitpratap0/cryptocascade/internal/metrics"
)

// OrderSide represents buy or sell (database enum)
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents order type (database enum)
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents order status (database enum)
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// Order is the persisted record of one exchange order. Orders are
// attributed to the slot whose capital they deploy and, once the executor
// has created the position they opened or closed, to that position's id.
type Order struct {
	ID                    uuid.UUID
	SlotID                *string
	PositionID            *string
	ExchangeOrderID       *string
	Symbol                string
	Venue                 string
	Side                  OrderSide
	Type                  OrderType
	Status                OrderStatus
	Price                 *float64
	Quantity              float64
	ExecutedQuantity      float64
	ExecutedQuoteQuantity float64
	PlacedAt              time.Time
	FilledAt              *time.Time
	CanceledAt            *time.Time
	ErrorMessage          *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Trade is one fill of an order.
type Trade struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Symbol        string
	Venue         string
	Side          OrderSide
	Price         float64
	Quantity      float64
	QuoteQuantity float64
	Commission    float64
	ExecutedAt    time.Time
	IsMaker       bool
	CreatedAt     time.Time
}

const orderColumns = `
	id, slot_id, position_id, exchange_order_id, symbol, venue,
	side, type, status, price, quantity, executed_quantity,
	executed_quote_quantity, placed_at, filled_at, canceled_at,
	error_message, created_at, updated_at`

// InsertOrder persists a new order.
func (db *DB) InsertOrder(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)
	`

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	queryStart := time.Now()
	_, err := db.pool.Exec(ctx, query,
		order.ID,
		order.SlotID,
		order.PositionID,
		order.ExchangeOrderID,
		order.Symbol,
		order.Venue,
		order.Side,
		order.Type,
		order.Status,
		order.Price,
		order.Quantity,
		order.ExecutedQuantity,
		order.ExecutedQuoteQuantity,
		order.PlacedAt,
		order.FilledAt,
		order.CanceledAt,
		order.ErrorMessage,
		order.CreatedAt,
		order.UpdatedAt,
	)
	metrics.RecordDatabaseQuery("insert_order", float64(time.Since(queryStart).Milliseconds()))

	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateOrderStatus updates an order's status and execution progress.
func (db *DB) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus, executedQty, executedQuoteQty float64, filledAt, canceledAt *time.Time, errorMsg *string) error {
	query := `
		UPDATE orders
		SET status = $2, executed_quantity = $3, executed_quote_quantity = $4,
		    filled_at = $5, canceled_at = $6, error_message = $7, updated_at = $8
		WHERE id = $1
	`

	queryStart := time.Now()
	result, err := db.pool.Exec(ctx, query,
		orderID, status, executedQty, executedQuoteQty, filledAt, canceledAt, errorMsg, time.Now(),
	)
	metrics.RecordDatabaseQuery("update_order_status", float64(time.Since(queryStart).Milliseconds()))

	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}

// AttachOrderToPosition backfills the position id on an order once the
// executor has created the position the order opened or closed.
func (db *DB) AttachOrderToPosition(ctx context.Context, orderID uuid.UUID, positionID string) error {
	query := `UPDATE orders SET position_id = $2, updated_at = $3 WHERE id = $1`
	result, err := db.pool.Exec(ctx, query, orderID, positionID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to attach order to position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}

// InsertTrade persists one fill.
func (db *DB) InsertTrade(ctx context.Context, trade *Trade) error {
	query := `
		INSERT INTO trades (
			id, order_id, symbol, venue, side, price, quantity,
			quote_quantity, commission, executed_at, is_maker, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}

	queryStart := time.Now()
	_, err := db.pool.Exec(ctx, query,
		trade.ID,
		trade.OrderID,
		trade.Symbol,
		trade.Venue,
		trade.Side,
		trade.Price,
		trade.Quantity,
		trade.QuoteQuantity,
		trade.Commission,
		trade.ExecutedAt,
		trade.IsMaker,
		trade.CreatedAt,
	)
	metrics.RecordDatabaseQuery("insert_trade", float64(time.Since(queryStart).Milliseconds()))

	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by id.
func (db *DB) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order Order
	err := db.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.SlotID,
		&order.PositionID,
		&order.ExchangeOrderID,
		&order.Symbol,
		&order.Venue,
		&order.Side,
		&order.Type,
		&order.Status,
		&order.Price,
		&order.Quantity,
		&order.ExecutedQuantity,
		&order.ExecutedQuoteQuantity,
		&order.PlacedAt,
		&order.FilledAt,
		&order.CanceledAt,
		&order.ErrorMessage,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("order not found: %s", orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetTradesByOrderID retrieves all fills recorded for an order.
func (db *DB) GetTradesByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Trade, error) {
	query := `
		SELECT id, order_id, symbol, venue, side, price, quantity,
		       quote_quantity, commission, executed_at, is_maker, created_at
		FROM trades
		WHERE order_id = $1
		ORDER BY executed_at ASC
	`

	rows, err := db.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		var t Trade
		err := rows.Scan(
			&t.ID, &t.OrderID, &t.Symbol, &t.Venue, &t.Side, &t.Price,
			&t.Quantity, &t.QuoteQuantity, &t.Commission, &t.ExecutedAt,
			&t.IsMaker, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// ListOrders returns orders filtered by slot and/or status, newest first.
// limit <= 0 means no limit.
func (db *DB) ListOrders(ctx context.Context, slotID *string, status *OrderStatus, limit, offset int) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if slotID != nil {
		query += fmt.Sprintf(" AND slot_id = $%d", argCount)
		args = append(args, *slotID)
		argCount++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *status)
		argCount++
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, limit, offset)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetOrdersBySlot returns every order attributed to a slot, newest first.
func (db *DB) GetOrdersBySlot(ctx context.Context, slotID string) ([]*Order, error) {
	return db.ListOrders(ctx, &slotID, nil, 0, 0)
}

// GetRecentOrders returns the most recent orders across all slots.
func (db *DB) GetRecentOrders(ctx context.Context, limit int) ([]*Order, error) {
	return db.ListOrders(ctx, nil, nil, limit, 0)
}

func scanOrders(rows pgx.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		var order Order
		err := rows.Scan(
			&order.ID,
			&order.SlotID,
			&order.PositionID,
			&order.ExchangeOrderID,
			&order.Symbol,
			&order.Venue,
			&order.Side,
			&order.Type,
			&order.Status,
			&order.Price,
			&order.Quantity,
			&order.ExecutedQuantity,
			&order.ExecutedQuoteQuantity,
			&order.PlacedAt,
			&order.FilledAt,
			&order.CanceledAt,
			&order.ErrorMessage,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ConvertOrderSide normalizes a side string to the database enum.
func ConvertOrderSide(side string) OrderSide {
	if strings.EqualFold(side, "sell") {
		return OrderSideSell
	}
	return OrderSideBuy
}

// ConvertOrderType normalizes an order type string to the database enum.
func ConvertOrderType(orderType string) OrderType {
	if strings.EqualFold(orderType, "limit") {
		return OrderTypeLimit
	}
	return OrderTypeMarket
}

// ConvertOrderStatus normalizes a status string to the database enum.
func ConvertOrderStatus(status string) OrderStatus {
	switch strings.ToUpper(status) {
	case "FILLED":
		return OrderStatusFilled
	case "PARTIALLY_FILLED":
		return OrderStatusPartiallyFilled
	case "CANCELED", "CANCELLED":
		return OrderStatusCanceled
	case "REJECTED":
		return OrderStatusRejected
	default:
		return OrderStatusNew
	}
}
