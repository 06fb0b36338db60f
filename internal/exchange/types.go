package exchange

import (
	"fmt"
	"time"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents market or limit order
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus represents the current state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order represents a trading order. SlotID and PositionID carry the
// cascade attribution supplied on the request so the persisted order
// ledger can always answer "whose capital placed this".
type Order struct {
	ID              string      `json:"id"`
	ExchangeOrderID string      `json:"exchange_order_id,omitempty"` // venue-specific order ID (e.g. Binance int64 as string)
	Symbol          string      `json:"symbol"`
	Side            OrderSide   `json:"side"`
	Type            OrderType   `json:"type"`
	Quantity        float64     `json:"quantity"`
	Price           float64     `json:"price,omitempty"` // for limit orders
	SlotID          string      `json:"slot_id,omitempty"`
	PositionID      string      `json:"position_id,omitempty"`
	FilledQty       float64     `json:"filled_qty"`
	AvgFillPrice    float64     `json:"avg_fill_price,omitempty"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	FilledAt        *time.Time  `json:"filled_at,omitempty"`
	RejectReason    string      `json:"reject_reason,omitempty"`
}

// Fill represents a partial or complete order fill
type Fill struct {
	OrderID   string    `json:"order_id"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PlaceOrderRequest represents a request to place an order. SlotID and
// PositionID are optional attribution tags persisted with the order.
type PlaceOrderRequest struct {
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Type       OrderType `json:"type"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price,omitempty"` // for limit orders
	SlotID     string    `json:"slot_id,omitempty"`
	PositionID string    `json:"position_id,omitempty"`
}

// PlaceOrderResponse represents the response after placing an order
type PlaceOrderResponse struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// validateOrderRequest checks the invariants every venue shares before an
// order goes anywhere near the wire.
func validateOrderRequest(req PlaceOrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return fmt.Errorf("invalid order side: %s", req.Side)
	}
	if req.Type != OrderTypeMarket && req.Type != OrderTypeLimit {
		return fmt.Errorf("invalid order type: %s", req.Type)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if req.Type == OrderTypeLimit && req.Price <= 0 {
		return fmt.Errorf("limit orders must have a positive price")
	}
	return nil
}
