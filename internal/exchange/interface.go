// Package exchange provides the venue port the trading pipeline places
// orders through: a live Binance client and a paper-trading simulator
// behind one interface.
package exchange

import (
	"context"
)

// Exchange is the venue port. MockExchange (paper trading) and
// BinanceExchange (live trading) both implement it.
type Exchange interface {
	// PlaceOrder places a new order
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error)

	// CancelOrder cancels an existing order
	CancelOrder(ctx context.Context, orderID string) (*Order, error)

	// GetOrder retrieves order details
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// GetOrderFills retrieves all fills for an order
	GetOrderFills(ctx context.Context, orderID string) ([]Fill, error)

	// SetMarketPrice sets the current market price for a symbol (mock exchange only)
	SetMarketPrice(symbol string, price float64)
}
