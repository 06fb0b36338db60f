package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/cryptocascade/internal/config"
	"github.com/ajitpratap0/cryptocascade/internal/db"
)

// MockExchange simulates a venue for paper trading: every valid order is
// accepted and market orders fill immediately at the configured market
// price, with slippage and fee modelling matching the venue's fee config.
type MockExchange struct {
	mu     sync.RWMutex
	orders map[string]*Order
	fills  map[string][]Fill

	// Last known market price per symbol, set by SetMarketPrice.
	marketPrices map[string]float64

	// Market simulation parameters from the venue fee config.
	baseSlippage float64
	marketImpact float64
	maxSlippage  float64
	makerFee     float64
	takerFee     float64

	// Optional order/fill persistence. Nil runs memory-only.
	db *db.DB
}

// NewMockExchange creates a paper-trading venue with Binance-like default
// fees.
func NewMockExchange(database *db.DB) *MockExchange {
	return NewMockExchangeWithFees(database, config.FeeConfig{
		Maker:        0.001,
		Taker:        0.001,
		BaseSlippage: 0.0005,
		MarketImpact: 0.0001,
		MaxSlippage:  0.003,
	})
}

// NewMockExchangeWithFees creates a paper-trading venue using the fee and
// slippage parameters of the venue it stands in for.
func NewMockExchangeWithFees(database *db.DB, fees config.FeeConfig) *MockExchange {
	log.Info().
		Float64("maker_fee", fees.Maker).
		Float64("taker_fee", fees.Taker).
		Float64("base_slippage", fees.BaseSlippage).
		Msg("Mock exchange initialized (paper trading mode)")

	return &MockExchange{
		orders:       make(map[string]*Order),
		fills:        make(map[string][]Fill),
		marketPrices: make(map[string]float64),
		baseSlippage: fees.BaseSlippage,
		marketImpact: fees.MarketImpact,
		maxSlippage:  fees.MaxSlippage,
		makerFee:     fees.Maker,
		takerFee:     fees.Taker,
		db:           database,
	}
}

// PlaceOrder accepts any valid order. Market orders fill immediately at
// the simulated price; limit orders rest as OPEN.
func (m *MockExchange) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateOrderRequest(req); err != nil {
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Msg("Order validation failed")
		return &PlaceOrderResponse{
			Status:  OrderStatusRejected,
			Message: err.Error(),
		}, nil
	}

	now := time.Now()
	order := &Order{
		ID:         uuid.New().String(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Price:      req.Price,
		SlotID:     req.SlotID,
		PositionID: req.PositionID,
		Status:     OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.orders[order.ID] = order

	if m.db != nil {
		if err := m.db.InsertOrder(ctx, m.toDBOrder(order)); err != nil {
			log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist order")
			// Paper trading keeps going on persistence failure.
		}
	}

	log.Info().
		Str("order_id", order.ID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("slot_id", order.SlotID).
		Float64("quantity", order.Quantity).
		Msg("Order placed")

	if req.Type == OrderTypeMarket {
		m.fillMarketOrder(ctx, order)
	} else {
		order.Status = OrderStatusOpen
		order.UpdatedAt = time.Now()
		m.persistOrderStatus(ctx, order, nil)
	}

	return &PlaceOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Message: "Order placed successfully",
	}, nil
}

// CancelOrder cancels a resting order.
func (m *MockExchange) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if order.Status != OrderStatusOpen && order.Status != OrderStatusPending {
		return nil, fmt.Errorf("cannot cancel order in status: %s", order.Status)
	}

	cancelledAt := time.Now()
	order.Status = OrderStatusCancelled
	order.UpdatedAt = cancelledAt
	m.persistOrderStatus(ctx, order, &cancelledAt)

	log.Info().Str("order_id", orderID).Msg("Order cancelled")
	return order, nil
}

// GetOrder retrieves order details.
func (m *MockExchange) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	return order, nil
}

// GetOrderFills retrieves all fills for an order.
func (m *MockExchange) GetOrderFills(ctx context.Context, orderID string) ([]Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fills, exists := m.fills[orderID]
	if !exists {
		return []Fill{}, nil
	}
	return fills, nil
}

// SetMarketPrice sets the simulated market price for a symbol.
func (m *MockExchange) SetMarketPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketPrices[symbol] = price
}

// fillMarketOrder fills a market order at the simulated price with
// slippage applied toward the taker.
func (m *MockExchange) fillMarketOrder(ctx context.Context, order *Order) {
	now := time.Now()

	midPrice, exists := m.marketPrices[order.Symbol]
	if !exists {
		midPrice = 50000.0 // default simulation price when nothing has been set
	}

	slippage := m.slippageFor(order.Quantity, midPrice)
	fillPrice := midPrice * (1 + slippage)
	if order.Side == OrderSideSell {
		fillPrice = midPrice * (1 - slippage)
	}

	fills := m.splitIntoFills(order, fillPrice, now)

	var totalValue, totalQty float64
	for _, fill := range fills {
		totalValue += fill.Price * fill.Quantity
		totalQty += fill.Quantity
	}

	order.FilledQty = order.Quantity
	order.AvgFillPrice = totalValue / totalQty
	order.Status = OrderStatusFilled
	order.UpdatedAt = now
	order.FilledAt = &now
	m.fills[order.ID] = fills

	if m.db != nil {
		for _, fill := range fills {
			m.persistFill(ctx, order, fill)
		}
		m.persistOrderStatus(ctx, order, nil)
	}

	log.Info().
		Str("order_id", order.ID).
		Float64("quantity", order.Quantity).
		Float64("avg_price", order.AvgFillPrice).
		Float64("slippage_pct", slippage*100).
		Int("num_fills", len(fills)).
		Msg("Order filled")
}

// slippageFor models base slippage plus size-proportional market impact,
// capped at the venue's max.
func (m *MockExchange) slippageFor(quantity, price float64) float64 {
	notional := quantity * price
	impact := m.marketImpact * (notional / 1000000.0)
	total := m.baseSlippage + impact
	if total > m.maxSlippage {
		total = m.maxSlippage
	}
	return total
}

// splitIntoFills breaks large orders into a handful of partial fills with
// slight price decay, simulating order book depth. Small orders fill whole.
func (m *MockExchange) splitIntoFills(order *Order, basePrice float64, startTime time.Time) []Fill {
	if order.Quantity < 1.0 {
		return []Fill{{
			OrderID:   order.ID,
			Quantity:  order.Quantity,
			Price:     basePrice,
			Timestamp: startTime,
		}}
	}

	const maxFills = 5
	fills := []Fill{}
	remaining := order.Quantity
	fillTime := startTime

	for i := 0; remaining > 0 && i < maxFills; i++ {
		qty := remaining
		if i < maxFills-1 {
			portion := 0.2 + (0.2 * float64(i) / float64(maxFills))
			qty = remaining * portion
			if qty < 0.01 {
				qty = remaining
			}
		}

		variation := 0.0001 * float64(i)
		price := basePrice * (1 + variation)
		if order.Side == OrderSideSell {
			price = basePrice * (1 - variation)
		}

		fills = append(fills, Fill{
			OrderID:   order.ID,
			Quantity:  qty,
			Price:     price,
			Timestamp: fillTime,
		})

		remaining -= qty
		fillTime = fillTime.Add(time.Microsecond * time.Duration(100+(i+1)*50))
	}

	return fills
}

func (m *MockExchange) toDBOrder(order *Order) *db.Order {
	orderID, _ := uuid.Parse(order.ID)

	var price *float64
	if order.Price > 0 {
		price = &order.Price
	}
	var slotID *string
	if order.SlotID != "" {
		slotID = &order.SlotID
	}
	var positionID *string
	if order.PositionID != "" {
		positionID = &order.PositionID
	}

	return &db.Order{
		ID:                    orderID,
		SlotID:                slotID,
		PositionID:            positionID,
		Symbol:                order.Symbol,
		Venue:                 "PAPER",
		Side:                  db.ConvertOrderSide(string(order.Side)),
		Type:                  db.ConvertOrderType(string(order.Type)),
		Status:                db.ConvertOrderStatus(string(order.Status)),
		Price:                 price,
		Quantity:              order.Quantity,
		ExecutedQuantity:      order.FilledQty,
		ExecutedQuoteQuantity: order.FilledQty * order.AvgFillPrice,
		PlacedAt:              order.CreatedAt,
		FilledAt:              order.FilledAt,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
}

func (m *MockExchange) persistOrderStatus(ctx context.Context, order *Order, canceledAt *time.Time) {
	if m.db == nil {
		return
	}

	orderID, _ := uuid.Parse(order.ID)
	err := m.db.UpdateOrderStatus(
		ctx,
		orderID,
		db.ConvertOrderStatus(string(order.Status)),
		order.FilledQty,
		order.FilledQty*order.AvgFillPrice,
		order.FilledAt,
		canceledAt,
		nil,
	)
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to update order status in database")
	}
}

func (m *MockExchange) persistFill(ctx context.Context, order *Order, fill Fill) {
	orderUUID, _ := uuid.Parse(order.ID)

	// Market orders always take; resting limit orders make.
	isMaker := order.Type == OrderTypeLimit
	feeRate := m.takerFee
	if isMaker {
		feeRate = m.makerFee
	}

	trade := &db.Trade{
		OrderID:       orderUUID,
		Symbol:        order.Symbol,
		Venue:         "PAPER",
		Side:          db.ConvertOrderSide(string(order.Side)),
		Price:         fill.Price,
		Quantity:      fill.Quantity,
		QuoteQuantity: fill.Price * fill.Quantity,
		Commission:    fill.Price * fill.Quantity * feeRate,
		ExecutedAt:    fill.Timestamp,
		IsMaker:       isMaker,
		CreatedAt:     fill.Timestamp,
	}
	if err := m.db.InsertTrade(ctx, trade); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist fill to database")
	}
}
