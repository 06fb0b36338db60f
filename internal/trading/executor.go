package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/alerts"
	"github.com/ajitpratap0/cryptocascade/internal/cascade"
	"github.com/ajitpratap0/cryptocascade/internal/exchange"
	"github.com/ajitpratap0/cryptocascade/internal/fees"
	"github.com/ajitpratap0/cryptocascade/internal/metrics"
	"github.com/ajitpratap0/cryptocascade/internal/tradeerr"
	"github.com/ajitpratap0/cryptocascade/internal/treasury"
)

// ExitRetryConfig mirrors exchange.RetryConfig's shape but with the wider
// bounds spec'd for exit orders: unlike entries, an exit must eventually
// succeed, so backoff keeps retrying rather than giving up after a fixed
// count.
type ExitRetryConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultExitRetryConfig matches the 1s/60s/x2 schedule used for closing a
// position that must not be left open indefinitely.
func DefaultExitRetryConfig() ExitRetryConfig {
	return ExitRetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     60 * time.Second,
		BackoffFactor:  2.0,
	}
}

// PriceFeed supplies the last known price for a symbol on a venue, sourced
// from whatever market-data snapshot already feeds the consensus engine.
type PriceFeed interface {
	LastPrice(venue, symbol string) (decimal.Decimal, bool)
}

// confidenceFloor/confidenceSpan implement the 0.5 + 0.8*confidence sizing
// modulator (70% confidence -> 1.06x, 100% -> 1.3x).
const (
	confidenceFloor = 0.5
	confidenceSpan  = 0.8
	neutralWinRate  = 0.5

	// unclosableAlertAttempts is how many failed exit orders a triggered
	// position tolerates before a critical operator alert fires.
	unclosableAlertAttempts = 5
)

// PositionExecutor opens and monitors positions for a single slot ladder,
// sizing new trades from available slot capital and settling realized PnL
// back through the treasury on close.
type PositionExecutor struct {
	log              zerolog.Logger
	exchanges        map[string]exchange.Exchange
	fees             *fees.Model
	cascade          *cascade.SlotCascade
	treasury         *treasury.Router
	store            *PositionStore
	prices           PriceFeed
	retry            ExitRetryConfig
	now              func() time.Time
	notify           NotificationPort

	riskMu          sync.RWMutex
	riskPerTradePct float64
}

// SetRiskPerTradePct recalibrates the risk-per-trade percentage used by
// sizePosition. Safe to call concurrently with Open; takes effect on the
// next call.
func (e *PositionExecutor) SetRiskPerTradePct(pct float64) {
	if pct <= 0 {
		return
	}
	e.riskMu.Lock()
	e.riskPerTradePct = pct
	e.riskMu.Unlock()
}

// SetNotifier attaches a notification port invoked after every close. Not
// required for the executor to function; left nil it's simply skipped.
func (e *PositionExecutor) SetNotifier(n NotificationPort) {
	e.notify = n
}

// NewPositionExecutor wires an executor from its ports. exchanges maps
// venue name to the Exchange implementation serving it (MockExchange in
// paper mode, BinanceExchange live). riskPerTradePct is the percent of a
// slot's free capital risked on a single position; a
// non-positive value falls back to 100% of free capital, matching the
// executor's pre-sizing-formula behavior.
func NewPositionExecutor(
	log zerolog.Logger,
	exchanges map[string]exchange.Exchange,
	feeModel *fees.Model,
	slots *cascade.SlotCascade,
	router *treasury.Router,
	store *PositionStore,
	prices PriceFeed,
	riskPerTradePct float64,
) *PositionExecutor {
	if riskPerTradePct <= 0 {
		riskPerTradePct = 100
	}
	return &PositionExecutor{
		log:             log.With().Str("component", "executor").Logger(),
		exchanges:       exchanges,
		fees:            feeModel,
		cascade:         slots,
		treasury:        router,
		store:           store,
		prices:          prices,
		retry:           DefaultExitRetryConfig(),
		now:             time.Now,
		riskPerTradePct: riskPerTradePct,
	}
}

// FreeCapital returns a slot's capital less the notional already committed
// to its open positions, so a reservation is never double-counted between
// two concurrent opens against the same slot.
func (e *PositionExecutor) FreeCapital(slotID string) decimal.Decimal {
	slot, ok := e.cascade.Get(slotID)
	if !ok {
		return decimal.Zero
	}
	committed := decimal.Zero
	for _, p := range e.store.BySlot(slotID) {
		committed = committed.Add(p.NotionalQuote)
	}
	free := slot.Capital.Sub(committed)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// SelectSlot picks the slot a new position draws capital from: prefer
// preferredSlotID if it has free capital, else the slot with the highest
// historical win rate (slots with no trades yet are treated as a neutral
// 0.5 so they aren't starved by proven performers), breaking ties on
// largest free capital. Returns tradeerr.ErrInsufficientSlot when nothing
// qualifies.
func (e *PositionExecutor) SelectSlot(preferredSlotID string) (cascade.Slot, error) {
	if preferredSlotID != "" {
		if slot, ok := e.cascade.Get(preferredSlotID); ok && e.FreeCapital(preferredSlotID).IsPositive() {
			return slot, nil
		}
	}

	var best cascade.Slot
	var bestFree decimal.Decimal
	bestWinRate := -1.0
	found := false

	for _, slot := range e.cascade.Slots() {
		free := e.FreeCapital(slot.ID)
		if !free.IsPositive() {
			continue
		}
		winRate := neutralWinRate
		if slot.TradesDone > 0 {
			winRate = float64(slot.WinningTrades) / float64(slot.TradesDone)
		}
		better := !found ||
			winRate > bestWinRate ||
			(winRate == bestWinRate && free.GreaterThan(bestFree))
		if better {
			best, bestFree, bestWinRate, found = slot, free, winRate, true
		}
	}

	if !found {
		return cascade.Slot{}, tradeerr.ErrInsufficientSlot
	}
	return best, nil
}

// sizePosition applies the riskPerTradePct × confidence-modulator formula,
// capped at the slot's free capital.
func (e *PositionExecutor) sizePosition(freeCapital decimal.Decimal, confidence float64) decimal.Decimal {
	modulator := confidenceFloor + confidenceSpan*confidence
	e.riskMu.RLock()
	riskPerTradePct := e.riskPerTradePct
	e.riskMu.RUnlock()
	riskPct := decimal.NewFromFloat(riskPerTradePct).Div(decimal.NewFromInt(100))
	size := freeCapital.Mul(riskPct).Mul(decimal.NewFromFloat(modulator))
	if size.GreaterThan(freeCapital) {
		size = freeCapital
	}
	return size
}

// Open selects a slot (preferring preferredSlotID when it has free capital,
// else the best-performing slot per SelectSlot), sizes a position by the
// risk-per-trade/confidence formula, and places an entry
// order, attaching fee-safe TP/SL targets from the fee model before handing
// the position to the store. An empty preferredSlotID lets SelectSlot pick.
func (e *PositionExecutor) Open(ctx context.Context, preferredSlotID, venue, symbol string, side Side, confidence float64) (Position, error) {
	slot, err := e.SelectSlot(preferredSlotID)
	if err != nil {
		return Position{}, fmt.Errorf("trading: open: %w", err)
	}
	slotID := slot.ID

	freeCapital := e.FreeCapital(slotID)
	if !freeCapital.IsPositive() {
		return Position{}, fmt.Errorf("trading: open %s: %w", slotID, tradeerr.ErrInsufficientSlot)
	}

	xch, ok := e.exchanges[venue]
	if !ok {
		return Position{}, fmt.Errorf("trading: open %s: no exchange configured for venue %q", slotID, venue)
	}

	price, ok := e.prices.LastPrice(venue, symbol)
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return Position{}, fmt.Errorf("trading: open %s: no price available for %s/%s", slotID, venue, symbol)
	}

	notional := e.sizePosition(freeCapital, confidence)
	amountBase := notional.Div(price)
	feeSide := fees.SideLong
	if side == SideShort {
		feeSide = fees.SideShort
	}

	tpPrice, _, err := e.fees.TakeProfit(venue, price, feeSide, nil)
	if err != nil {
		return Position{}, fmt.Errorf("trading: open %s: %w", slotID, err)
	}
	slPrice, err := e.fees.StopLoss(venue, price, feeSide, nil)
	if err != nil {
		return Position{}, fmt.Errorf("trading: open %s: %w", slotID, err)
	}

	// Position ids are venue_symbol_timestamp: stable enough to double as
	// the settlement idempotency key and readable in the order ledger.
	positionID := fmt.Sprintf("%s_%s_%d", venue, symbol, e.now().UnixMilli())

	req := exchange.PlaceOrderRequest{
		Symbol:     symbol,
		Side:       side.orderSide(),
		Type:       exchange.OrderTypeMarket,
		Quantity:   amountBase.InexactFloat64(),
		SlotID:     slotID,
		PositionID: positionID,
	}
	orderStart := time.Now()
	resp, err := xch.PlaceOrder(ctx, req)
	metrics.RecordOrderExecution(float64(time.Since(orderStart).Milliseconds()))
	if err != nil {
		metrics.RecordError("place_order_failed", "trading_executor")
		return Position{}, fmt.Errorf("trading: open %s: %w", slotID, tradeerr.ErrOrderRejected)
	}
	if resp.Status == exchange.OrderStatusRejected {
		metrics.RecordError("order_rejected", "trading_executor")
		return Position{}, fmt.Errorf("trading: open %s: order rejected: %s: %w", slotID, resp.Message, tradeerr.ErrOrderRejected)
	}

	pos := Position{
		ID:            positionID,
		SlotID:        slotID,
		Venue:         venue,
		Symbol:        symbol,
		Side:          side,
		EntryPrice:    price,
		AmountBase:    amountBase,
		NotionalQuote: notional,
		TPPrice:       tpPrice,
		SLPrice:       slPrice,
		Status:        StatusOpen,
		OpenedAt:      e.now(),
		EntryOrderID:  resp.OrderID,
	}
	e.store.Create(pos)

	e.log.Info().
		Str("slot_id", slotID).
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("entry_price", price.String()).
		Str("tp_price", tpPrice.String()).
		Str("sl_price", slPrice.String()).
		Msg("position opened")

	return pos, nil
}

// PollExits checks every open position's current price against its TP/SL
// and closes any that have been triggered. Intended to be called once per
// orchestrator cycle.
func (e *PositionExecutor) PollExits(ctx context.Context) {
	for _, pos := range e.store.OpenPositions() {
		price, ok := e.prices.LastPrice(pos.Venue, pos.Symbol)
		if !ok {
			continue
		}
		markValue, _ := pos.AmountBase.Mul(price).Float64()
		metrics.UpdatePositionValue(pos.Symbol, markValue)

		reason, triggered := e.evaluateExit(pos, price)
		if !triggered {
			continue
		}

		if _, err := e.Close(ctx, pos.ID, reason); err != nil {
			e.log.Error().Err(err).Str("position_id", pos.ID).Msg("failed to close triggered position")
		}
	}
}

func (e *PositionExecutor) evaluateExit(pos Position, price decimal.Decimal) (CloseReason, bool) {
	if pos.Side == SideLong {
		if price.GreaterThanOrEqual(pos.TPPrice) {
			return CloseReasonTakeProfit, true
		}
		if price.LessThanOrEqual(pos.SLPrice) {
			return CloseReasonStopLoss, true
		}
		return "", false
	}
	if price.LessThanOrEqual(pos.TPPrice) {
		return CloseReasonTakeProfit, true
	}
	if price.GreaterThanOrEqual(pos.SLPrice) {
		return CloseReasonStopLoss, true
	}
	return "", false
}

// Close exits a position, retrying the exit order with backoff until it
// succeeds, computes realized net PnL through the fee model, and settles it
// through the treasury. The settlement ID is derived from the position ID
// so a crash-and-retry of Close is itself idempotent at the ledger.
func (e *PositionExecutor) Close(ctx context.Context, positionID string, reason CloseReason) (Position, error) {
	pos, ok := e.store.Get(positionID)
	if !ok {
		return Position{}, fmt.Errorf("trading: close %s: position not found", positionID)
	}

	xch, ok := e.exchanges[pos.Venue]
	if !ok {
		return Position{}, fmt.Errorf("trading: close %s: no exchange configured for venue %q", positionID, pos.Venue)
	}

	exitOrder, err := e.retryExit(ctx, xch, pos)
	if err != nil {
		pos.Status = StatusFailed
		e.store.CloseOut(pos)
		if e.notify != nil {
			e.notify.TradeClosed(ctx, pos)
		}
		return pos, fmt.Errorf("trading: close %s: %w", positionID, err)
	}

	exitPrice := decimal.NewFromFloat(exitOrder.AvgFillPrice)
	feeSide := fees.SideLong
	if pos.Side == SideShort {
		feeSide = fees.SideShort
	}
	breakdown, err := e.fees.NetProfit(pos.Venue, pos.EntryPrice, exitPrice, pos.NotionalQuote, feeSide)
	if err != nil {
		return Position{}, fmt.Errorf("trading: close %s: %w", positionID, err)
	}

	pos.Status = StatusClosed
	pos.ExitPrice = exitPrice
	pos.CloseReason = reason
	pos.GrossUsd = breakdown.GrossUsd
	pos.FeesUsd = breakdown.TotalFees
	pos.NetUsd = breakdown.NetUsd
	pos.ClosedAt = e.now()
	pos.ExitOrderID = exitOrder.ID

	e.store.CloseOut(pos)

	// The position id is the settlement's idempotency key: a crashed and
	// re-driven Close can never double-settle the same trade.
	settlementID := pos.ID
	if _, err := e.treasury.Settle(pos.SlotID, breakdown.NetUsd, settlementID); err != nil {
		metrics.RecordError("settlement_failed", "trading_executor")
		e.log.Error().Err(err).Str("position_id", pos.ID).Msg("failed to settle closed position")
		alerts.AlertSettlementFailed(ctx, settlementID, pos.SlotID, err)
		return pos, fmt.Errorf("trading: close %s: %w", positionID, err)
	}
	netUsd, _ := breakdown.NetUsd.Float64()
	metrics.RecordTrade(netUsd)

	e.log.Info().
		Str("slot_id", pos.SlotID).
		Str("position_id", pos.ID).
		Str("reason", string(reason)).
		Str("net_usd", breakdown.NetUsd.String()).
		Msg("position closed and settled")

	if e.notify != nil {
		e.notify.TradeClosed(ctx, pos)
	}

	return pos, nil
}

// retryExit places the closing order, retrying with exponential backoff
// until the exchange accepts it. Exit orders must eventually land, so this
// loop only returns an error when ctx is cancelled. Once a placement is
// accepted the order is live on the venue: from that point only its status
// is polled — re-placing would risk a duplicate closing fill.
func (e *PositionExecutor) retryExit(ctx context.Context, xch exchange.Exchange, pos Position) (*exchange.Order, error) {
	req := exchange.PlaceOrderRequest{
		Symbol:     pos.Symbol,
		Side:       pos.Side.closingOrderSide(),
		Type:       exchange.OrderTypeMarket,
		Quantity:   pos.AmountBase.InexactFloat64(),
		SlotID:     pos.SlotID,
		PositionID: pos.ID,
	}

	backoff := e.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		resp, err := xch.PlaceOrder(ctx, req)
		if err == nil && resp.Status != exchange.OrderStatusRejected {
			return e.awaitExitOrder(ctx, xch, pos, resp.OrderID)
		}

		e.log.Warn().
			Err(err).
			Str("position_id", pos.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("exit order failed, retrying")

		// Keep retrying after the alert: the alert escalates to an
		// operator, it does not abandon the position.
		if attempt == unclosableAlertAttempts {
			alerts.AlertUnclosablePosition(ctx, pos.ID, pos.Symbol, attempt, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * e.retry.BackoffFactor)
		if backoff > e.retry.MaxBackoff {
			backoff = e.retry.MaxBackoff
		}
	}
}

// awaitExitOrder polls a placed exit order until its status can be read. A
// transient read failure here is not an exit failure — the order already
// exists on the venue, so the only safe move is to keep asking for it.
func (e *PositionExecutor) awaitExitOrder(ctx context.Context, xch exchange.Exchange, pos Position, orderID string) (*exchange.Order, error) {
	backoff := e.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		order, err := xch.GetOrder(ctx, orderID)
		if err == nil {
			return order, nil
		}

		e.log.Warn().
			Err(err).
			Str("position_id", pos.ID).
			Str("order_id", orderID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("exit order placed but status read failed, polling")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * e.retry.BackoffFactor)
		if backoff > e.retry.MaxBackoff {
			backoff = e.retry.MaxBackoff
		}
	}
}

// CloseAll is used on shutdown to flatten every open position rather than
// leaving it exposed across a restart.
func (e *PositionExecutor) CloseAll(ctx context.Context) {
	for _, pos := range e.store.OpenPositions() {
		if _, err := e.Close(ctx, pos.ID, CloseReasonShutdown); err != nil {
			e.log.Error().Err(err).Str("position_id", pos.ID).Msg("failed to close position on shutdown")
		}
	}
}
