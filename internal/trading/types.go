// Package trading ties together consensus signals, slot capital, and the
// treasury ledger into the decision-to-settlement pipeline: it opens
// positions sized from slot capital, watches them against fee-safe TP/SL
// targets, and settles realized PnL back through the cascade on close.
package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/exchange"
)

// Side mirrors exchange.OrderSide at the position level so callers outside
// internal/exchange don't need to import it just to read a position's
// direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

func (s Side) orderSide() exchange.OrderSide {
	if s == SideShort {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}

func (s Side) closingOrderSide() exchange.OrderSide {
	if s == SideShort {
		return exchange.OrderSideBuy
	}
	return exchange.OrderSideSell
}

// Status is the lifecycle state of a Position.
type Status string

const (
	StatusOpen     Status = "open"
	StatusClosing  Status = "closing"
	StatusClosed   Status = "closed"
	StatusFailed   Status = "failed"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonManual     CloseReason = "manual"
	CloseReasonShutdown   CloseReason = "shutdown"
)

// Position is one open or closed trade attributed to a single slot.
type Position struct {
	ID             string
	SlotID         string
	Venue          string
	Symbol         string
	Side           Side
	EntryPrice     decimal.Decimal
	AmountBase     decimal.Decimal
	NotionalQuote  decimal.Decimal
	TPPrice        decimal.Decimal
	SLPrice        decimal.Decimal
	Status         Status
	ExitPrice      decimal.Decimal
	CloseReason    CloseReason
	GrossUsd       decimal.Decimal
	FeesUsd        decimal.Decimal
	NetUsd         decimal.Decimal
	OpenedAt       time.Time
	ClosedAt       time.Time
	EntryOrderID   string
	ExitOrderID    string
	Supporters     []string
}

func (p Position) snapshot() Position {
	supporters := make([]string, len(p.Supporters))
	copy(supporters, p.Supporters)
	p.Supporters = supporters
	return p
}
