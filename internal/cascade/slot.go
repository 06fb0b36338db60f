// Package cascade implements the slot ladder that routes profit above a
// slot's valor base (VB) down to the next under-capitalized slot, and
// ultimately to treasury once every slot is fully funded.
package cascade

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a pure function of Capital vs VB: it never carries independent
// state of its own.
type Status string

const (
	StatusBootstrap Status = "BOOTSTRAP"
	StatusOperating Status = "OPERATING"
)

// Slot is one rung of the capital-allocation ladder.
type Slot struct {
	ID             string
	VB             decimal.Decimal
	Capital        decimal.Decimal
	Status         Status
	TradesDone     int
	WinningTrades  int
	ProfitReceived decimal.Decimal
	ProfitSent     decimal.Decimal
	CreatedAt      time.Time
}

func (s *Slot) refreshStatus() {
	if s.Capital.GreaterThanOrEqual(s.VB) {
		s.Status = StatusOperating
	} else {
		s.Status = StatusBootstrap
	}
}

func (s *Slot) snapshot() Slot {
	return *s
}
