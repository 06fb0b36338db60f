// Package fees centralizes venue fee tables and the fee-safe take-profit,
// stop-loss, and net-profit math every position depends on.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/config"
)

// Side is long or short, mirroring internal/trading.Side without importing
// it (fees has no dependency on position bookkeeping).
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// VenueFees is the maker/taker rate pair for one exchange.
type VenueFees struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// NetProfitBreakdown is the fee-aware outcome of entry->exit at a notional.
// SlippageUsd is informational only: it is never subtracted from NetUsd or
// NetPct, so the round-trip identity netProfit(p, p) == -(2*taker*notional)
// always holds exactly. See DESIGN.md.
type NetProfitBreakdown struct {
	GrossPct    decimal.Decimal
	GrossUsd    decimal.Decimal
	EntryFee    decimal.Decimal
	ExitFee     decimal.Decimal
	TotalFees   decimal.Decimal
	SlippageUsd decimal.Decimal
	NetUsd      decimal.Decimal
	NetPct      decimal.Decimal
	Profitable  bool
}

var (
	defaultSafetyBuffer = decimal.NewFromFloat(0.001)
	takeProfitMultiple  = decimal.NewFromInt(3)
	takeProfitFloor     = decimal.NewFromFloat(1.5)
	defaultMaxLossPct   = decimal.NewFromFloat(0.03)
	two                 = decimal.NewFromInt(2)
	one                 = decimal.NewFromInt(1)
)

// Model holds venue fee rates loaded once at boot. It is immutable after
// construction: nothing under internal/trading reads a fee rate from
// config directly, so there is exactly one source of truth for rates.
type Model struct {
	venues       map[string]VenueFees
	slippageCfg  map[string]config.FeeConfig
	safetyBuffer decimal.Decimal
}

// NewModel builds a Model from the exchanges section of the loaded config.
// safetyBufferPct overrides the default 0.1% buffer when positive.
func NewModel(exchanges map[string]config.ExchangeConfig, safetyBufferPct float64) *Model {
	venues := make(map[string]VenueFees, len(exchanges))
	slippage := make(map[string]config.FeeConfig, len(exchanges))
	for venue, cfg := range exchanges {
		venues[venue] = VenueFees{
			Maker: decimal.NewFromFloat(cfg.Fees.Maker),
			Taker: decimal.NewFromFloat(cfg.Fees.Taker),
		}
		slippage[venue] = cfg.Fees
	}
	buffer := defaultSafetyBuffer
	if safetyBufferPct > 0 {
		buffer = decimal.NewFromFloat(safetyBufferPct)
	}
	return &Model{venues: venues, slippageCfg: slippage, safetyBuffer: buffer}
}

// Fees returns the maker/taker rates for a venue.
func (m *Model) Fees(venue string) (VenueFees, error) {
	f, ok := m.venues[venue]
	if !ok {
		return VenueFees{}, fmt.Errorf("fees: unknown venue %q", venue)
	}
	return f, nil
}

// MinProfitPct is the minimum return that covers a taker entry, a taker
// exit, and the safety buffer — the floor below which a trade cannot clear
// its own fees.
func (m *Model) MinProfitPct(venue string) (decimal.Decimal, error) {
	f, err := m.Fees(venue)
	if err != nil {
		return decimal.Zero, err
	}
	return f.Taker.Mul(two).Add(m.safetyBuffer), nil
}

// TakeProfit returns the absolute TP price and the profit percent actually
// applied. desired overrides the 3x-minProfit default but is still floored
// at 1.5x minProfit.
func (m *Model) TakeProfit(venue string, entry decimal.Decimal, side Side, desired *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	minProfit, err := m.MinProfitPct(venue)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	effective := minProfit.Mul(takeProfitMultiple)
	if desired != nil {
		effective = *desired
	}
	floor := minProfit.Mul(takeProfitFloor)
	if effective.LessThan(floor) {
		effective = floor
	}

	tp, err := applyPct(entry, side, effective, true)
	return tp, effective, err
}

// StopLoss inflates the raw max-loss percentage by the round-trip taker fee
// so a fill at the computed price never nets worse than -maxLossPct.
func (m *Model) StopLoss(venue string, entry decimal.Decimal, side Side, maxLossPct *decimal.Decimal) (decimal.Decimal, error) {
	f, err := m.Fees(venue)
	if err != nil {
		return decimal.Zero, err
	}
	maxLoss := defaultMaxLossPct
	if maxLossPct != nil {
		maxLoss = *maxLossPct
	}
	totalLoss := maxLoss.Add(f.Taker.Mul(two))
	return applyPct(entry, side, totalLoss, false)
}

// applyPct computes entry*(1+pct) for a long take-profit or short stop-loss,
// and entry*(1-pct) for a long stop-loss or short take-profit.
func applyPct(entry decimal.Decimal, side Side, pct decimal.Decimal, profitDirection bool) (decimal.Decimal, error) {
	up := entry.Mul(one.Add(pct))
	down := entry.Mul(one.Sub(pct))
	switch side {
	case SideLong:
		if profitDirection {
			return up, nil
		}
		return down, nil
	case SideShort:
		if profitDirection {
			return down, nil
		}
		return up, nil
	default:
		return decimal.Zero, fmt.Errorf("fees: unknown side %q", side)
	}
}

// NetProfit computes the fee-aware P&L of a move from entry to exit on the
// given notional.
func (m *Model) NetProfit(venue string, entry, exit, notional decimal.Decimal, side Side) (NetProfitBreakdown, error) {
	f, err := m.Fees(venue)
	if err != nil {
		return NetProfitBreakdown{}, err
	}

	var grossPct decimal.Decimal
	switch side {
	case SideLong:
		grossPct = exit.Sub(entry).Div(entry)
	case SideShort:
		grossPct = entry.Sub(exit).Div(entry)
	default:
		return NetProfitBreakdown{}, fmt.Errorf("fees: unknown side %q", side)
	}

	grossUsd := notional.Mul(grossPct)
	entryFee := notional.Mul(f.Taker)
	exitFee := notional.Mul(f.Taker)
	totalFees := entryFee.Add(exitFee)
	netUsd := grossUsd.Sub(totalFees)

	var netPct decimal.Decimal
	if notional.IsPositive() {
		netPct = netUsd.Div(notional)
	}

	var slippage decimal.Decimal
	if cfg, ok := m.slippageCfg[venue]; ok {
		base := decimal.NewFromFloat(cfg.BaseSlippage).Mul(notional)
		impact := decimal.NewFromFloat(cfg.MarketImpact).Mul(notional)
		slippage = base.Add(impact)
	}

	return NetProfitBreakdown{
		GrossPct:    grossPct,
		GrossUsd:    grossUsd,
		EntryFee:    entryFee,
		ExitFee:     exitFee,
		TotalFees:   totalFees,
		SlippageUsd: slippage,
		NetUsd:      netUsd,
		NetPct:      netPct,
		Profitable:  netUsd.IsPositive(),
	}, nil
}
