// Package treasury settles realized P&L against the cascade ladder under a
// single exclusive lock, idempotently keyed by settlementId.
package treasury

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/cascade"
	"github.com/ajitpratap0/cryptocascade/internal/metrics"
)

// Status reports what happened to a settlement request.
type Status string

const (
	StatusApplied          Status = "APPLIED"
	StatusAlreadyProcessed Status = "ALREADY_PROCESSED"
	StatusError            Status = "ERROR"
)

// SettlementRecord is the persisted, idempotency-keyed result of one
// settle() call.
type SettlementRecord struct {
	SettlementID string
	SlotID       string
	NetPnl       decimal.Decimal
	Timestamp    time.Time
	CapitalAfter decimal.Decimal
	Routing      cascade.RoutingAction
	Status       Status
}

// Journal durably records settlements so a restart can replay them. The
// concrete adapter lives in internal/treasury/journal.
type Journal interface {
	Append(record SettlementRecord) error
}

const maxHistory = 1000

// Router is the sole write path into the cascade. Every Settle call holds
// mu for its full duration: apply-pnl, route-excess, and history/journal
// append happen as one transaction.
type Router struct {
	mu       sync.Mutex
	cascade  *cascade.SlotCascade
	journal  Journal
	balance  decimal.Decimal
	history  []SettlementRecord
	seen     map[string]int
}

// NewRouter wires a cascade and an optional journal (nil disables
// persistence, e.g. in tests).
func NewRouter(c *cascade.SlotCascade, journal Journal) *Router {
	return &Router{
		cascade: c,
		journal: journal,
		seen:    make(map[string]int),
	}
}

// Credit implements cascade.TreasuryCredit. It is only ever called by
// RouteExcess while Settle already holds mu, so no separate lock is taken
// here.
func (r *Router) Credit(amount decimal.Decimal) {
	r.balance = r.balance.Add(amount)
	balance, _ := r.balance.Float64()
	metrics.TreasuryBalance.Set(balance)
}

// Balance returns the current treasury balance.
func (r *Router) Balance() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// Settle applies netPnl to slotID under settlementID and routes any excess
// through the cascade. Calling Settle again with a settlementID already
// seen returns the original record unchanged (idempotent replay, including
// across a process restart once the journal has been replayed).
func (r *Router) Settle(slotID string, netPnl decimal.Decimal, settlementID string) (SettlementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.seen[settlementID]; ok {
		record := r.history[idx]
		record.Status = StatusAlreadyProcessed
		metrics.SettlementsProcessed.WithLabelValues(string(StatusAlreadyProcessed)).Inc()
		return record, nil
	}

	if _, err := r.cascade.ApplyPnl(slotID, netPnl); err != nil {
		metrics.SettlementsProcessed.WithLabelValues(string(StatusError)).Inc()
		return SettlementRecord{Status: StatusError}, err
	}

	routing, err := r.cascade.RouteExcess(slotID, r)
	if err != nil {
		metrics.SettlementsProcessed.WithLabelValues(string(StatusError)).Inc()
		return SettlementRecord{Status: StatusError}, err
	}

	finalSlot, _ := r.cascade.Get(slotID)

	record := SettlementRecord{
		SettlementID: settlementID,
		SlotID:       slotID,
		NetPnl:       netPnl,
		Timestamp:    time.Now(),
		CapitalAfter: finalSlot.Capital,
		Routing:      routing,
		Status:       StatusApplied,
	}

	r.appendHistory(record)

	if r.journal != nil {
		if err := r.journal.Append(record); err != nil {
			log.Error().Err(err).Str("settlement_id", settlementID).Msg("treasury: journal append failed")
		}
	}

	metrics.SettlementsProcessed.WithLabelValues(string(StatusApplied)).Inc()

	log.Info().
		Str("settlement_id", settlementID).
		Str("slot", slotID).
		Str("net_pnl", netPnl.String()).
		Str("routing_kind", string(routing.Kind)).
		Msg("treasury: settlement applied")

	return record, nil
}

// ForceSweep re-runs RouteExcess on every slot, e.g. after a VB change.
func (r *Router) ForceSweep() []cascade.RoutingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cascade.ForceSweep(r)
}

// SlotStates returns a read-only snapshot of the full ladder.
func (r *Router) SlotStates() []cascade.Slot {
	return r.cascade.Slots()
}

// History returns up to limit of the most recent settlement records (all of
// them when limit <= 0).
func (r *Router) History(limit int) []SettlementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]SettlementRecord, limit)
	copy(out, r.history[len(r.history)-limit:])
	return out
}

func (r *Router) appendHistory(record SettlementRecord) {
	r.history = append(r.history, record)
	r.seen[record.SettlementID] = len(r.history) - 1
	if len(r.history) > maxHistory {
		drop := len(r.history) - maxHistory
		r.history = r.history[drop:]
		for id, idx := range r.seen {
			if idx < drop {
				delete(r.seen, id)
			} else {
				r.seen[id] = idx - drop
			}
		}
	}
}
