package cascade

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TreasuryCredit is the sink a cascade hands fully-waterfalled overflow to
// once every slot is capitalized.
type TreasuryCredit interface {
	Credit(amount decimal.Decimal)
}

// RoutingKind describes where a settlement's excess capital ended up.
type RoutingKind string

const (
	RoutingNone     RoutingKind = "NONE"
	RoutingSlot     RoutingKind = "SLOT"
	RoutingTreasury RoutingKind = "TREASURY"
)

// RoutingAction is the shape persisted on a SettlementRecord: one kind, one
// destination, one amount.
type RoutingAction struct {
	Kind          RoutingKind
	DestinationID string
	Amount        decimal.Decimal
}

// SlotCascade owns the ladder's mutable state. internal/treasury.Router is
// the sole caller of the mutating methods and serializes them with its own
// lock; the RWMutex here exists so concurrent read-only snapshot callers
// (dashboards, metrics) never see a torn slot.
type SlotCascade struct {
	mu               sync.RWMutex
	slots            []*Slot
	index            map[string]int
	downgradeEnabled bool
}

// NewUniformCascade builds an n-slot ladder sharing one valor base. slot_1
// starts funded and OPERATING; every other slot starts empty and BOOTSTRAP.
func NewUniformCascade(n int, vb decimal.Decimal) *SlotCascade {
	slots := make([]*Slot, n)
	index := make(map[string]int, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("slot_%d", i+1)
		capital := decimal.Zero
		if i == 0 {
			capital = vb
		}
		s := &Slot{ID: id, VB: vb, Capital: capital, CreatedAt: now}
		s.refreshStatus()
		slots[i] = s
		index[id] = i
	}
	return &SlotCascade{slots: slots, index: index}
}

// Slots returns a point-in-time snapshot of every slot in ladder order.
func (c *SlotCascade) Slots() []Slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Slot, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.snapshot()
	}
	return out
}

// Get returns a snapshot of one slot by id.
func (c *SlotCascade) Get(id string) (Slot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Slot{}, false
	}
	return c.slots[i].snapshot(), true
}

// NextTarget returns the first slot in ladder order below its VB.
func (c *SlotCascade) NextTarget() (Slot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.nextTargetLocked(-1)
	if s == nil {
		return Slot{}, false
	}
	return s.snapshot(), true
}

// nextTargetLocked requires at least a read lock. exclude skips one ladder
// index (the slot currently being settled).
func (c *SlotCascade) nextTargetLocked(exclude int) *Slot {
	for i, s := range c.slots {
		if i == exclude {
			continue
		}
		if s.Capital.LessThan(s.VB) {
			return s
		}
	}
	return nil
}

// ApplyPnl adds a signed delta to a slot's capital and recomputes its
// status. It does not route excess; callers run RouteExcess separately so
// the two can be journaled as one settlement.
func (c *SlotCascade) ApplyPnl(slotID string, delta decimal.Decimal) (*Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[slotID]
	if !ok {
		return nil, fmt.Errorf("cascade: unknown slot %q", slotID)
	}
	s := c.slots[i]
	s.Capital = s.Capital.Add(delta)
	s.TradesDone++
	if delta.IsPositive() {
		s.ProfitReceived = s.ProfitReceived.Add(delta)
		s.WinningTrades++
	}
	s.refreshStatus()
	return s, nil
}

// RouteExcess drains a slot's above-VB capital and waterfalls it down the
// ladder: the next under-capitalized slot is filled to exactly its own VB,
// and any remainder keeps falling to the following slot, reaching treasury
// only once no under-capitalized slot remains. Filling each slot to exactly
// VB (rather than dumping the whole excess on one slot) keeps every slot's
// status a pure function of capital and conserves value across the route.
func (c *SlotCascade) RouteExcess(slotID string, treasury TreasuryCredit) (RoutingAction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[slotID]
	if !ok {
		return RoutingAction{}, fmt.Errorf("cascade: unknown slot %q", slotID)
	}
	source := c.slots[i]
	excess := source.Capital.Sub(source.VB)
	if !excess.IsPositive() {
		return RoutingAction{Kind: RoutingNone}, nil
	}

	source.Capital = source.Capital.Sub(excess)
	source.ProfitSent = source.ProfitSent.Add(excess)
	source.refreshStatus()

	remaining := excess
	var lastDestination string
	var lastKind = RoutingTreasury
	excluded := i
	for remaining.IsPositive() {
		target := c.nextTargetLocked(excluded)
		if target == nil {
			treasury.Credit(remaining)
			lastKind = RoutingTreasury
			lastDestination = ""
			remaining = decimal.Zero
			break
		}
		deficit := target.VB.Sub(target.Capital)
		transfer := remaining
		if transfer.GreaterThan(deficit) {
			transfer = deficit
		}
		target.Capital = target.Capital.Add(transfer)
		target.refreshStatus()
		remaining = remaining.Sub(transfer)
		lastKind = RoutingSlot
		lastDestination = target.ID
		excluded = c.index[target.ID]
	}

	log.Debug().
		Str("from", slotID).
		Str("amount", excess.String()).
		Str("last_destination", lastDestination).
		Str("last_kind", string(lastKind)).
		Msg("cascade: excess routed")

	return RoutingAction{Kind: lastKind, DestinationID: lastDestination, Amount: excess}, nil
}

// ForceSweep runs RouteExcess on every slot in ladder order, used after a
// VB reconfiguration leaves stale excess sitting in slots.
func (c *SlotCascade) ForceSweep(treasury TreasuryCredit) []RoutingAction {
	c.mu.RLock()
	ids := make([]string, len(c.slots))
	for i, s := range c.slots {
		ids[i] = s.ID
	}
	c.mu.RUnlock()

	actions := make([]RoutingAction, 0, len(ids))
	for _, id := range ids {
		action, err := c.RouteExcess(id, treasury)
		if err != nil {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// EnableDowngrade turns on the advisory demotion policy. No constructor in
// this repo calls it: demotion conflicts with the ladder's monotone
// fill-order guarantee, so it stays off unless wired up deliberately.
func (c *SlotCascade) EnableDowngrade() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downgradeEnabled = true
}

// EvaluateDowngrade reports whether a slot meets the advisory demotion
// criteria (>=5 trades with a win rate under 40%, or cumulative net flow
// under -15% of VB). It never mutates state. Always false while downgrade
// is disabled.
func (c *SlotCascade) EvaluateDowngrade(slotID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.downgradeEnabled {
		return false, nil
	}
	i, ok := c.index[slotID]
	if !ok {
		return false, fmt.Errorf("cascade: unknown slot %q", slotID)
	}
	s := c.slots[i]
	if s.TradesDone >= 5 {
		winRate := decimal.NewFromInt(int64(s.WinningTrades)).Div(decimal.NewFromInt(int64(s.TradesDone)))
		if winRate.LessThan(decimal.NewFromFloat(0.4)) {
			return true, nil
		}
	}
	netFlow := s.ProfitReceived.Sub(s.ProfitSent)
	if netFlow.Div(s.VB).LessThan(decimal.NewFromFloat(-0.15)) {
		return true, nil
	}
	return false, nil
}
