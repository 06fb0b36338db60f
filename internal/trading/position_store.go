package trading

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/cryptocascade/internal/db"
)

// EventType distinguishes the kinds of lifecycle events PositionStore
// publishes.
type EventType string

const (
	EventOpened EventType = "opened"
	EventClosed EventType = "closed"
	EventFailed EventType = "failed"
)

// LifecycleEvent is published whenever a position transitions state.
type LifecycleEvent struct {
	Type     EventType
	Position Position
}

const maxClosedHistory = 1000

// PositionStore owns the in-memory set of open and recently closed
// positions and fans out lifecycle events to any number of subscribers.
// It holds no exchange or network state, so it's safe to share across the
// executor and any reporting surface (alerts, API) that wants to observe
// fills without being on the hot path.
type PositionStore struct {
	mu     sync.RWMutex
	open   map[string]*Position
	closed []Position

	// Optional durable copy of every open/close transition. The in-memory
	// maps stay authoritative for the hot path; persistence failures are
	// logged, never propagated.
	persist *db.DB

	subMu   sync.Mutex
	subs    map[int]chan LifecycleEvent
	nextSub int
}

// NewPositionStore builds an empty store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		open: make(map[string]*Position),
		subs: make(map[int]chan LifecycleEvent),
	}
}

// WithPersistence attaches a database so positions survive restarts and
// feed the Kelly recalibration's closed-trade history. Nil-safe.
func (s *PositionStore) WithPersistence(database *db.DB) *PositionStore {
	s.persist = database
	return s
}

// Create registers a newly opened position and publishes EventOpened.
func (s *PositionStore) Create(p Position) {
	s.mu.Lock()
	cp := p.snapshot()
	s.open[p.ID] = &cp
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.InsertPosition(context.Background(), toDBPosition(p)); err != nil {
			log.Error().Err(err).Str("position_id", p.ID).Msg("trading: failed to persist opened position")
		}
	}

	s.publish(LifecycleEvent{Type: EventOpened, Position: p.snapshot()})
}

// CloseOut moves a position from open to closed and publishes either
// EventClosed or EventFailed depending on p.Status.
func (s *PositionStore) CloseOut(p Position) {
	s.mu.Lock()
	delete(s.open, p.ID)
	s.closed = append(s.closed, p.snapshot())
	if len(s.closed) > maxClosedHistory {
		s.closed = s.closed[len(s.closed)-maxClosedHistory:]
	}
	s.mu.Unlock()

	evt := EventClosed
	if p.Status == StatusFailed {
		evt = EventFailed
	} else if s.persist != nil {
		err := s.persist.ClosePosition(
			context.Background(),
			p.ID,
			p.ExitPrice.InexactFloat64(),
			string(p.CloseReason),
			p.GrossUsd.InexactFloat64(),
			p.FeesUsd.InexactFloat64(),
			p.NetUsd.InexactFloat64(),
		)
		if err != nil {
			log.Error().Err(err).Str("position_id", p.ID).Msg("trading: failed to persist closed position")
		}
	}
	s.publish(LifecycleEvent{Type: evt, Position: p.snapshot()})
}

// Update overwrites the stored copy of an open position, e.g. after
// recomputing its TP/SL or noting a retry attempt. It does not publish an
// event; only open/close transitions are reported to subscribers.
func (s *PositionStore) Update(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[p.ID]; ok {
		cp := p.snapshot()
		s.open[p.ID] = &cp
	}
}

// Get returns an open position by ID.
func (s *PositionStore) Get(id string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.open[id]
	if !ok {
		return Position{}, false
	}
	return p.snapshot(), true
}

// OpenPositions returns a snapshot of all currently open positions.
func (s *PositionStore) OpenPositions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Position, 0, len(s.open))
	for _, p := range s.open {
		out = append(out, p.snapshot())
	}
	return out
}

// BySlot returns the open positions attributed to a given slot.
func (s *PositionStore) BySlot(slotID string) []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Position
	for _, p := range s.open {
		if p.SlotID == slotID {
			out = append(out, p.snapshot())
		}
	}
	return out
}

// ClosedPositions returns up to limit most-recently-closed positions,
// newest last. A limit <= 0 returns the full bounded history.
func (s *PositionStore) ClosedPositions(limit int) []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit >= len(s.closed) {
		out := make([]Position, len(s.closed))
		copy(out, s.closed)
		return out
	}
	out := make([]Position, limit)
	copy(out, s.closed[len(s.closed)-limit:])
	return out
}

// Subscribe returns a channel that receives every future lifecycle event
// and an unsubscribe func. The channel is buffered; a slow subscriber drops
// events rather than blocking the executor.
func (s *PositionStore) Subscribe() (<-chan LifecycleEvent, func()) {
	ch := make(chan LifecycleEvent, 64)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

func toDBPosition(p Position) *db.Position {
	return &db.Position{
		ID:            p.ID,
		SlotID:        p.SlotID,
		Venue:         p.Venue,
		Symbol:        p.Symbol,
		Side:          db.ConvertPositionSide(string(p.Side)),
		EntryPrice:    p.EntryPrice.InexactFloat64(),
		Quantity:      p.AmountBase.InexactFloat64(),
		NotionalQuote: p.NotionalQuote.InexactFloat64(),
		TakeProfit:    p.TPPrice.InexactFloat64(),
		StopLoss:      p.SLPrice.InexactFloat64(),
		EntryTime:     p.OpenedAt,
	}
}

func (s *PositionStore) publish(evt LifecycleEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
