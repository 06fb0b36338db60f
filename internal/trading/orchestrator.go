package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/cascade"
	"github.com/ajitpratap0/cryptocascade/internal/metrics"
	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// Defaults for the per-cycle gates: minimum decision confidence and the
// per-venue concurrency cap.
const (
	DefaultMinConfidence         = 0.70
	DefaultMaxConcurrentPositions = 5
)

// OrchestratorConfig tunes the per-cycle trading loop.
type OrchestratorConfig struct {
	Venue        string
	Symbols      []string
	StepInterval time.Duration

	// MinConfidence gates a BUY/SELL decision before it reaches the
	// executor. <= 0 falls back to 0.70.
	MinConfidence float64
	// MaxConcurrentPositions caps how many simultaneously open positions
	// this venue may carry. <= 0 falls back to 5.
	MaxConcurrentPositions int
	// MinFreeCapital is the per-cycle threshold below which a symbol is
	// silently skipped (default 1 quote unit).
	MinFreeCapital decimal.Decimal
}

// Orchestrator runs the decision-to-settlement loop: each step it asks the
// consensus engine for a verdict per symbol, opens a position against the
// next eligible slot on a BUY/SELL decision, and polls every open position
// for a TP/SL exit.
type Orchestrator struct {
	log      zerolog.Logger
	cfg      OrchestratorConfig
	engine   *signals.Engine
	cascade  *cascade.SlotCascade
	executor *PositionExecutor
	snapshot func(symbol string) (signals.MarketSnapshot, error)
	notify   NotificationPort

	noConsensusCount int
}

// NewOrchestrator wires the trading loop from its collaborators.
// snapshotFn supplies the latest market data for a symbol, sourced from
// whatever feed the exchange package already maintains.
func NewOrchestrator(
	log zerolog.Logger,
	cfg OrchestratorConfig,
	engine *signals.Engine,
	slots *cascade.SlotCascade,
	executor *PositionExecutor,
	snapshotFn func(symbol string) (signals.MarketSnapshot, error),
	notify NotificationPort,
) *Orchestrator {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.MaxConcurrentPositions <= 0 {
		cfg.MaxConcurrentPositions = DefaultMaxConcurrentPositions
	}
	if cfg.MinFreeCapital.IsZero() {
		cfg.MinFreeCapital = decimal.NewFromInt(1)
	}
	return &Orchestrator{
		log:      log.With().Str("component", "trading_orchestrator").Logger(),
		cfg:      cfg,
		engine:   engine,
		cascade:  slots,
		executor: executor,
		snapshot: snapshotFn,
		notify:   notify,
	}
}

// Run drives the loop until ctx is cancelled, flattening every open
// position before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info().Msg("starting trading orchestrator run loop")

	interval := o.cfg.StepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("trading orchestrator stopping, flattening open positions")
			o.executor.CloseAll(context.Background())
			return nil
		case <-ticker.C:
			o.step(ctx)
		}
	}
}

func (o *Orchestrator) step(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.RecordOrchestratorLatency(float64(time.Since(start).Milliseconds()))
	}()

	o.executor.PollExits(ctx)
	o.refreshMetrics()

	openForVenue := 0
	for _, p := range o.executor.store.OpenPositions() {
		if p.Venue == o.cfg.Venue {
			openForVenue++
		}
	}

	for _, symbol := range o.cfg.Symbols {
		snap, err := o.snapshot(symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol, no market snapshot")
			continue
		}

		result := o.engine.Decide(ctx, snap)

		decisive := result.Outcome == signals.OutcomeBuy || result.Outcome == signals.OutcomeSell
		if !decisive || result.Confidence < o.cfg.MinConfidence {
			o.noConsensusCount++
			metrics.ConsensusNoDecision.WithLabelValues(symbol).Inc()
			continue
		}

		if openForVenue >= o.cfg.MaxConcurrentPositions {
			o.log.Debug().Str("symbol", symbol).Int("open", openForVenue).Msg("skipping symbol, venue at concurrency cap")
			continue
		}

		if o.freeCapital().LessThan(o.cfg.MinFreeCapital) {
			o.log.Debug().Str("symbol", symbol).Msg("skipping symbol, free capital below minimum threshold")
			continue
		}

		side := SideLong
		if result.Outcome == signals.OutcomeSell {
			side = SideShort
		}

		pos, err := o.executor.Open(ctx, "", o.cfg.Venue, symbol, side, result.Confidence)
		if err != nil {
			metrics.RecordError("open_position_failed", "trading_orchestrator")
			o.log.Error().Err(err).Str("symbol", symbol).Msg("failed to open position")
			continue
		}
		openForVenue++
		pos.Supporters = result.Supporters
		if o.notify != nil {
			o.notify.TradeOpened(ctx, pos, result)
		}
	}
}

// freeCapital sums FreeCapital across every slot in the ladder, used to
// decide whether a cycle has anything left to deploy.
func (o *Orchestrator) freeCapital() decimal.Decimal {
	total := decimal.Zero
	for _, slot := range o.cascade.Slots() {
		total = total.Add(o.executor.FreeCapital(slot.ID))
	}
	return total
}

// NoConsensusCount returns how many times the loop has seen a
// no-consensus or hold outcome, for reporting/metrics.
func (o *Orchestrator) NoConsensusCount() int {
	return o.noConsensusCount
}

func (o *Orchestrator) refreshMetrics() {
	for _, slot := range o.cascade.Slots() {
		capital, _ := slot.Capital.Float64()
		metrics.SlotCapital.WithLabelValues(slot.ID).Set(capital)
		status := 0.0
		if slot.Status == cascade.StatusOperating {
			status = 1.0
		}
		metrics.SlotStatus.WithLabelValues(slot.ID).Set(status)
	}
	metrics.TradingOpenPositions.Set(float64(len(o.executor.store.OpenPositions())))
}
