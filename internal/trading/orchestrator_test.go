package trading

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

type fakeAgent struct {
	id     string
	signal signals.Signal
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) Analyze(_ context.Context, _ signals.MarketSnapshot) (signals.AgentVote, error) {
	return signals.AgentVote{AgentID: a.id, Signal: a.signal, Confidence: 0.9}, nil
}

func risingSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestTradingOrchestratorOpensPositionOnConsensus(t *testing.T) {
	exec, _, _, slots, _ := newTestExecutor(t)

	engine := signals.NewEngine(1, 0.5)
	engine.Register(&fakeAgent{id: "a1", signal: signals.SignalBuy}, 1.0)

	snap := signals.MarketSnapshot{
		Symbol: "BTC/USDT",
		Closes: risingSeries(40, 100, 1),
		Highs:  risingSeries(40, 101, 1),
		Lows:   risingSeries(40, 99, 1),
	}
	snapshotFn := func(symbol string) (signals.MarketSnapshot, error) { return snap, nil }

	orch := NewOrchestrator(
		zerolog.Nop(),
		OrchestratorConfig{Venue: "binance", Symbols: []string{"BTC/USDT"}, StepInterval: time.Millisecond},
		engine, slots, exec, snapshotFn, nil,
	)

	orch.step(context.Background())

	open := exec.store.OpenPositions()
	require.Len(t, open, 1)
	require.Equal(t, SideLong, open[0].Side)
}

func TestTradingOrchestratorSkipsOnNoConsensus(t *testing.T) {
	exec, _, _, slots, _ := newTestExecutor(t)

	engine := signals.NewEngine(2, 0.9)
	engine.Register(&fakeAgent{id: "a1", signal: signals.SignalBuy}, 1.0)
	engine.Register(&fakeAgent{id: "a2", signal: signals.SignalSell}, 1.0)

	snap := signals.MarketSnapshot{
		Symbol: "BTC/USDT",
		Closes: risingSeries(40, 100, 1),
		Highs:  risingSeries(40, 101, 1),
		Lows:   risingSeries(40, 99, 1),
	}
	snapshotFn := func(symbol string) (signals.MarketSnapshot, error) { return snap, nil }

	orch := NewOrchestrator(
		zerolog.Nop(),
		OrchestratorConfig{Venue: "binance", Symbols: []string{"BTC/USDT"}, StepInterval: time.Millisecond},
		engine, slots, exec, snapshotFn, nil,
	)

	orch.step(context.Background())

	require.Len(t, exec.store.OpenPositions(), 0)
	require.Equal(t, 1, orch.NoConsensusCount())
}

func TestTradingOrchestratorRunFlattensOnShutdown(t *testing.T) {
	exec, _, prices, slots, _ := newTestExecutor(t)
	_ = prices

	engine := signals.NewEngine(1, 0.5)
	engine.Register(&fakeAgent{id: "a1", signal: signals.SignalHold}, 1.0)

	snapshotFn := func(symbol string) (signals.MarketSnapshot, error) {
		return signals.MarketSnapshot{}, nil
	}

	orch := NewOrchestrator(
		zerolog.Nop(),
		OrchestratorConfig{Venue: "binance", Symbols: []string{"BTC/USDT"}, StepInterval: time.Millisecond},
		engine, slots, exec, snapshotFn, nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := orch.Run(ctx)
	require.NoError(t, err)
}
