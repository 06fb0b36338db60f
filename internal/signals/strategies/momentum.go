package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// MomentumAgent votes on a MACD histogram crossover: a bullish crossover
// votes BUY, a bearish crossover votes SELL, otherwise HOLD.
type MomentumAgent struct {
	id           string
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMomentumAgent builds a MACD-driven agent. Zero periods default to the
// conventional 12/26/9.
func NewMomentumAgent(id string, fastPeriod, slowPeriod, signalPeriod int) *MomentumAgent {
	if fastPeriod <= 0 {
		fastPeriod = 12
	}
	if slowPeriod <= 0 {
		slowPeriod = 26
	}
	if signalPeriod <= 0 {
		signalPeriod = 9
	}
	return &MomentumAgent{id: id, fastPeriod: fastPeriod, slowPeriod: slowPeriod, signalPeriod: signalPeriod}
}

func (a *MomentumAgent) ID() string { return a.id }

func (a *MomentumAgent) Analyze(_ context.Context, snapshot signals.MarketSnapshot) (signals.AgentVote, error) {
	if !snapshot.Valid() {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: snapshot has too little history", a.id)
	}

	macd, err := sharedIndicators.CalculateMACD(snapshot.Closes, a.fastPeriod, a.slowPeriod, a.signalPeriod)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}

	var signal signals.Signal
	switch macd.Crossover {
	case "bullish":
		signal = signals.SignalBuy
	case "bearish":
		signal = signals.SignalSell
	default:
		signal = signals.SignalHold
	}

	confidence := clamp01(math.Abs(macd.Histogram) / math.Max(math.Abs(macd.MACD), 1e-9))

	return signals.AgentVote{
		Signal:     signal,
		Confidence: confidence,
		Reason:     fmt.Sprintf("macd_crossover=%s histogram=%.4f", macd.Crossover, macd.Histogram),
		Indicators: map[string]interface{}{"macd": macd.MACD, "signal": macd.Signal, "histogram": macd.Histogram},
	}, nil
}
