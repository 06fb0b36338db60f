package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// ScalpingAgent votes on short-term RSI extremes: oversold votes BUY,
// overbought votes SELL, anything in between votes HOLD.
type ScalpingAgent struct {
	id              string
	period          int
	oversoldLevel   float64
	overboughtLevel float64
}

// NewScalpingAgent builds a RSI-driven agent. A zero period defaults to 14,
// matching indicators.CalculateRSI.
func NewScalpingAgent(id string, period int) *ScalpingAgent {
	if period <= 0 {
		period = 14
	}
	return &ScalpingAgent{id: id, period: period, oversoldLevel: 30, overboughtLevel: 70}
}

func (a *ScalpingAgent) ID() string { return a.id }

func (a *ScalpingAgent) Analyze(_ context.Context, snapshot signals.MarketSnapshot) (signals.AgentVote, error) {
	if !snapshot.Valid() {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: snapshot has too little history", a.id)
	}

	rsi, err := sharedIndicators.CalculateRSI(snapshot.Closes, a.period)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}

	var signal signals.Signal
	var confidence float64
	switch {
	case rsi.Value <= a.oversoldLevel:
		signal = signals.SignalBuy
		confidence = clamp01((a.oversoldLevel - rsi.Value) / a.oversoldLevel)
	case rsi.Value >= a.overboughtLevel:
		signal = signals.SignalSell
		confidence = clamp01((rsi.Value - a.overboughtLevel) / (100 - a.overboughtLevel))
	default:
		signal = signals.SignalHold
		confidence = 1 - math.Abs(rsi.Value-50)/50
	}

	return signals.AgentVote{
		Signal:     signal,
		Confidence: confidence,
		Reason:     fmt.Sprintf("rsi=%.2f", rsi.Value),
		Indicators: map[string]interface{}{"rsi": rsi.Value},
	}, nil
}
