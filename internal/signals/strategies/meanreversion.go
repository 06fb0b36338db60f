package strategies

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// MeanReversionAgent votes on Bollinger Band touches: price at or below the
// lower band votes BUY, at or above the upper band votes SELL.
type MeanReversionAgent struct {
	id     string
	period int
}

// NewMeanReversionAgent builds a Bollinger-Bands-driven agent. A zero
// period defaults to 20, matching indicators.CalculateBollingerBands.
func NewMeanReversionAgent(id string, period int) *MeanReversionAgent {
	if period <= 0 {
		period = 20
	}
	return &MeanReversionAgent{id: id, period: period}
}

func (a *MeanReversionAgent) ID() string { return a.id }

func (a *MeanReversionAgent) Analyze(_ context.Context, snapshot signals.MarketSnapshot) (signals.AgentVote, error) {
	if !snapshot.Valid() {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: snapshot has too little history", a.id)
	}

	bb, err := sharedIndicators.CalculateBollingerBands(snapshot.Closes, a.period)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}

	var signal signals.Signal
	var confidence float64
	switch bb.Signal {
	case "buy":
		signal = signals.SignalBuy
		confidence = 0.75
	case "sell":
		signal = signals.SignalSell
		confidence = 0.75
	default:
		signal = signals.SignalHold
		confidence = 0.5
	}

	return signals.AgentVote{
		Signal:     signal,
		Confidence: confidence,
		Reason:     fmt.Sprintf("bb_signal=%s width=%.2f", bb.Signal, bb.Width),
		Indicators: map[string]interface{}{"upper": bb.Upper, "middle": bb.Middle, "lower": bb.Lower},
	}, nil
}
