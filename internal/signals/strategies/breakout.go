package strategies

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// BreakoutAgent votes on a Donchian-channel breakout: a close above the
// highest high of the lookback window (excluding the current bar) votes
// BUY, a close below the lowest low votes SELL.
type BreakoutAgent struct {
	id     string
	period int
}

// NewBreakoutAgent builds a Donchian-channel agent. A zero period defaults
// to 20 bars.
func NewBreakoutAgent(id string, period int) *BreakoutAgent {
	if period <= 0 {
		period = 20
	}
	return &BreakoutAgent{id: id, period: period}
}

func (a *BreakoutAgent) ID() string { return a.id }

func (a *BreakoutAgent) Analyze(_ context.Context, snapshot signals.MarketSnapshot) (signals.AgentVote, error) {
	if !snapshot.Valid() {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: snapshot has too little history", a.id)
	}

	channel, err := sharedIndicators.CalculateDonchian(snapshot.Highs, snapshot.Lows, a.period)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}

	price := snapshot.Closes[len(snapshot.Closes)-1]

	var signal signals.Signal
	var confidence float64
	switch {
	case price > channel.Upper:
		signal = signals.SignalBuy
		confidence = breakoutConfidence(price-channel.Upper, channel.Width)
	case price < channel.Lower:
		signal = signals.SignalSell
		confidence = breakoutConfidence(channel.Lower-price, channel.Width)
	default:
		signal = signals.SignalHold
		confidence = 0.5
	}

	return signals.AgentVote{
		Signal:     signal,
		Confidence: confidence,
		Reason:     fmt.Sprintf("donchian high=%.4f low=%.4f price=%.4f", channel.Upper, channel.Lower, price),
		Indicators: map[string]interface{}{"highest_high": channel.Upper, "lowest_low": channel.Lower},
	}, nil
}

func breakoutConfidence(penetration, channelWidth float64) float64 {
	if channelWidth <= 0 {
		return 0.75
	}
	return clamp01(0.5 + penetration/channelWidth)
}
