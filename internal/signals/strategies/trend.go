package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// crossoverConfidenceScale converts a fractional EMA spread (e.g. 0.01 =
// 1% apart) into a 0-1 confidence, saturating once the spread reaches 10%.
const crossoverConfidenceScale = 10

// adxWeakDampen halves a crossover's confidence when ADX says the trend
// behind it is weak, so a flat chop doesn't read as conviction.
const adxWeakDampen = 0.5

// TrendAgent votes on a fast/slow EMA crossover: fast above slow votes BUY,
// fast below slow votes SELL. ADX modulates the confidence: a crossover
// inside a weak trend is dampened, one inside a strong trend stands.
type TrendAgent struct {
	id         string
	fastPeriod int
	slowPeriod int
	adxPeriod  int
}

// NewTrendAgent builds an EMA-crossover agent. Zero periods default to a
// 12/26 fast/slow pair with a 14-bar ADX.
func NewTrendAgent(id string, fastPeriod, slowPeriod int) *TrendAgent {
	if fastPeriod <= 0 {
		fastPeriod = 12
	}
	if slowPeriod <= 0 {
		slowPeriod = 26
	}
	return &TrendAgent{id: id, fastPeriod: fastPeriod, slowPeriod: slowPeriod, adxPeriod: 14}
}

func (a *TrendAgent) ID() string { return a.id }

func (a *TrendAgent) Analyze(_ context.Context, snapshot signals.MarketSnapshot) (signals.AgentVote, error) {
	if !snapshot.Valid() {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: snapshot has too little history", a.id)
	}

	fastEMA, err := sharedIndicators.CalculateEMA(snapshot.Closes, a.fastPeriod)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}
	slowEMA, err := sharedIndicators.CalculateEMA(snapshot.Closes, a.slowPeriod)
	if err != nil {
		return signals.AgentVote{}, fmt.Errorf("strategies: %s: %w", a.id, err)
	}

	spread := (fastEMA.Value - slowEMA.Value) / slowEMA.Value
	var signal signals.Signal
	switch {
	case fastEMA.Value > slowEMA.Value:
		signal = signals.SignalBuy
	case fastEMA.Value < slowEMA.Value:
		signal = signals.SignalSell
	default:
		signal = signals.SignalHold
	}

	confidence := clamp01(math.Abs(spread) * crossoverConfidenceScale)

	adxValue := 0.0
	adx, adxErr := sharedIndicators.CalculateADX(snapshot.Highs, snapshot.Lows, snapshot.Closes, a.adxPeriod)
	if adxErr == nil {
		adxValue = adx.Value
		if adx.Strength == "weak" {
			confidence *= adxWeakDampen
		}
	}

	return signals.AgentVote{
		Signal:     signal,
		Confidence: confidence,
		Reason:     fmt.Sprintf("ema%d=%.4f ema%d=%.4f adx=%.1f", a.fastPeriod, fastEMA.Value, a.slowPeriod, slowEMA.Value, adxValue),
		Indicators: map[string]interface{}{"fast_ema": fastEMA.Value, "slow_ema": slowEMA.Value, "adx": adxValue},
	}, nil
}
