package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/trend"
	"github.com/rs/zerolog/log"
)

// EMAResult represents the EMA calculation result
type EMAResult struct {
	Value float64 `json:"value"`
	Trend string  `json:"trend"` // "bullish", "bearish", "neutral"
}

// CalculateEMA calculates the Exponential Moving Average over period.
func (s *Service) CalculateEMA(prices []float64, period int) (*EMAResult, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("prices array is empty")
	}
	if period < 1 || period > len(prices) {
		return nil, fmt.Errorf("invalid period: %d (must be between 1 and %d)", period, len(prices))
	}

	emaIndicator := trend.NewEmaWithPeriod[float64](period)
	emaValues := drain(emaIndicator.Compute(intoChan(prices)))
	if len(emaValues) == 0 {
		return nil, fmt.Errorf("no EMA values calculated")
	}

	currentEMA := emaValues[len(emaValues)-1]
	currentPrice := prices[len(prices)-1]

	trendSignal := "neutral"
	if currentPrice > currentEMA {
		trendSignal = "bullish"
	} else if currentPrice < currentEMA {
		trendSignal = "bearish"
	}

	log.Debug().
		Float64("ema", currentEMA).
		Float64("current_price", currentPrice).
		Str("trend", trendSignal).
		Msg("EMA calculated")

	return &EMAResult{Value: currentEMA, Trend: trendSignal}, nil
}
