package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/momentum"
	"github.com/rs/zerolog/log"
)

// RSIResult represents the RSI calculation result
type RSIResult struct {
	Value  float64 `json:"value"`
	Signal string  `json:"signal"` // "oversold", "overbought", "neutral"
}

// CalculateRSI calculates the Relative Strength Index. A period <= 0
// defaults to 14.
func (s *Service) CalculateRSI(prices []float64, period int) (*RSIResult, error) {
	if period <= 0 {
		period = 14
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("prices array is empty")
	}
	if period > len(prices) {
		return nil, fmt.Errorf("invalid period: %d (must be between 1 and %d)", period, len(prices))
	}

	rsiIndicator := momentum.NewRsiWithPeriod[float64](period)
	rsiValues := drain(rsiIndicator.Compute(intoChan(prices)))
	if len(rsiValues) == 0 {
		return nil, fmt.Errorf("no RSI values calculated")
	}

	currentRSI := rsiValues[len(rsiValues)-1]

	signal := "neutral"
	if currentRSI < 30 {
		signal = "oversold"
	} else if currentRSI > 70 {
		signal = "overbought"
	}

	log.Debug().
		Float64("rsi", currentRSI).
		Str("signal", signal).
		Msg("RSI calculated")

	return &RSIResult{Value: currentRSI, Signal: signal}, nil
}
