package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/volatility"
	"github.com/rs/zerolog/log"
)

// BollingerBandsResult represents the Bollinger Bands calculation result
type BollingerBandsResult struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`  // band width as percent of the middle band
	Signal string  `json:"signal"` // "buy", "sell", "neutral"
}

// CalculateBollingerBands calculates Bollinger Bands at the conventional 2
// standard deviations. A period <= 0 defaults to 20.
func (s *Service) CalculateBollingerBands(prices []float64, period int) (*BollingerBandsResult, error) {
	if period <= 0 {
		period = 20
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("prices array is empty")
	}
	if period < 2 || period > len(prices) {
		return nil, fmt.Errorf("invalid period: %d (must be between 2 and %d)", period, len(prices))
	}

	bbIndicator := volatility.NewBollingerBandsWithPeriod[float64](period)
	upperChan, middleChan, lowerChan := bbIndicator.Compute(intoChan(prices))

	var lowerValues, middleValues, upperValues []float64
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lowerValues = append(lowerValues, l)
		middleValues = append(middleValues, m)
		upperValues = append(upperValues, u)
	}

	if len(middleValues) == 0 {
		return nil, fmt.Errorf("no Bollinger Bands values calculated")
	}

	currentUpper := upperValues[len(upperValues)-1]
	currentMiddle := middleValues[len(middleValues)-1]
	currentLower := lowerValues[len(lowerValues)-1]
	currentPrice := prices[len(prices)-1]

	bandWidth := ((currentUpper - currentLower) / currentMiddle) * 100

	signal := "neutral"
	if currentPrice <= currentLower {
		signal = "buy"
	} else if currentPrice >= currentUpper {
		signal = "sell"
	}

	log.Debug().
		Float64("upper", currentUpper).
		Float64("middle", currentMiddle).
		Float64("lower", currentLower).
		Float64("current_price", currentPrice).
		Str("signal", signal).
		Msg("Bollinger Bands calculated")

	return &BollingerBandsResult{
		Upper:  currentUpper,
		Middle: currentMiddle,
		Lower:  currentLower,
		Width:  bandWidth,
		Signal: signal,
	}, nil
}
