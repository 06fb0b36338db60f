package indicators

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// DonchianResult represents the Donchian channel calculation result. The
// channel is computed over the window *excluding* the current bar, so a
// close beyond Upper/Lower is a genuine breakout rather than the bar
// defining its own channel.
type DonchianResult struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// CalculateDonchian calculates the Donchian channel from the prior period
// bars of highs/lows. Like ADX, the channel is computed directly rather
// than through cinar/indicator. A period <= 0 defaults to 20.
func (s *Service) CalculateDonchian(high, low []float64, period int) (*DonchianResult, error) {
	if period <= 0 {
		period = 20
	}
	if len(high) != len(low) {
		return nil, fmt.Errorf("high and low arrays must have the same length")
	}
	if len(high) <= period {
		return nil, fmt.Errorf("insufficient data: need more than %d bars, got %d", period, len(high))
	}

	n := len(high)
	windowHighs := high[n-period-1 : n-1]
	windowLows := low[n-period-1 : n-1]

	upper := windowHighs[0]
	for _, h := range windowHighs[1:] {
		if h > upper {
			upper = h
		}
	}
	lower := windowLows[0]
	for _, l := range windowLows[1:] {
		if l < lower {
			lower = l
		}
	}

	result := &DonchianResult{
		Upper:  upper,
		Middle: (upper + lower) / 2,
		Lower:  lower,
		Width:  upper - lower,
	}

	log.Debug().
		Float64("upper", upper).
		Float64("lower", lower).
		Int("period", period).
		Msg("Donchian channel calculated")

	return result, nil
}
