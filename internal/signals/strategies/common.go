// Package strategies holds the concrete AgentSignal implementations the
// agent registry wires into internal/signals.Engine: one per configured
// strategy type (SCALPING, TREND, MEAN_REVERSION, MOMENTUM, BREAKOUT).
package strategies

import (
	"github.com/ajitpratap0/cryptocascade/internal/indicators"
)

// sharedIndicators is stateless (see indicators.Service), so every strategy
// in this package can use one instance.
var sharedIndicators = indicators.NewService()

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
