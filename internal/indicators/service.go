// Package indicators provides the technical indicator calculations the
// strategy agents vote from, built on cinar/indicator primitives where the
// library provides them and computed directly where it doesn't.
package indicators

import (
	"github.com/rs/zerolog/log"
)

// Service provides technical indicator calculations. It is stateless, so a
// single instance can be shared by every strategy agent.
type Service struct{}

// NewService creates a new indicator service
func NewService() *Service {
	log.Debug().Msg("Indicator service initialized")
	return &Service{}
}

// slice-to-channel adapter for cinar/indicator's channel-based Compute API.
func intoChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func drain(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}
