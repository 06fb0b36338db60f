// Package signals fuses independent strategy-agent votes into one trade
// decision per symbol per round.
package signals

import (
	"context"
	"time"
)

// Signal is a single agent's directional call.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Outcome is the fused result of one consensus round. It reuses Signal's
// values plus the NO_CONSENSUS fallback.
type Outcome string

const (
	OutcomeBuy         Outcome = "BUY"
	OutcomeSell        Outcome = "SELL"
	OutcomeHold        Outcome = "HOLD"
	OutcomeNoConsensus Outcome = "NO_CONSENSUS"
)

const minSnapshotSamples = 30

// MarketSnapshot is an immutable view of recent OHLCV history for one
// symbol, handed to every agent in a round. Price series stay float64:
// this is external market data, not ledger state (see DESIGN.md).
type MarketSnapshot struct {
	Venue     string
	Symbol    string
	Closes    []float64
	Highs     []float64
	Lows      []float64
	Volumes   []float64
	Timestamp time.Time
}

// Valid reports whether the snapshot carries enough history to analyze.
func (m MarketSnapshot) Valid() bool {
	return len(m.Closes) >= minSnapshotSamples &&
		len(m.Highs) >= minSnapshotSamples &&
		len(m.Lows) >= minSnapshotSamples
}

// AgentVote is one agent's signal for a single consensus round.
type AgentVote struct {
	AgentID    string
	Signal     Signal
	Confidence float64
	Weight     float64
	Reason     string
	Indicators map[string]interface{}
}

// ConsensusResult is the fused outcome of one round of voting.
type ConsensusResult struct {
	Symbol     string
	Outcome    Outcome
	Confidence float64
	Scores     map[Signal]float64
	VoteTally  int
	Supporters []string
	Reason     string
	Timestamp  time.Time
}

// AgentSignal is the port every pluggable strategy agent implements.
type AgentSignal interface {
	ID() string
	Analyze(ctx context.Context, snapshot MarketSnapshot) (AgentVote, error)
}
