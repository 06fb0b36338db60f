package signals

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/cryptocascade/internal/metrics"
)

const (
	// DefaultMinAgentsVoting and DefaultConsensusThreshold match the
	// original system's defaults (min_agents_voting=2, consensus_threshold=0.65).
	DefaultMinAgentsVoting    = 2
	DefaultConsensusThreshold = 0.65

	maxDecisionHistory = 1000
)

type agentRegistration struct {
	agent  AgentSignal
	weight float64
}

// Engine is the weighted-voting consensus engine: every registered agent
// votes each round, votes are weighted and normalized by the total weight
// of everyone who voted (not just the winning signal's supporters), and the
// highest-scoring signal wins if it clears the consensus threshold.
type Engine struct {
	mu                 sync.RWMutex
	agents             map[string]*agentRegistration
	order              []string
	minAgentsVoting    int
	consensusThreshold float64
	history            []ConsensusResult
}

// NewEngine builds a consensus engine. minAgentsVoting and
// consensusThreshold fall back to the package defaults when <= 0.
func NewEngine(minAgentsVoting int, consensusThreshold float64) *Engine {
	if minAgentsVoting <= 0 {
		minAgentsVoting = DefaultMinAgentsVoting
	}
	if consensusThreshold <= 0 {
		consensusThreshold = DefaultConsensusThreshold
	}
	return &Engine{
		agents:             make(map[string]*agentRegistration),
		minAgentsVoting:    minAgentsVoting,
		consensusThreshold: consensusThreshold,
	}
}

// Register adds an agent to the voting pool with an initial weight.
func (e *Engine) Register(agent AgentSignal, weight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := agent.ID()
	if _, exists := e.agents[id]; !exists {
		e.order = append(e.order, id)
	}
	e.agents[id] = &agentRegistration{agent: agent, weight: weight}
}

// UpdateWeight changes an agent's voting weight. Subsequent rounds see the
// new weight; in-flight rounds are unaffected.
func (e *Engine) UpdateWeight(agentID string, weight float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	reg, ok := e.agents[agentID]
	if !ok {
		return fmt.Errorf("signals: unknown agent %q", agentID)
	}
	updated := *reg
	updated.weight = weight
	e.agents[agentID] = &updated
	return nil
}

// Decide runs one round of weighted voting over every registered agent for
// the given snapshot.
func (e *Engine) Decide(ctx context.Context, snapshot MarketSnapshot) ConsensusResult {
	e.mu.RLock()
	registrations := make([]*agentRegistration, 0, len(e.order))
	for _, id := range e.order {
		registrations = append(registrations, e.agents[id])
	}
	minAgentsVoting := e.minAgentsVoting
	threshold := e.consensusThreshold
	e.mu.RUnlock()

	if len(registrations) == 0 {
		result := ConsensusResult{
			Symbol:    snapshot.Symbol,
			Outcome:   OutcomeNoConsensus,
			Reason:    "no agents",
			Timestamp: time.Now(),
		}
		e.record(result)
		return result
	}

	votes := make([]AgentVote, 0, len(registrations))
	for _, reg := range registrations {
		start := time.Now()
		vote, err := reg.agent.Analyze(ctx, snapshot)
		metrics.RecordAgentProcessing(reg.agent.ID(), float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.SetAgentStatus(reg.agent.ID(), false)
			log.Warn().Err(err).Str("agent", reg.agent.ID()).Msg("signals: agent failed, skipping vote")
			continue
		}
		metrics.SetAgentStatus(reg.agent.ID(), true)
		vote.AgentID = reg.agent.ID()
		vote.Weight = reg.weight
		votes = append(votes, vote)
		metrics.RecordAgentSignal(reg.agent.ID(), string(vote.Signal), vote.Confidence)
	}
	metrics.ActiveAgents.Set(float64(len(votes)))

	var result ConsensusResult
	if len(votes) < minAgentsVoting {
		result = ConsensusResult{
			Symbol:    snapshot.Symbol,
			Outcome:   OutcomeNoConsensus,
			Reason:    "insufficient votes",
			VoteTally: len(votes),
			Timestamp: time.Now(),
		}
	} else {
		result = fuse(snapshot.Symbol, votes, threshold)
	}

	e.record(result)
	metrics.RecordVotingResult(string(result.Outcome))
	return result
}

func fuse(symbol string, votes []AgentVote, threshold float64) ConsensusResult {
	weighted := map[Signal]float64{SignalBuy: 0, SignalSell: 0, SignalHold: 0}
	totalWeight := 0.0
	for _, v := range votes {
		weighted[v.Signal] += v.Confidence * v.Weight
		totalWeight += v.Weight
	}

	scores := map[Signal]float64{}
	for signal, sum := range weighted {
		if totalWeight > 0 {
			scores[signal] = sum / totalWeight
		}
	}

	winner, winnerScore := pickWinner(scores)

	if winnerScore < threshold {
		return ConsensusResult{
			Symbol:     symbol,
			Outcome:    OutcomeNoConsensus,
			Confidence: winnerScore,
			Scores:     scores,
			VoteTally:  len(votes),
			Reason:     fmt.Sprintf("%s score %.4f below threshold %.4f", winner, winnerScore, threshold),
			Timestamp:  time.Now(),
		}
	}

	supporters := make([]string, 0, len(votes))
	reasons := make([]string, 0, 3)
	for _, v := range votes {
		if v.Signal == winner {
			supporters = append(supporters, v.AgentID)
			if len(reasons) < 3 && v.Reason != "" {
				reasons = append(reasons, v.Reason)
			}
		}
	}

	return ConsensusResult{
		Symbol:     symbol,
		Outcome:    Outcome(winner),
		Confidence: winnerScore,
		Scores:     scores,
		VoteTally:  len(votes),
		Supporters: supporters,
		Reason:     strings.Join(reasons, " | "),
		Timestamp:  time.Now(),
	}
}

// pickWinner breaks ties in a fixed BUY > SELL > HOLD order so Decide is
// deterministic given identical scores.
func pickWinner(scores map[Signal]float64) (Signal, float64) {
	order := []Signal{SignalBuy, SignalSell, SignalHold}
	best := order[0]
	bestScore := scores[best]
	for _, s := range order[1:] {
		if scores[s] > bestScore {
			best = s
			bestScore = scores[s]
		}
	}
	return best, bestScore
}

func (e *Engine) record(result ConsensusResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, result)
	if len(e.history) > maxDecisionHistory {
		e.history = e.history[len(e.history)-maxDecisionHistory:]
	}
}

// History returns up to limit of the most recent decisions (all of them
// when limit <= 0).
func (e *Engine) History(limit int) []ConsensusResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if limit <= 0 || limit > len(e.history) {
		limit = len(e.history)
	}
	out := make([]ConsensusResult, limit)
	copy(out, e.history[len(e.history)-limit:])
	return out
}
