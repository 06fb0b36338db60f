package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capital currently held in a given slot
	SlotCapital = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cryptocascade_slot_capital_usd",
		Help: "Capital currently held in a slot, by slot id",
	}, []string{"slot_id"})

	// Slot operating status, 1 = OPERATING, 0 = BOOTSTRAP
	SlotStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cryptocascade_slot_status",
		Help: "Slot status (1=operating, 0=bootstrap), by slot id",
	}, []string{"slot_id"})

	// Treasury balance swept from the cascade ladder
	TreasuryBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptocascade_treasury_balance_usd",
		Help: "Capital swept to treasury after the slot ladder is fully funded",
	})

	// Settlements processed through the treasury router
	SettlementsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptocascade_settlements_processed_total",
		Help: "Number of settlements applied through the treasury router, by status",
	}, []string{"status"})

	// Open positions tracked by the trading orchestrator
	TradingOpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cryptocascade_trading_open_positions",
		Help: "Number of positions currently open across all slots",
	})

	// Consensus rounds that ended without a tradeable decision
	ConsensusNoDecision = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptocascade_consensus_no_decision_total",
		Help: "Number of consensus rounds that resolved to NO_CONSENSUS or HOLD, by symbol",
	}, []string{"symbol"})
)
