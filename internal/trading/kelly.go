package trading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/cryptocascade/internal/db"
)

// TradingStats holds the realized-P&L statistics a Kelly calculation needs.
type TradingStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgWin        float64
	AvgLoss       float64
	WinRate       float64
	AvgReturn     float64
	TotalProfit   float64
	TotalLoss     float64
	LargestWin    float64
	LargestLoss   float64
	WinLossRatio  float64
}

// KellyCalculator derives a risk-per-trade percentage from a venue's closed
// position history, used to periodically recalibrate PositionExecutor's
// riskPerTradePct instead of leaving it fixed at the config default forever.
type KellyCalculator struct {
	db *db.DB
}

// NewKellyCalculator creates a new Kelly Criterion calculator.
func NewKellyCalculator(database *db.DB) *KellyCalculator {
	return &KellyCalculator{db: database}
}

// CalculateStats computes trading statistics for a venue from closed
// positions in the database.
func (kc *KellyCalculator) CalculateStats(ctx context.Context, venue string) (*TradingStats, error) {
	if kc.db == nil {
		return nil, fmt.Errorf("database connection required for historical stats")
	}

	query := `
		SELECT
			COUNT(*) as total_trades,
			COUNT(*) FILTER (WHERE realized_pnl > 0) as winning_trades,
			COUNT(*) FILTER (WHERE realized_pnl <= 0) as losing_trades,
			COALESCE(AVG(realized_pnl) FILTER (WHERE realized_pnl > 0), 0) as avg_win,
			COALESCE(ABS(AVG(realized_pnl)) FILTER (WHERE realized_pnl <= 0), 0) as avg_loss,
			COALESCE(SUM(realized_pnl) FILTER (WHERE realized_pnl > 0), 0) as total_profit,
			COALESCE(ABS(SUM(realized_pnl)) FILTER (WHERE realized_pnl <= 0), 0) as total_loss,
			COALESCE(MAX(realized_pnl), 0) as largest_win,
			COALESCE(ABS(MIN(realized_pnl)), 0) as largest_loss
		FROM positions
		WHERE venue = $1
		  AND exit_time IS NOT NULL
	`

	var stats TradingStats
	row := kc.db.Pool().QueryRow(ctx, query, venue)

	err := row.Scan(
		&stats.TotalTrades,
		&stats.WinningTrades,
		&stats.LosingTrades,
		&stats.AvgWin,
		&stats.AvgLoss,
		&stats.TotalProfit,
		&stats.TotalLoss,
		&stats.LargestWin,
		&stats.LargestLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading stats: %w", err)
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
		stats.AvgReturn = (stats.TotalProfit - stats.TotalLoss) / float64(stats.TotalTrades)
	}
	if stats.AvgLoss > 0 {
		stats.WinLossRatio = stats.AvgWin / stats.AvgLoss
	}

	return &stats, nil
}

// CalculateRiskPct returns the risk-per-trade percentage (0-100) Kelly
// Criterion recommends for the next trade, given stats and a fractional
// Kelly multiplier (0.25-0.5 is typical; full Kelly is too aggressive for
// live capital).
//
// f* = (p*b - q) / b, where p = win rate, q = 1-p, b = win/loss ratio.
func (kc *KellyCalculator) CalculateRiskPct(stats *TradingStats, kellyFraction float64) float64 {
	const (
		minTrades          = 30
		conservativeRiskPct = 10.0
		minimalRiskPct      = 1.0
		maxRiskPct          = 25.0
	)

	if stats.TotalTrades < minTrades {
		log.Debug().Int("total_trades", stats.TotalTrades).Msg("not enough closed positions for Kelly Criterion, using conservative default")
		return conservativeRiskPct
	}
	if stats.WinRate <= 0 || stats.WinRate >= 1 {
		log.Warn().Float64("win_rate", stats.WinRate).Msg("invalid win rate, using conservative default")
		return conservativeRiskPct
	}
	if stats.AvgWin <= 0 || stats.AvgLoss <= 0 {
		log.Warn().Float64("avg_win", stats.AvgWin).Float64("avg_loss", stats.AvgLoss).Msg("invalid average win/loss, using conservative default")
		return conservativeRiskPct
	}

	p := stats.WinRate
	q := 1 - p
	b := stats.WinLossRatio
	kellyPercent := (p*b - q) / b

	if kellyPercent <= 0 {
		log.Warn().Float64("kelly_percent", kellyPercent).Msg("negative Kelly percentage, no edge, using minimal risk")
		return minimalRiskPct
	}

	adjusted := kellyPercent * kellyFraction * 100
	if adjusted > maxRiskPct {
		adjusted = maxRiskPct
	}
	if adjusted < minimalRiskPct {
		adjusted = minimalRiskPct
	}

	log.Info().
		Int("total_trades", stats.TotalTrades).
		Float64("win_rate", stats.WinRate*100).
		Float64("win_loss_ratio", stats.WinLossRatio).
		Float64("kelly_percent", kellyPercent*100).
		Float64("adjusted_risk_pct", adjusted).
		Msg("recalibrated risk-per-trade from Kelly Criterion")

	return adjusted
}
