package metrics

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Updater periodically recomputes gauge metrics (P&L, drawdown, returns,
// Sharpe ratio, open positions, connection pool usage) from the positions
// table, complementing the event-driven metrics recorded inline by the
// consensus engine and trading executor.
type Updater struct {
	db       *pgxpool.Pool
	interval time.Duration
	stopCh   chan struct{}
}

// NewUpdater creates a new metrics updater
func NewUpdater(db *pgxpool.Pool, interval time.Duration) *Updater {
	return &Updater{
		db:       db,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the metrics update loop
func (u *Updater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	// Update immediately on start
	u.update(ctx)

	for {
		select {
		case <-ticker.C:
			u.update(ctx)
		case <-u.stopCh:
			log.Info().Msg("Metrics updater stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Metrics updater context cancelled")
			return
		}
	}
}

// Stop stops the metrics updater
func (u *Updater) Stop() {
	close(u.stopCh)
}

// update fetches and updates all metrics
func (u *Updater) update(ctx context.Context) {
	log.Debug().Msg("Updating metrics from database")

	u.updateTradingMetrics(ctx)
	u.updatePositionMetrics(ctx)
	u.updateDatabaseMetrics()

	log.Debug().Msg("Metrics updated successfully")
}

// updateTradingMetrics updates realized P&L, win rate, and risk/reward from
// closed positions.
func (u *Updater) updateTradingMetrics(ctx context.Context) {
	var totalPnL float64
	var totalTrades, winningTrades int64

	query := `
		SELECT
			COALESCE(SUM(realized_pnl), 0) as total_pnl,
			COUNT(*) as total_trades,
			COUNT(*) FILTER (WHERE realized_pnl > 0) as winning_trades
		FROM positions
		WHERE exit_time IS NOT NULL
	`

	err := u.db.QueryRow(ctx, query).Scan(&totalPnL, &totalTrades, &winningTrades)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch trading metrics")
		return
	}

	TotalPnL.Set(totalPnL)

	if totalTrades > 0 {
		winRate := float64(winningTrades) / float64(totalTrades)
		WinRate.Set(winRate)
	} else {
		WinRate.Set(0)
	}

	var avgWin, avgLoss float64
	query = `
		SELECT
			COALESCE(AVG(realized_pnl) FILTER (WHERE realized_pnl > 0), 0) as avg_win,
			COALESCE(ABS(AVG(realized_pnl)) FILTER (WHERE realized_pnl < 0), 0) as avg_loss
		FROM positions
		WHERE exit_time IS NOT NULL
	`

	err = u.db.QueryRow(ctx, query).Scan(&avgWin, &avgLoss)
	if err == nil && avgLoss > 0 {
		RiskRewardRatio.Set(avgWin / avgLoss)
	}

	u.updateDrawdownMetrics(ctx)
	u.updateReturnMetrics(ctx)
	u.updateSharpeRatio(ctx)
}

// updateDrawdownMetrics calculates current drawdown from the cumulative
// realized P&L series.
func (u *Updater) updateDrawdownMetrics(ctx context.Context) {
	query := `
		WITH cumulative_pnl AS (
			SELECT
				exit_time,
				SUM(realized_pnl) OVER (ORDER BY exit_time) as cumulative_pnl
			FROM positions
			WHERE exit_time IS NOT NULL
			ORDER BY exit_time
		),
		peak_pnl AS (
			SELECT
				exit_time,
				cumulative_pnl,
				MAX(cumulative_pnl) OVER (ORDER BY exit_time) as peak
			FROM cumulative_pnl
		)
		SELECT
			COALESCE(
				CASE
					WHEN MAX(peak) > 0 THEN (MAX(peak) - MIN(cumulative_pnl)) / MAX(peak)
					ELSE 0
				END,
				0
			) as max_drawdown
		FROM peak_pnl
	`

	var drawdown float64
	err := u.db.QueryRow(ctx, query).Scan(&drawdown)
	if err == nil {
		CurrentDrawdown.Set(drawdown)
	}
}

// updateReturnMetrics calculates daily, weekly, and monthly returns against
// a fixed notional base; the cascade's actual starting capital is
// configuration-driven and tracked separately via SlotCapital.
func (u *Updater) updateReturnMetrics(ctx context.Context) {
	const initialCapital = 10000.0

	windows := []struct {
		interval string
		gauge    interface{ Set(float64) }
	}{
		{"1 day", DailyReturn},
		{"7 days", WeeklyReturn},
		{"30 days", MonthlyReturn},
	}

	for _, w := range windows {
		query := `
			SELECT COALESCE(SUM(realized_pnl), 0)
			FROM positions
			WHERE exit_time IS NOT NULL
			AND exit_time >= NOW() - INTERVAL '` + w.interval + `'
		`
		var pnl float64
		if err := u.db.QueryRow(ctx, query).Scan(&pnl); err == nil {
			w.gauge.Set(pnl / initialCapital)
		}
	}
}

// updateSharpeRatio calculates the annualized Sharpe ratio from daily
// realized P&L over the trailing 30 days.
func (u *Updater) updateSharpeRatio(ctx context.Context) {
	const initialCapital = 10000.0

	query := `
		SELECT
			DATE(exit_time) as trade_date,
			SUM(realized_pnl) as daily_pnl
		FROM positions
		WHERE exit_time IS NOT NULL
		AND exit_time >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(exit_time)
		ORDER BY trade_date
	`

	rows, err := u.db.Query(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to calculate Sharpe ratio")
		return
	}
	defer rows.Close()

	var returns []float64
	for rows.Next() {
		var date time.Time
		var pnl float64
		if err := rows.Scan(&date, &pnl); err != nil {
			continue
		}
		returns = append(returns, pnl/initialCapital)
	}

	if len(returns) > 1 {
		var sum float64
		for _, r := range returns {
			sum += r
		}
		mean := sum / float64(len(returns))

		var variance float64
		for _, r := range returns {
			diff := r - mean
			variance += diff * diff
		}
		variance /= float64(len(returns))
		stdDev := math.Sqrt(variance)

		if stdDev > 0 {
			sharpe := mean / stdDev * math.Sqrt(252) // Annualized
			SharpeRatio.Set(sharpe)
		}
	}
}

// updatePositionMetrics updates open position count and per-symbol mark
// values from persisted positions.
func (u *Updater) updatePositionMetrics(ctx context.Context) {
	var openCount int64
	query := `SELECT COUNT(*) FROM positions WHERE exit_time IS NULL`
	err := u.db.QueryRow(ctx, query).Scan(&openCount)
	if err == nil {
		OpenPositions.Set(float64(openCount))
	}

	query = `
		SELECT
			symbol,
			SUM(quantity * entry_price) as position_value
		FROM positions
		WHERE exit_time IS NULL
		GROUP BY symbol
	`

	rows, err := u.db.Query(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch position values")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		var value float64
		if err := rows.Scan(&symbol, &value); err != nil {
			continue
		}
		UpdatePositionValue(symbol, value)
	}
}

// updateDatabaseMetrics updates database connection pool metrics
func (u *Updater) updateDatabaseMetrics() {
	stat := u.db.Stat()
	UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
}
