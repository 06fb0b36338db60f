// Package journal is the durable settlement log backing
// internal/treasury.Router. It writes one row per SettlementRecord keyed by
// settlementId and replays them through the same idempotency check the live
// path uses, so recovery never needs a separate replay code path.
package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/treasury"
)

// querier is the slice of *pgxpool.Pool this package needs. It exists so
// tests can substitute pgxmock instead of a real connection pool, matching
// the rest of the tree's db testing style.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Journal persists SettlementRecords to Postgres.
type Journal struct {
	pool querier
}

// New wraps an existing connection pool (or a pgxmock substitute in
// tests). Run Migrate once at startup before using the journal.
func New(pool querier) *Journal {
	return &Journal{pool: pool}
}

// Migrate creates the settlements table if it does not already exist.
func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS treasury_settlements (
			settlement_id   TEXT PRIMARY KEY,
			slot_id         TEXT NOT NULL,
			net_pnl         NUMERIC NOT NULL,
			capital_after   NUMERIC NOT NULL,
			routing_kind    TEXT NOT NULL,
			routing_dest    TEXT NOT NULL DEFAULT '',
			routing_amount  NUMERIC NOT NULL,
			settled_at      TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// Append implements treasury.Journal. Re-appending a settlementId that
// already exists is a no-op: the live Router never calls Append twice for
// the same id, but a crash-restart replay might.
func (j *Journal) Append(record treasury.SettlementRecord) error {
	ctx := context.Background()
	_, err := j.pool.Exec(ctx, `
		INSERT INTO treasury_settlements (
			settlement_id, slot_id, net_pnl, capital_after,
			routing_kind, routing_dest, routing_amount, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (settlement_id) DO NOTHING
	`,
		record.SettlementID, record.SlotID, record.NetPnl, record.CapitalAfter,
		string(record.Routing.Kind), record.Routing.DestinationID, record.Routing.Amount,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("journal: append %q: %w", record.SettlementID, err)
	}
	return nil
}

type journaledSettlement struct {
	SettlementID string
	SlotID       string
	NetPnl       decimal.Decimal
}

// Replay reads every journaled settlement in settled_at order and re-enters
// each one through router.Settle. Because Settle keys off settlementId,
// already-applied entries from a prior in-memory run are no-ops and only
// genuinely unseen entries (a crash between journaling and process exit)
// take effect.
func (j *Journal) Replay(ctx context.Context, router *treasury.Router) (int, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT settlement_id, slot_id, net_pnl
		FROM treasury_settlements
		ORDER BY settled_at ASC
	`)
	if err != nil {
		return 0, fmt.Errorf("journal: replay query: %w", err)
	}
	defer rows.Close()

	replayed := 0
	for rows.Next() {
		var rec journaledSettlement
		if err := rows.Scan(&rec.SettlementID, &rec.SlotID, &rec.NetPnl); err != nil {
			return replayed, fmt.Errorf("journal: replay scan: %w", err)
		}
		if _, err := router.Settle(rec.SlotID, rec.NetPnl, rec.SettlementID); err != nil {
			log.Error().Err(err).Str("settlement_id", rec.SettlementID).Msg("journal: replay settle failed")
			continue
		}
		replayed++
	}
	if err := rows.Err(); err != nil {
		return replayed, fmt.Errorf("journal: replay rows: %w", err)
	}

	log.Info().Int("count", replayed).Msg("journal: settlement replay complete")
	return replayed, nil
}
