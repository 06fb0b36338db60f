package trading

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/cryptocascade/internal/alerts"
	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// NotificationPort is the thin surface the trading loop needs for
// operator-facing notifications. Implementations decide where those
// notifications actually go (Telegram, console, log-only).
type NotificationPort interface {
	TradeOpened(ctx context.Context, pos Position, consensus signals.ConsensusResult)
	TradeClosed(ctx context.Context, pos Position)
	SystemStatus(ctx context.Context, message string)
}

// AlertNotifier adapts internal/alerts.Manager to NotificationPort so the
// trading loop can reuse the same alert channels (Telegram, console, log)
// the rest of the system already configures.
type AlertNotifier struct {
	manager *alerts.Manager
}

// NewAlertNotifier wraps an existing alert manager.
func NewAlertNotifier(manager *alerts.Manager) *AlertNotifier {
	return &AlertNotifier{manager: manager}
}

func (n *AlertNotifier) TradeOpened(ctx context.Context, pos Position, consensus signals.ConsensusResult) {
	_ = n.manager.SendInfo(ctx, "position opened", fmt.Sprintf(
		"%s %s on %s at %s (slot %s, confidence %.2f)",
		pos.Side, pos.Symbol, pos.Venue, pos.EntryPrice.String(), pos.SlotID, consensus.Confidence,
	), map[string]interface{}{
		"position_id": pos.ID,
		"slot_id":     pos.SlotID,
		"symbol":      pos.Symbol,
		"side":        string(pos.Side),
	})
}

func (n *AlertNotifier) TradeClosed(ctx context.Context, pos Position) {
	severity := n.manager.SendInfo
	if pos.Status == StatusFailed {
		severity = n.manager.SendWarning
	}
	_ = severity(ctx, "position closed", fmt.Sprintf(
		"%s closed %s (slot %s, reason %s, net %s)",
		pos.Symbol, pos.ID, pos.SlotID, pos.CloseReason, pos.NetUsd.String(),
	), map[string]interface{}{
		"position_id":  pos.ID,
		"slot_id":      pos.SlotID,
		"close_reason": string(pos.CloseReason),
		"net_usd":      pos.NetUsd.String(),
	})
}

func (n *AlertNotifier) SystemStatus(ctx context.Context, message string) {
	_ = n.manager.SendInfo(ctx, "trading system status", message, nil)
}
