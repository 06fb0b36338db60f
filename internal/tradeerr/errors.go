// Package tradeerr names the error kinds the trading core can return so
// callers can errors.Is against them instead of matching strings.
package tradeerr

import "errors"

var (
	// ErrAgentFailure means a strategy agent returned an error during a
	// consensus round. The round continues without that agent's vote.
	ErrAgentFailure = errors.New("trading: agent failure")

	// ErrNoConsensus means a round of voting did not clear the consensus
	// threshold, or too few agents voted.
	ErrNoConsensus = errors.New("trading: no consensus")

	// ErrInsufficientSlot means the cascade has no slot available to fund a
	// new position at the requested size.
	ErrInsufficientSlot = errors.New("trading: no available slot")

	// ErrOrderRejected means the exchange rejected an order outright (not a
	// retryable network/rate-limit failure).
	ErrOrderRejected = errors.New("trading: order rejected")

	// ErrDuplicateSettlement means a settlementId was already applied; the
	// caller receives the original record, not a fresh one.
	ErrDuplicateSettlement = errors.New("trading: settlement already processed")

	// ErrMissingSlot means a settlement referenced a slotId the cascade does
	// not know about.
	ErrMissingSlot = errors.New("trading: slot not found")

	// ErrPersistenceFailure means the journal could not durably record a
	// settlement; the in-memory ledger still committed.
	ErrPersistenceFailure = errors.New("trading: persistence failure")
)
