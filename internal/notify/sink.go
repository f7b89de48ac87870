// Package notify publishes fire-and-forget notification events for ledger
// operations. Delivery failures must never affect ledger correctness;
// callers log and drop errors.
package notify

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Event types emitted by the wallet service.
const (
	EventDepositCompleted     = "deposit_completed"
	EventWithdrawalRequested  = "withdrawal_requested"
	EventWithdrawalApproved   = "withdrawal_approved"
	EventTradeExecuted        = "trade_executed"
	EventStrategySubscribed   = "strategy_subscribed"
	EventStrategyUnsubscribed = "strategy_unsubscribed"
	EventTransferCompleted    = "transfer_completed"
)

// Event is one notification. IDs are ULIDs so consumers can order events
// without parsing timestamps.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	AccountID  int64           `json:"account_id"`
	Amount     decimal.Decimal `json:"amount"`
	Asset      string          `json:"asset,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent stamps a new event with a ULID and occurrence time.
func NewEvent(eventType string, accountID int64, amount decimal.Decimal, occurredAt time.Time) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		AccountID:  accountID,
		Amount:     amount,
		OccurredAt: occurredAt,
	}
}

// Sink receives events. Implementations may drop events on failure; they
// must not block indefinitely.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Noop discards all events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
