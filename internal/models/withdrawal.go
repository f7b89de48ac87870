package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest gates a balance deduction behind an approval signal.
// Funds are not reserved at creation; the withdraw ledger entry is written
// only on the pending -> approved transition.
type WithdrawalRequest struct {
	ID          int64            `json:"id"`
	AccountID   int64            `json:"account_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}
