package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a balance-affecting event.
type EntryKind string

const (
	KindDeposit                 EntryKind = "deposit"
	KindWithdraw                EntryKind = "withdraw"
	KindTransferIn              EntryKind = "transfer_in"
	KindTransferOut             EntryKind = "transfer_out"
	KindTradeBuy                EntryKind = "trade_buy"
	KindTradeSell               EntryKind = "trade_sell"
	KindStrategyInvestment      EntryKind = "strategy_investment"
	KindStrategyUnsubscription  EntryKind = "strategy_unsubscription"
	KindAdminAdjustmentPositive EntryKind = "admin_adjustment_positive"
	KindAdminAdjustmentNegative EntryKind = "admin_adjustment_negative"
)

// LedgerEntry is one immutable record of a balance-affecting event.
// For a given account the entries ordered by CreatedAt (ties broken by ID)
// form a chain: each entry's BalanceBefore equals the previous entry's
// BalanceAfter, and BalanceAfter = BalanceBefore + Amount.
type LedgerEntry struct {
	ID            int64           `json:"id"`
	AccountID     int64           `json:"account_id"`
	Kind          EntryKind       `json:"kind"`
	Amount        decimal.Decimal `json:"amount"` // signed delta
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference"` // groups rows written by one atomic operation
	CreatedAt     time.Time       `json:"created_at"`
}
