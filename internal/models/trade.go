package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an executed trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is an immutable record of an executed buy or sell. It is created
// atomically with its corresponding LedgerEntry.
type Trade struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	Asset     string          `json:"asset"`
	Side      TradeSide       `json:"side"`
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"` // Size * Price
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}
