package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy is reference data describing a yield strategy. Read-only from
// the engine's perspective.
type Strategy struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	RiskLevel     string          `json:"risk_level"`
	DailyRate     decimal.Decimal `json:"daily_rate"` // fraction per day, e.g. 0.0085 for 0.85%
	MinInvestment decimal.Decimal `json:"min_investment"`
	MaxInvestment decimal.Decimal `json:"max_investment"` // zero means unbounded
	IsActive      bool            `json:"is_active"`
}

// StrategySubscription is an account's allocation of principal to a
// strategy. InvestedAmount is fixed at subscription time; unsubscribe flips
// IsActive and stamps UnsubscribedAt, nothing else mutates.
type StrategySubscription struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"account_id"`
	StrategyID     int64           `json:"strategy_id"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
	IsActive       bool            `json:"is_active"`
	SubscribedAt   time.Time       `json:"subscribed_at"`
	UnsubscribedAt *time.Time      `json:"unsubscribed_at,omitempty"`
}

// StrategyStats is a read-only projection used by strategy listings.
type StrategyStats struct {
	Strategy
	SubscriberCount int             `json:"subscriber_count"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
}
