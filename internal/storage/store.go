// Package storage defines the durable-store contract shared by the ledger,
// trading, withdrawal and strategy workflows. Every balance-affecting
// operation runs inside Store.Atomic, which serializes conflicting units on
// the same account(s) and applies the unit all-or-nothing.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("storage: not found")

// IntegrityError reports a broken ledger chain: an append whose
// balance_before does not match the account's latest balance_after read in
// the same atomic unit. It indicates a concurrency-control bug and must be
// surfaced, never retried with stale data.
type IntegrityError struct {
	AccountID int64
	Expected  decimal.Decimal // latest balance_after on record
	Got       decimal.Decimal // balance_before of the rejected entry
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger chain mismatch on account %d: latest balance %s, entry balance_before %s",
		e.AccountID, e.Expected, e.Got)
}

// Tx is the view of the store inside one atomic unit. Reads are consistent
// with writes made earlier in the same unit.
type Tx interface {
	// LatestBalance returns the balance_after of the account's most recent
	// entry, or zero if the account has no entries.
	LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)

	// AppendEntry inserts an immutable ledger row, assigning ID and
	// CreatedAt. Returns *IntegrityError when entry.BalanceBefore does not
	// match the account's latest balance.
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error

	AccountExists(ctx context.Context, accountID int64) (bool, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// InsertTrade records an executed trade, assigning ID and CreatedAt.
	InsertTrade(ctx context.Context, trade *models.Trade) error
	// BuyVolume is the cumulative size of all historical buys of asset,
	// across all accounts.
	BuyVolume(ctx context.Context, asset string) (decimal.Decimal, error)

	InsertWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error
	// WithdrawalForUpdate loads a request and locks it against concurrent
	// processing for the remainder of the unit.
	WithdrawalForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, processedAt time.Time) error

	StrategyByID(ctx context.Context, id int64) (*models.Strategy, error)
	InsertSubscription(ctx context.Context, sub *models.StrategySubscription) error
	// ActiveSubscription returns the account's active subscription to the
	// strategy, or ErrNotFound.
	ActiveSubscription(ctx context.Context, accountID, strategyID int64) (*models.StrategySubscription, error)
	SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error)
	DeactivateSubscription(ctx context.Context, id int64, unsubscribedAt time.Time) error
}

// Store is the durable, ordered, append-only event store.
type Store interface {
	// Atomic runs fn inside one atomic unit scoped to the given accounts.
	// Units touching any common account are serialized against each other;
	// multi-account units acquire accounts in a consistent (ascending id)
	// order. fn returning an error rolls the whole unit back.
	Atomic(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx Tx) error) error

	// Read-only projections, outside any atomic unit.
	LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)
	EntriesByKind(ctx context.Context, accountID int64, kind models.EntryKind) ([]models.LedgerEntry, error)
	TradesByAccount(ctx context.Context, accountID int64) ([]models.Trade, error)
	WithdrawalsByAccount(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error)
	WithdrawalByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	Strategies(ctx context.Context) ([]models.StrategyStats, error)
	StrategyByID(ctx context.Context, id int64) (*models.Strategy, error)
	SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// Reference-data management used by seeding and tests.
	CreateAccount(ctx context.Context, account *models.Account) error
	InsertStrategy(ctx context.Context, strategy *models.Strategy) error

	Close() error
}
