// Package ledger enforces the balance-mutation protocol: every operation
// reads the latest derived balance, validates the signed delta, and appends
// an immutable chain entry, all inside one atomic storage unit.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

const defaultTimeout = 5 * time.Second

// Engine owns LedgerEntry creation. No other component writes entries; the
// trade, withdrawal and strategy workflows post through Post inside their
// own atomic units.
type Engine struct {
	store   storage.Store
	log     *slog.Logger
	timeout time.Duration
}

// NewEngine creates a ledger engine. timeout bounds each atomic unit; zero
// selects the default.
func NewEngine(store storage.Store, logger *slog.Logger, timeout time.Duration) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{store: store, log: logger, timeout: timeout}
}

// Post appends one entry inside the caller's atomic unit and returns the
// new balance. The delta is signed; a delta that would take the balance
// below zero fails with ErrInsufficientFunds. A chain mismatch detected by
// the store is a concurrency-control bug: it is logged at error level and
// returned as *storage.IntegrityError, never retried here.
func (e *Engine) Post(ctx context.Context, tx storage.Tx, accountID int64, kind models.EntryKind, delta decimal.Decimal, reference string) (decimal.Decimal, error) {
	balance, err := tx.LatestBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	next := balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, ErrInsufficientFunds
	}

	entry := &models.LedgerEntry{
		AccountID:     accountID,
		Kind:          kind,
		Amount:        delta,
		BalanceBefore: balance,
		BalanceAfter:  next,
		Reference:     reference,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		var integrity *storage.IntegrityError
		if errors.As(err, &integrity) {
			e.log.Error("ledger chain mismatch",
				"account_id", integrity.AccountID,
				"expected", integrity.Expected.String(),
				"got", integrity.Got.String(),
				"kind", string(kind),
			)
		}
		return decimal.Zero, err
	}

	e.log.Info("ledger_entry",
		"account_id", accountID,
		"kind", string(kind),
		"amount", delta.String(),
		"balance_after", next.String(),
		"reference", reference,
	)
	return next, nil
}

// Deposit credits amount to the account and returns the new balance.
func (e *Engine) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var balance decimal.Decimal
	err := e.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		var err error
		balance, err = e.Post(ctx, tx, accountID, models.KindDeposit, amount, uuid.New().String())
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// SettleWithdrawal debits an approved withdrawal inside the caller's
// atomic unit. Invoked only by the withdrawal workflow, which re-checks
// the request state in the same unit.
func (e *Engine) SettleWithdrawal(ctx context.Context, tx storage.Tx, accountID int64, amount decimal.Decimal, reference string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return e.Post(ctx, tx, accountID, models.KindWithdraw, amount.Neg(), reference)
}

// Transfer moves amount between two accounts, appending exactly two
// entries (transfer_out, transfer_in) in one atomic unit. It returns the
// sender's new balance. The store acquires both accounts in ascending id
// order, so concurrent opposing transfers cannot deadlock.
func (e *Engine) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	if fromID == toID {
		return decimal.Zero, ErrSameAccount
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var senderBalance decimal.Decimal
	reference := uuid.New().String()
	err := e.store.Atomic(opCtx, []int64{fromID, toID}, func(ctx context.Context, tx storage.Tx) error {
		exists, err := tx.AccountExists(ctx, toID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrRecipientNotFound
		}

		senderBalance, err = e.Post(ctx, tx, fromID, models.KindTransferOut, amount.Neg(), reference)
		if err != nil {
			return err
		}
		_, err = e.Post(ctx, tx, toID, models.KindTransferIn, amount, reference)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return senderBalance, nil
}

// Adjust sets the account balance to target via a single signed
// administrative entry. A zero delta appends nothing.
func (e *Engine) Adjust(ctx context.Context, accountID int64, target decimal.Decimal) (decimal.Decimal, error) {
	if target.IsNegative() {
		return decimal.Zero, ErrNegativeTarget
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var balance decimal.Decimal
	err := e.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		current, err := tx.LatestBalance(ctx, accountID)
		if err != nil {
			return err
		}
		delta := target.Sub(current)
		if delta.IsZero() {
			balance = current
			return nil
		}
		kind := models.KindAdminAdjustmentPositive
		if delta.IsNegative() {
			kind = models.KindAdminAdjustmentNegative
		}
		balance, err = e.Post(ctx, tx, accountID, kind, delta, uuid.New().String())
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Balance returns the latest derived balance, zero for an unused account.
func (e *Engine) Balance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return e.store.LatestBalance(ctx, accountID)
}

// History returns the account's full entry chain, oldest first. Replaying
// it and summing Amount reproduces the final balance.
func (e *Engine) History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return e.store.History(ctx, accountID)
}
