// Package withdrawal implements the two-step withdrawal approval state
// machine. A request is created in pending without reserving funds; the
// balance deduction happens only on the pending -> approved transition,
// which re-checks the balance in the same atomic unit.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

// ErrAlreadyProcessed rejects processing a request that has left pending.
var ErrAlreadyProcessed = errors.New("withdrawal: request already processed")

// InvalidTransitionError reports a disallowed state transition.
type InvalidTransitionError struct {
	RequestID int64
	From      models.WithdrawalStatus
	To        models.WithdrawalStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid withdrawal transition %s -> %s for request %d", e.From, e.To, e.RequestID)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrAlreadyProcessed }

// transitions is the full state machine: pending is the only state with
// outgoing edges, so every request is processed at most once.
var transitions = map[models.WithdrawalStatus][]models.WithdrawalStatus{
	models.WithdrawalPending: {models.WithdrawalApproved, models.WithdrawalRejected},
}

func canTransition(from, to models.WithdrawalStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

const defaultTimeout = 5 * time.Second

// Workflow drives withdrawal requests through the state machine.
type Workflow struct {
	store   storage.Store
	ledger  *ledger.Engine
	clk     clock.Clock
	log     *slog.Logger
	timeout time.Duration
}

func NewWorkflow(store storage.Store, engine *ledger.Engine, clk clock.Clock, logger *slog.Logger, timeout time.Duration) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Workflow{store: store, ledger: engine, clk: clk, log: logger, timeout: timeout}
}

// Request creates a pending withdrawal. The balance is checked now but not
// reserved; the authoritative check happens again at approval time.
func (w *Workflow) Request(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.WithdrawalRequest, error) {
	if amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req := &models.WithdrawalRequest{
		AccountID: accountID,
		Amount:    amount,
		Status:    models.WithdrawalPending,
	}
	err := w.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		balance, err := tx.LatestBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			return ledger.ErrInsufficientFunds
		}
		return tx.InsertWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	w.log.Info("withdrawal_requested", "withdrawal_id", req.ID, "account_id", accountID, "amount", amount.String())
	return req, nil
}

// Approve settles a pending request: it re-checks the balance, appends the
// withdraw entry and marks the request approved, all in one atomic unit.
// Approving a non-pending request fails with ErrAlreadyProcessed. A
// shortfall at approval time fails with ErrInsufficientFunds and leaves the
// request pending.
func (w *Workflow) Approve(ctx context.Context, requestID int64) (decimal.Decimal, error) {
	req, err := w.store.WithdrawalByID(ctx, requestID)
	if err != nil {
		return decimal.Zero, err
	}

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var balance decimal.Decimal
	err = w.store.Atomic(opCtx, []int64{req.AccountID}, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.WithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !canTransition(locked.Status, models.WithdrawalApproved) {
			return &InvalidTransitionError{RequestID: requestID, From: locked.Status, To: models.WithdrawalApproved}
		}

		balance, err = w.ledger.SettleWithdrawal(ctx, tx, locked.AccountID, locked.Amount, uuid.New().String())
		if err != nil {
			return err
		}
		return tx.UpdateWithdrawalStatus(ctx, requestID, models.WithdrawalApproved, w.clk.Now())
	})
	if err != nil {
		return decimal.Zero, err
	}

	w.log.Info("withdrawal_approved", "withdrawal_id", requestID, "account_id", req.AccountID, "balance_after", balance.String())
	return balance, nil
}

// Reject closes a pending request without touching the ledger.
func (w *Workflow) Reject(ctx context.Context, requestID int64) error {
	req, err := w.store.WithdrawalByID(ctx, requestID)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err = w.store.Atomic(opCtx, []int64{req.AccountID}, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.WithdrawalForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !canTransition(locked.Status, models.WithdrawalRejected) {
			return &InvalidTransitionError{RequestID: requestID, From: locked.Status, To: models.WithdrawalRejected}
		}
		return tx.UpdateWithdrawalStatus(ctx, requestID, models.WithdrawalRejected, w.clk.Now())
	})
	if err != nil {
		return err
	}

	w.log.Info("withdrawal_rejected", "withdrawal_id", requestID, "account_id", req.AccountID)
	return nil
}

// Requests lists the account's withdrawal requests.
func (w *Workflow) Requests(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error) {
	return w.store.WithdrawalsByAccount(ctx, accountID)
}
