package withdrawal_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage/memory"
	"github.com/example/wallet-ledger/internal/withdrawal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestWorkflow(t *testing.T) (*withdrawal.Workflow, *ledger.Engine, *memory.Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.NewEngine(store, logger, 0)
	return withdrawal.NewWorkflow(store, engine, clk, logger, 0), engine, store, clk
}

func fundedAccount(t *testing.T, store *memory.Store, engine *ledger.Engine, amount string) int64 {
	t.Helper()
	account := &models.Account{Email: "a@example.com"}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	_, err := engine.Deposit(context.Background(), account.ID, dec(amount))
	require.NoError(t, err)
	return account.ID
}

func TestRequestCreatesPendingWithoutReserving(t *testing.T) {
	workflow, engine, store, _ := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "1000")
	ctx := context.Background()

	req, err := workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, req.Status)
	assert.Nil(t, req.ProcessedAt)
	assert.NotZero(t, req.ID)

	// No funds reserved: the balance is unchanged and a second request for
	// the same amount is accepted.
	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1000")))

	_, err = workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)
}

func TestRequestValidation(t *testing.T) {
	workflow, engine, store, _ := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "100")
	ctx := context.Background()

	_, err := workflow.Request(ctx, id, decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = workflow.Request(ctx, id, dec("100.01"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestApproveDeductsOnce(t *testing.T) {
	workflow, engine, store, clk := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "1000")
	ctx := context.Background()

	req, err := workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)

	clk.Advance(time.Hour)
	balance, err := workflow.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("400")))

	stored, err := store.WithdrawalByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, stored.Status)
	require.NotNil(t, stored.ProcessedAt)
	assert.True(t, stored.ProcessedAt.After(stored.RequestedAt))

	entries, err := engine.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.KindWithdraw, entries[1].Kind)
	assert.True(t, entries[1].Amount.Equal(dec("-600")))

	// Second approval must not deduct again.
	_, err = workflow.Approve(ctx, req.ID)
	require.ErrorIs(t, err, withdrawal.ErrAlreadyProcessed)

	var transition *withdrawal.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, models.WithdrawalApproved, transition.From)

	balance, err = engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("400")))
}

func TestApproveRechecksBalance(t *testing.T) {
	workflow, engine, store, _ := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "1000")
	ctx := context.Background()

	// Both requests pass the creation-time check against the full balance.
	first, err := workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)
	second, err := workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)

	_, err = workflow.Approve(ctx, first.ID)
	require.NoError(t, err)

	// The authoritative check happens at approval time.
	_, err = workflow.Approve(ctx, second.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// The failed approval leaves the request pending and the balance intact.
	stored, err := store.WithdrawalByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, stored.Status)

	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("400")))
}

func TestReject(t *testing.T) {
	workflow, engine, store, _ := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "1000")
	ctx := context.Background()

	req, err := workflow.Request(ctx, id, dec("600"))
	require.NoError(t, err)

	require.NoError(t, workflow.Reject(ctx, req.ID))

	stored, err := store.WithdrawalByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	// A rejected request never touches the ledger and cannot be approved.
	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1000")))

	_, err = workflow.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, withdrawal.ErrAlreadyProcessed)

	err = workflow.Reject(ctx, req.ID)
	assert.ErrorIs(t, err, withdrawal.ErrAlreadyProcessed)

	entries, err := engine.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRequestsLists(t *testing.T) {
	workflow, engine, store, _ := newTestWorkflow(t)
	id := fundedAccount(t, store, engine, "1000")
	ctx := context.Background()

	_, err := workflow.Request(ctx, id, dec("100"))
	require.NoError(t, err)
	_, err = workflow.Request(ctx, id, dec("200"))
	require.NoError(t, err)

	requests, err := workflow.Requests(ctx, id)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.True(t, requests[0].Amount.Equal(dec("100")))
	assert.True(t, requests[1].Amount.Equal(dec("200")))
}
