package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store, err := Open(":memory:", clk)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, clk
}

func appendEntry(ctx context.Context, tx storage.Tx, accountID int64, amount decimal.Decimal) error {
	balance, err := tx.LatestBalance(ctx, accountID)
	if err != nil {
		return err
	}
	return tx.AppendEntry(ctx, &models.LedgerEntry{
		AccountID:     accountID,
		Kind:          models.KindDeposit,
		Amount:        amount,
		BalanceBefore: balance,
		BalanceAfter:  balance.Add(amount),
		Reference:     "test",
	})
}

func TestLedgerChainRoundtrip(t *testing.T) {
	store, clk := openTestStore(t)
	ctx := context.Background()

	account := &models.Account{Email: "a@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))

	require.NoError(t, store.Atomic(ctx, []int64{account.ID}, func(ctx context.Context, tx storage.Tx) error {
		return appendEntry(ctx, tx, account.ID, dec("100.50"))
	}))
	clk.Advance(time.Second)
	require.NoError(t, store.Atomic(ctx, []int64{account.ID}, func(ctx context.Context, tx storage.Tx) error {
		return appendEntry(ctx, tx, account.ID, dec("-0.50"))
	}))

	balance, err := store.LatestBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100")), "got %s", balance)

	entries, err := store.History(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].BalanceBefore.IsZero())
	assert.True(t, entries[0].BalanceAfter.Equal(dec("100.50")))
	assert.True(t, entries[1].BalanceBefore.Equal(dec("100.50")))
	assert.True(t, entries[1].BalanceAfter.Equal(dec("100")))
	assert.Equal(t, models.KindDeposit, entries[0].Kind)
	assert.Equal(t, "test", entries[0].Reference)

	byKind, err := store.EntriesByKind(ctx, account.ID, models.KindDeposit)
	require.NoError(t, err)
	assert.Len(t, byKind, 2)
}

func TestAtomicRollsBack(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		if err := appendEntry(ctx, tx, 1, dec("100")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := store.LatestBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	entries, err := store.History(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendEntryRejectsChainMismatch(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		return appendEntry(ctx, tx, 1, dec("100"))
	}))

	err := store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		return tx.AppendEntry(ctx, &models.LedgerEntry{
			AccountID:     1,
			Kind:          models.KindDeposit,
			Amount:        dec("10"),
			BalanceBefore: dec("1"), // stale
			BalanceAfter:  dec("11"),
		})
	})
	var integrity *storage.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.True(t, integrity.Expected.Equal(dec("100")))
}

func TestTradesAndBuyVolume(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	insert := func(accountID int64, side models.TradeSide, size string) {
		require.NoError(t, store.Atomic(ctx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
			return tx.InsertTrade(ctx, &models.Trade{
				AccountID: accountID, Asset: "BTC/USD", Side: side,
				Size: dec(size), Price: dec("45000"), Total: dec(size).Mul(dec("45000")),
				Reference: "r",
			})
		}))
	}
	insert(1, models.SideBuy, "0.01")
	insert(2, models.SideBuy, "0.02")
	insert(1, models.SideSell, "0.005")

	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		volume, err := tx.BuyVolume(ctx, "BTC/USD")
		require.NoError(t, err)
		// Sells do not count; buys aggregate across accounts.
		require.True(t, volume.Equal(dec("0.03")), "got %s", volume)
		return nil
	}))

	trades, err := store.TradesByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Size.Equal(dec("0.01")))
	assert.True(t, trades[0].Price.Equal(dec("45000")))
}

func TestWithdrawalLifecycle(t *testing.T) {
	store, clk := openTestStore(t)
	ctx := context.Background()

	var id int64
	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		w := &models.WithdrawalRequest{AccountID: 1, Amount: dec("50"), Status: models.WithdrawalPending}
		if err := tx.InsertWithdrawal(ctx, w); err != nil {
			return err
		}
		id = w.ID
		return nil
	}))
	require.NotZero(t, id)

	pending, err := store.WithdrawalByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, pending.Status)
	assert.Nil(t, pending.ProcessedAt)

	processedAt := clk.Now().Add(time.Hour)
	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.WithdrawalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		require.True(t, locked.Amount.Equal(dec("50")))
		return tx.UpdateWithdrawalStatus(ctx, id, models.WithdrawalApproved, processedAt)
	}))

	approved, err := store.WithdrawalByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, approved.Status)
	require.NotNil(t, approved.ProcessedAt)
	assert.True(t, approved.ProcessedAt.Equal(processedAt))

	list, err := store.WithdrawalsByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSubscriptionLifecycleAndStats(t *testing.T) {
	store, clk := openTestStore(t)
	ctx := context.Background()

	strat := &models.Strategy{
		Name: "BTC Momentum", Description: "d", Category: "crypto", RiskLevel: "high",
		DailyRate: dec("0.0085"), MinInvestment: dec("100"), MaxInvestment: dec("10000"),
		IsActive: true,
	}
	require.NoError(t, store.InsertStrategy(ctx, strat))
	require.NotZero(t, strat.ID)

	loaded, err := store.StrategyByID(ctx, strat.ID)
	require.NoError(t, err)
	assert.True(t, loaded.DailyRate.Equal(dec("0.0085")))
	assert.True(t, loaded.IsActive)

	var subID int64
	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		sub := &models.StrategySubscription{AccountID: 1, StrategyID: strat.ID, InvestedAmount: dec("1000"), IsActive: true}
		if err := tx.InsertSubscription(ctx, sub); err != nil {
			return err
		}
		subID = sub.ID

		active, err := tx.ActiveSubscription(ctx, 1, strat.ID)
		require.NoError(t, err)
		require.Equal(t, subID, active.ID)
		return nil
	}))

	stats, err := store.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].SubscriberCount)
	assert.True(t, stats[0].TotalInvested.Equal(dec("1000")))

	closedAt := clk.Now().Add(24 * time.Hour)
	require.NoError(t, store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeactivateSubscription(ctx, subID, closedAt)
	}))

	sub, err := store.SubscriptionByID(ctx, subID)
	require.NoError(t, err)
	assert.False(t, sub.IsActive)
	require.NotNil(t, sub.UnsubscribedAt)
	assert.True(t, sub.UnsubscribedAt.Equal(closedAt))

	// No active subscription remains.
	err = store.Atomic(ctx, []int64{1}, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.ActiveSubscription(ctx, 1, strat.ID)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err = store.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].SubscriberCount)
	assert.True(t, stats[0].TotalInvested.IsZero())
}

func TestAccountsAndLookups(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	account := &models.Account{Email: "a@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))
	require.NotZero(t, account.ID)

	found, err := store.AccountByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = store.AccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.WithdrawalByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.StrategyByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.SubscriptionByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Atomic(ctx, []int64{account.ID}, func(ctx context.Context, tx storage.Tx) error {
		exists, err := tx.AccountExists(ctx, account.ID)
		require.NoError(t, err)
		require.True(t, exists)
		exists, err = tx.AccountExists(ctx, 999)
		require.NoError(t, err)
		require.False(t, exists)
		return nil
	}))
}
