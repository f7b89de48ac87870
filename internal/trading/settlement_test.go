package trading_test

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
	"github.com/example/wallet-ledger/internal/pricing"
	"github.com/example/wallet-ledger/internal/storage/memory"
	"github.com/example/wallet-ledger/internal/trading"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestSettlement(t *testing.T) (*trading.Settlement, *ledger.Engine, *memory.Store) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore(clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.NewEngine(store, logger, 0)
	settlement := trading.NewSettlement(store, engine, pricing.NewFallback(), logger, 0)
	return settlement, engine, store
}

func fundedAccount(t *testing.T, store *memory.Store, engine *ledger.Engine, email, amount string) int64 {
	t.Helper()
	account := &models.Account{Email: email}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	_, err := engine.Deposit(context.Background(), account.ID, dec(amount))
	require.NoError(t, err)
	return account.ID
}

func TestBuyDebitsTotal(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	id := fundedAccount(t, store, engine, "a@example.com", "1000")
	ctx := context.Background()

	trade, err := settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideBuy, dec("0.01"))
	require.NoError(t, err)
	assert.True(t, trade.Price.Equal(dec("45000.00")))
	assert.True(t, trade.Total.Equal(dec("450")), "got %s", trade.Total)
	assert.NotZero(t, trade.ID)

	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("550")), "got %s", balance)

	entries, err := engine.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.KindTradeBuy, entries[1].Kind)
	assert.Equal(t, trade.Reference, entries[1].Reference)
}

func TestBuyInsufficientFundsLeavesNoTrace(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	id := fundedAccount(t, store, engine, "a@example.com", "100")
	ctx := context.Background()

	_, err := settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideBuy, dec("0.01"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100")))

	trades, err := settlement.Trades(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSellRequiresPoolLiquidity(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	id := fundedAccount(t, store, engine, "a@example.com", "1000")
	ctx := context.Background()

	// Nothing bought yet: no liquidity.
	_, err := settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideSell, dec("0.01"))
	require.ErrorIs(t, err, trading.ErrInsufficientLiquidity)

	_, err = settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideBuy, dec("0.01"))
	require.NoError(t, err)

	// Selling more than the cumulative buy volume still fails.
	_, err = settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideSell, dec("0.02"))
	require.ErrorIs(t, err, trading.ErrInsufficientLiquidity)

	trade, err := settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideSell, dec("0.005"))
	require.NoError(t, err)
	assert.True(t, trade.Total.Equal(dec("225")))

	balance, err := engine.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("775")), "got %s", balance) // 1000 - 450 + 225
}

func TestSellLiquidityPoolIsGlobal(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	buyer := fundedAccount(t, store, engine, "buyer@example.com", "1000")
	seller := fundedAccount(t, store, engine, "seller@example.com", "10")
	ctx := context.Background()

	_, err := settlement.PlaceTrade(ctx, buyer, "BTC/USD", models.SideBuy, dec("0.01"))
	require.NoError(t, err)

	// Another account's buys provide the liquidity.
	trade, err := settlement.PlaceTrade(ctx, seller, "BTC/USD", models.SideSell, dec("0.01"))
	require.NoError(t, err)
	assert.True(t, trade.Total.Equal(dec("450")))
}

func TestPlaceTradeValidation(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	id := fundedAccount(t, store, engine, "a@example.com", "1000")
	ctx := context.Background()

	_, err := settlement.PlaceTrade(ctx, id, "", models.SideBuy, dec("1"))
	assert.ErrorIs(t, err, trading.ErrInvalidAsset)

	_, err = settlement.PlaceTrade(ctx, id, "BTC/USD", models.TradeSide("short"), dec("1"))
	assert.ErrorIs(t, err, trading.ErrInvalidSide)

	_, err = settlement.PlaceTrade(ctx, id, "BTC/USD", models.SideBuy, decimal.Zero)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = settlement.PlaceTrade(ctx, id, "DOGE/USD", models.SideBuy, dec("1"))
	assert.ErrorIs(t, err, pricing.ErrUnknownAsset)
}

func TestTradesListsOnlyOwnTrades(t *testing.T) {
	settlement, engine, store := newTestSettlement(t)
	a := fundedAccount(t, store, engine, "a@example.com", "1000")
	b := fundedAccount(t, store, engine, "b@example.com", "1000")
	ctx := context.Background()

	_, err := settlement.PlaceTrade(ctx, a, "ETH/USD", models.SideBuy, dec("0.1"))
	require.NoError(t, err)
	_, err = settlement.PlaceTrade(ctx, b, "ETH/USD", models.SideBuy, dec("0.2"))
	require.NoError(t, err)

	trades, err := settlement.Trades(ctx, a)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Size.Equal(dec("0.1")))
}
