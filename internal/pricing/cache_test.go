package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/pricing"
)

// countingQuoter counts upstream fetches.
type countingQuoter struct {
	inner pricing.Quoter
	calls int
}

func (c *countingQuoter) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	c.calls++
	return c.inner.Price(ctx, asset)
}

func TestStaticQuoter(t *testing.T) {
	quoter := pricing.NewFallback()
	ctx := context.Background()

	price, err := quoter.Price(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("45000.00")))

	_, err = quoter.Price(ctx, "DOGE/USD")
	assert.ErrorIs(t, err, pricing.ErrUnknownAsset)
}

func TestCacheServesWithinTTL(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	src := &countingQuoter{inner: pricing.NewFallback()}
	cache := pricing.NewCache(src, time.Minute, clk)
	ctx := context.Background()

	first, err := cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)
	second, err := cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, src.calls, "second read must hit the cache")

	// Just inside the TTL.
	clk.Advance(59 * time.Second)
	_, err = cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestCacheRefetchesAfterExpiry(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	src := &countingQuoter{inner: pricing.NewFallback()}
	cache := pricing.NewCache(src, time.Minute, clk)
	ctx := context.Background()

	_, err := cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "expired entry must be refetched")
}

func TestCacheEntriesAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	src := &countingQuoter{inner: pricing.NewFallback()}
	cache := pricing.NewCache(src, time.Minute, clk)
	ctx := context.Background()

	_, err := cache.Price(ctx, "BTC/USD")
	require.NoError(t, err)
	_, err = cache.Price(ctx, "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	// Errors are not cached.
	_, err = cache.Price(ctx, "DOGE/USD")
	require.ErrorIs(t, err, pricing.ErrUnknownAsset)
	_, err = cache.Price(ctx, "DOGE/USD")
	require.ErrorIs(t, err, pricing.ErrUnknownAsset)
	assert.Equal(t, 4, src.calls)
}
