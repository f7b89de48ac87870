package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
)

// Cache wraps a Quoter with TTL-based expiry. It is constructed once at
// service start and injected where quotes are needed; there is no global
// instance. Quotes are read-mostly and self-healing, so expiry races are
// tolerated rather than locked out.
type Cache struct {
	src Quoter
	ttl time.Duration
	clk clock.Clock

	mu      sync.RWMutex
	entries map[string]cachedPrice
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

func NewCache(src Quoter, ttl time.Duration, clk clock.Clock) *Cache {
	return &Cache{
		src:     src,
		ttl:     ttl,
		clk:     clk,
		entries: make(map[string]cachedPrice),
	}
}

func (c *Cache) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	now := c.clk.Now()

	c.mu.RLock()
	cached, ok := c.entries[asset]
	c.mu.RUnlock()
	if ok && now.Sub(cached.fetchedAt) < c.ttl {
		return cached.price, nil
	}

	price, err := c.src.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.entries[asset] = cachedPrice{price: price, fetchedAt: now}
	c.mu.Unlock()
	return price, nil
}
