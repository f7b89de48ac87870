// Package pricing supplies market quotes to trade settlement. Live quote
// retrieval is an external collaborator; this package defines the Quoter
// seam, a TTL cache with an explicit lifecycle, and the static fallback
// table used when no live source is wired in.
package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnknownAsset is returned for assets outside the supported set.
var ErrUnknownAsset = errors.New("pricing: unknown asset")

// Quoter returns the current market price for an asset.
type Quoter interface {
	Price(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Static serves a fixed price table.
type Static struct {
	prices map[string]decimal.Decimal
}

// NewStatic builds a quoter over the given table. A copy is taken.
func NewStatic(prices map[string]decimal.Decimal) *Static {
	copied := make(map[string]decimal.Decimal, len(prices))
	for asset, price := range prices {
		copied[asset] = price
	}
	return &Static{prices: copied}
}

// NewFallback is the default static quoter with the stock fallback table.
func NewFallback() *Static {
	return NewStatic(map[string]decimal.Decimal{
		"BTC/USD": decimal.RequireFromString("45000.00"),
		"ETH/USD": decimal.RequireFromString("2400.00"),
		"AAPL":    decimal.RequireFromString("182.50"),
		"GOOGL":   decimal.RequireFromString("142.30"),
	})
}

func (s *Static) Price(_ context.Context, asset string) (decimal.Decimal, error) {
	price, ok := s.prices[asset]
	if !ok {
		return decimal.Zero, ErrUnknownAsset
	}
	return price, nil
}
