// Package trading validates and executes buys and sells. The monetary leg
// goes through the ledger engine; the Trade row and its LedgerEntry commit
// in the same atomic unit, so neither is ever observable without the other.
package trading

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/pricing"
	"github.com/example/wallet-ledger/internal/storage"
)

var (
	// ErrInsufficientLiquidity rejects sells exceeding the cumulative
	// historical buy volume for the asset. This is a pool-liquidity check,
	// not order-book matching.
	ErrInsufficientLiquidity = errors.New("trading: insufficient buy volume for asset")

	// ErrInvalidSide rejects sides other than buy and sell.
	ErrInvalidSide = errors.New("trading: side must be buy or sell")

	// ErrInvalidAsset rejects empty asset symbols.
	ErrInvalidAsset = errors.New("trading: asset is required")
)

const defaultTimeout = 5 * time.Second

// Settlement executes trades against the ledger.
type Settlement struct {
	store   storage.Store
	ledger  *ledger.Engine
	quotes  pricing.Quoter
	log     *slog.Logger
	timeout time.Duration
}

func NewSettlement(store storage.Store, engine *ledger.Engine, quotes pricing.Quoter, logger *slog.Logger, timeout time.Duration) *Settlement {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Settlement{store: store, ledger: engine, quotes: quotes, log: logger, timeout: timeout}
}

// PlaceTrade executes a buy or sell of size units of asset at the current
// quoted price. Buys require balance >= size*price; sells require pool
// liquidity >= size. On success the returned Trade and its ledger entry
// have been committed together.
func (s *Settlement) PlaceTrade(ctx context.Context, accountID int64, asset string, side models.TradeSide, size decimal.Decimal) (*models.Trade, error) {
	if asset == "" {
		return nil, ErrInvalidAsset
	}
	if side != models.SideBuy && side != models.SideSell {
		return nil, ErrInvalidSide
	}
	if size.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	price, err := s.quotes.Price(ctx, asset)
	if err != nil {
		return nil, err
	}
	total := size.Mul(price)
	reference := uuid.New().String()

	trade := &models.Trade{
		AccountID: accountID,
		Asset:     asset,
		Side:      side,
		Size:      size,
		Price:     price,
		Total:     total,
		Reference: reference,
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		switch side {
		case models.SideBuy:
			if _, err := s.ledger.Post(ctx, tx, accountID, models.KindTradeBuy, total.Neg(), reference); err != nil {
				return err
			}
		case models.SideSell:
			volume, err := tx.BuyVolume(ctx, asset)
			if err != nil {
				return err
			}
			if volume.LessThan(size) {
				return ErrInsufficientLiquidity
			}
			if _, err := s.ledger.Post(ctx, tx, accountID, models.KindTradeSell, total, reference); err != nil {
				return err
			}
		}
		return tx.InsertTrade(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("trade_settled",
		"account_id", accountID,
		"asset", asset,
		"side", string(side),
		"size", size.String(),
		"price", price.String(),
		"total", total.String(),
	)
	return trade, nil
}

// Trades lists the account's executed trades, oldest first.
func (s *Settlement) Trades(ctx context.Context, accountID int64) ([]models.Trade, error) {
	return s.store.TradesByAccount(ctx, accountID)
}
