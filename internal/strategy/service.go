// Package strategy manages strategy subscriptions: investing principal,
// projecting accrued value, and redeeming principal plus earnings through
// the ledger.
package strategy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/accrual"
	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

var (
	// ErrAlreadySubscribed rejects subscribing to a strategy while an
	// active subscription to it exists.
	ErrAlreadySubscribed = errors.New("strategy: already subscribed")

	// ErrStrategyNotFound covers unknown and inactive strategies.
	ErrStrategyNotFound = errors.New("strategy: not found")

	// ErrSubscriptionNotFound is returned when no active subscription
	// matches the unsubscribe request.
	ErrSubscriptionNotFound = errors.New("strategy: no active subscription")

	// ErrBelowMinimum and ErrAboveMaximum enforce the strategy's
	// investment limits.
	ErrBelowMinimum = errors.New("strategy: amount below minimum investment")
	ErrAboveMaximum = errors.New("strategy: amount above maximum investment")
)

const defaultTimeout = 5 * time.Second

// Service is the subscription workflow. It exclusively owns
// StrategySubscription rows.
type Service struct {
	store   storage.Store
	ledger  *ledger.Engine
	accrual *accrual.Engine
	clk     clock.Clock
	log     *slog.Logger
	timeout time.Duration
}

func NewService(store storage.Store, engine *ledger.Engine, accrualEngine *accrual.Engine, clk clock.Clock, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{store: store, ledger: engine, accrual: accrualEngine, clk: clk, log: logger, timeout: timeout}
}

// Subscribe invests amount into the strategy. The subscription row and the
// strategy_investment debit commit in one atomic unit. Subscribing while an
// active subscription to the same strategy exists is rejected.
func (s *Service) Subscribe(ctx context.Context, accountID, strategyID int64, amount decimal.Decimal) (int64, error) {
	if amount.Sign() <= 0 {
		return 0, ledger.ErrInvalidAmount
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sub := &models.StrategySubscription{
		AccountID:      accountID,
		StrategyID:     strategyID,
		InvestedAmount: amount,
		IsActive:       true,
	}
	err := s.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		strat, err := tx.StrategyByID(ctx, strategyID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrStrategyNotFound
			}
			return err
		}
		if !strat.IsActive {
			return ErrStrategyNotFound
		}
		if amount.LessThan(strat.MinInvestment) {
			return ErrBelowMinimum
		}
		if strat.MaxInvestment.Sign() > 0 && amount.GreaterThan(strat.MaxInvestment) {
			return ErrAboveMaximum
		}

		switch _, err := tx.ActiveSubscription(ctx, accountID, strategyID); {
		case err == nil:
			return ErrAlreadySubscribed
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}

		if err := tx.InsertSubscription(ctx, sub); err != nil {
			return err
		}
		_, err = s.ledger.Post(ctx, tx, accountID, models.KindStrategyInvestment, amount.Neg(), uuid.New().String())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("strategy_subscribed",
		"subscription_id", sub.ID,
		"account_id", accountID,
		"strategy_id", strategyID,
		"invested", amount.String(),
	)
	return sub.ID, nil
}

// Unsubscribe closes the account's active subscription to the strategy and
// credits principal plus accrued earnings back as a single
// strategy_unsubscription entry.
func (s *Service) Unsubscribe(ctx context.Context, accountID, strategyID int64) (principal, earnings decimal.Decimal, err error) {
	now := s.clk.Now()

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.store.Atomic(opCtx, []int64{accountID}, func(ctx context.Context, tx storage.Tx) error {
		sub, err := tx.ActiveSubscription(ctx, accountID, strategyID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}
		strat, err := tx.StrategyByID(ctx, sub.StrategyID)
		if err != nil {
			return err
		}

		principal, earnings = s.accrual.Close(sub, strat, now)
		if err := tx.DeactivateSubscription(ctx, sub.ID, now); err != nil {
			return err
		}
		_, err = s.ledger.Post(ctx, tx, accountID, models.KindStrategyUnsubscription, principal.Add(earnings), uuid.New().String())
		return err
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	s.log.Info("strategy_unsubscribed",
		"account_id", accountID,
		"strategy_id", strategyID,
		"principal", principal.String(),
		"earnings", earnings.String(),
	)
	return principal, earnings, nil
}

// SubscriptionValue projects the subscription's value at now without
// mutating anything. A closed subscription is valued at its close time.
func (s *Service) SubscriptionValue(ctx context.Context, subscriptionID int64, now time.Time) (decimal.Decimal, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, ErrSubscriptionNotFound
		}
		return decimal.Zero, err
	}
	strat, err := s.store.StrategyByID(ctx, sub.StrategyID)
	if err != nil {
		return decimal.Zero, err
	}
	if !sub.IsActive && sub.UnsubscribedAt != nil {
		now = *sub.UnsubscribedAt
	}
	return s.accrual.SubscriptionValue(sub, strat, now), nil
}

// Strategies lists the catalog with active subscriber counts and totals.
func (s *Service) Strategies(ctx context.Context) ([]models.StrategyStats, error) {
	return s.store.Strategies(ctx)
}
