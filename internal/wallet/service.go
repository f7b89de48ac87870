// Package wallet is the facade the request-handling layer talks to. It
// composes the ledger engine, trade settlement, the withdrawal workflow and
// the strategy service, resolves recipient lookups, and fans out
// fire-and-forget notifications.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/notify"
	"github.com/example/wallet-ledger/internal/storage"
	"github.com/example/wallet-ledger/internal/strategy"
	"github.com/example/wallet-ledger/internal/trading"
	"github.com/example/wallet-ledger/internal/withdrawal"
)

const publishTimeout = 5 * time.Second

type Service struct {
	store       storage.Store
	ledger      *ledger.Engine
	trades      *trading.Settlement
	withdrawals *withdrawal.Workflow
	strategies  *strategy.Service
	sink        notify.Sink
	clk         clock.Clock
	log         *slog.Logger
}

func New(
	store storage.Store,
	engine *ledger.Engine,
	trades *trading.Settlement,
	withdrawals *withdrawal.Workflow,
	strategies *strategy.Service,
	sink notify.Sink,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = notify.Noop{}
	}
	return &Service{
		store:       store,
		ledger:      engine,
		trades:      trades,
		withdrawals: withdrawals,
		strategies:  strategies,
		sink:        sink,
		clk:         clk,
		log:         logger,
	}
}

// publish fires a notification without waiting for delivery. Failures are
// logged and dropped; they never affect the operation that emitted them.
func (s *Service) publish(event notify.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.sink.Publish(ctx, event); err != nil {
			s.log.Warn("notification publish failed", "event_type", event.Type, "event_id", event.ID, "error", err)
		}
	}()
}

// GetBalance returns the account's derived balance.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return s.ledger.Balance(ctx, accountID)
}

// Deposit credits the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.ledger.Deposit(ctx, accountID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	s.publish(notify.NewEvent(notify.EventDepositCompleted, accountID, amount, s.clk.Now()))
	return balance, nil
}

// RequestWithdrawal opens a pending withdrawal request.
func (s *Service) RequestWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.WithdrawalRequest, error) {
	req, err := s.withdrawals.Request(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}
	event := notify.NewEvent(notify.EventWithdrawalRequested, accountID, amount, s.clk.Now())
	s.publish(event)
	return req, nil
}

// ApproveWithdrawal settles a pending withdrawal and returns the new balance.
func (s *Service) ApproveWithdrawal(ctx context.Context, requestID int64) (decimal.Decimal, error) {
	req, err := s.store.WithdrawalByID(ctx, requestID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := s.withdrawals.Approve(ctx, requestID)
	if err != nil {
		return decimal.Zero, err
	}
	s.publish(notify.NewEvent(notify.EventWithdrawalApproved, req.AccountID, req.Amount, s.clk.Now()))
	return balance, nil
}

// RejectWithdrawal closes a pending withdrawal without a balance effect.
func (s *Service) RejectWithdrawal(ctx context.Context, requestID int64) error {
	return s.withdrawals.Reject(ctx, requestID)
}

// Transfer moves funds between two known accounts.
func (s *Service) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := s.ledger.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	s.publish(notify.NewEvent(notify.EventTransferCompleted, fromID, amount, s.clk.Now()))
	return balance, nil
}

// TransferByEmail resolves the recipient through the account lookup and
// transfers to them. An unknown email maps to ErrRecipientNotFound.
func (s *Service) TransferByEmail(ctx context.Context, fromID int64, recipientEmail string, amount decimal.Decimal) (decimal.Decimal, error) {
	recipient, err := s.store.AccountByEmail(ctx, recipientEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, ledger.ErrRecipientNotFound
		}
		return decimal.Zero, err
	}
	return s.Transfer(ctx, fromID, recipient.ID, amount)
}

// Adjust sets the account balance to target (administrative).
func (s *Service) Adjust(ctx context.Context, accountID int64, target decimal.Decimal) (decimal.Decimal, error) {
	return s.ledger.Adjust(ctx, accountID, target)
}

// PlaceTrade executes a buy or sell at the current quoted price.
func (s *Service) PlaceTrade(ctx context.Context, accountID int64, asset string, side models.TradeSide, size decimal.Decimal) (*models.Trade, error) {
	trade, err := s.trades.PlaceTrade(ctx, accountID, asset, side, size)
	if err != nil {
		return nil, err
	}
	event := notify.NewEvent(notify.EventTradeExecuted, accountID, trade.Total, s.clk.Now())
	event.Asset = asset
	event.Reference = trade.Reference
	s.publish(event)
	return trade, nil
}

// Subscribe invests amount into a strategy and returns the subscription id.
func (s *Service) Subscribe(ctx context.Context, accountID, strategyID int64, amount decimal.Decimal) (int64, error) {
	subscriptionID, err := s.strategies.Subscribe(ctx, accountID, strategyID, amount)
	if err != nil {
		return 0, err
	}
	s.publish(notify.NewEvent(notify.EventStrategySubscribed, accountID, amount, s.clk.Now()))
	return subscriptionID, nil
}

// Unsubscribe redeems the active subscription for principal plus earnings.
func (s *Service) Unsubscribe(ctx context.Context, accountID, strategyID int64) (principal, earnings decimal.Decimal, err error) {
	principal, earnings, err = s.strategies.Unsubscribe(ctx, accountID, strategyID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	s.publish(notify.NewEvent(notify.EventStrategyUnsubscribed, accountID, principal.Add(earnings), s.clk.Now()))
	return principal, earnings, nil
}

// GetSubscriptionValue projects a subscription's value at now.
func (s *Service) GetSubscriptionValue(ctx context.Context, subscriptionID int64, now time.Time) (decimal.Decimal, error) {
	return s.strategies.SubscriptionValue(ctx, subscriptionID, now)
}

// History returns the account's full ledger chain.
func (s *Service) History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.ledger.History(ctx, accountID)
}

// Deposits lists the account's deposit entries.
func (s *Service) Deposits(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.store.EntriesByKind(ctx, accountID, models.KindDeposit)
}

// Trades lists the account's executed trades.
func (s *Service) Trades(ctx context.Context, accountID int64) ([]models.Trade, error) {
	return s.trades.Trades(ctx, accountID)
}

// Withdrawals lists the account's withdrawal requests.
func (s *Service) Withdrawals(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.Requests(ctx, accountID)
}

// Strategies lists the strategy catalog with subscription stats.
func (s *Service) Strategies(ctx context.Context) ([]models.StrategyStats, error) {
	return s.strategies.Strategies(ctx)
}
