package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

func (s *Store) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.entries[accountID]
	if len(chain) == 0 {
		return decimal.Zero, nil
	}
	return chain[len(chain)-1].BalanceAfter, nil
}

func (s *Store) History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.entries[accountID]
	copied := make([]models.LedgerEntry, len(chain))
	copy(copied, chain)
	return copied, nil
}

func (s *Store) EntriesByKind(ctx context.Context, accountID int64, kind models.EntryKind) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries[accountID] {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) TradesByAccount(ctx context.Context, accountID int64) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for _, t := range s.trades {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) WithdrawalsByAccount(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WithdrawalRequest
	for id := int64(1); id <= s.nextWithdrawal; id++ {
		if w, ok := s.withdrawals[id]; ok && w.AccountID == accountID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *Store) WithdrawalByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := w
	return &copied, nil
}

func (s *Store) StrategyByID(ctx context.Context, id int64) (*models.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.strategies[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := st
	return &copied, nil
}

func (s *Store) SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := sub
	return &copied, nil
}

func (s *Store) Strategies(ctx context.Context) ([]models.StrategyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StrategyStats
	for id := int64(1); id <= s.nextStrategy; id++ {
		st, ok := s.strategies[id]
		if !ok {
			continue
		}
		stats := models.StrategyStats{Strategy: st, TotalInvested: decimal.Zero}
		for _, sub := range s.subscriptions {
			if sub.StrategyID == id && sub.IsActive {
				stats.SubscriberCount++
				stats.TotalInvested = stats.TotalInvested.Add(sub.InvestedAmount)
			}
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.accountsByEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAccount++
	account.ID = s.nextAccount
	account.CreatedAt = s.clk.Now()
	s.accounts[account.ID] = *account
	if account.Email != "" {
		s.accountsByEmail[account.Email] = account.ID
	}
	return nil
}

func (s *Store) InsertStrategy(ctx context.Context, strategy *models.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStrategy++
	strategy.ID = s.nextStrategy
	s.strategies[strategy.ID] = *strategy
	return nil
}

func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)
