// Package memory is an in-memory storage.Store. It backs engine and
// workflow tests and small demos; durability is out of its scope.
//
// Serialization follows the per-account mutex-map approach: an atomic unit
// locks every account it touches in ascending id order, so conflicting
// units on the same account (or account pair) never interleave.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

type Store struct {
	clk clock.Clock

	mu              sync.Mutex // protects every map and counter below
	nextEntryID     int64
	nextTradeID     int64
	nextWithdrawal  int64
	nextSub         int64
	nextAccount     int64
	nextStrategy    int64
	entries         map[int64][]models.LedgerEntry
	trades          []models.Trade
	withdrawals     map[int64]models.WithdrawalRequest
	subscriptions   map[int64]models.StrategySubscription
	strategies      map[int64]models.Strategy
	accounts        map[int64]models.Account
	accountsByEmail map[string]int64

	lockMu       sync.Mutex
	accountLocks map[int64]*sync.Mutex
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		clk:             clk,
		entries:         make(map[int64][]models.LedgerEntry),
		withdrawals:     make(map[int64]models.WithdrawalRequest),
		subscriptions:   make(map[int64]models.StrategySubscription),
		strategies:      make(map[int64]models.Strategy),
		accounts:        make(map[int64]models.Account),
		accountsByEmail: make(map[string]int64),
		accountLocks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Store) accountLock(accountID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if _, ok := s.accountLocks[accountID]; !ok {
		s.accountLocks[accountID] = &sync.Mutex{}
	}
	return s.accountLocks[accountID]
}

// Atomic locks the touched accounts in ascending id order, runs fn against
// a buffered view, and commits the buffered writes only when fn succeeds.
func (s *Store) Atomic(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	ids := make([]int64, 0, len(accountIDs))
	seen := make(map[int64]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		l := s.accountLock(id)
		l.Lock()
		defer l.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: s, withdrawalUpdates: make(map[int64]models.WithdrawalRequest), subUpdates: make(map[int64]models.StrategySubscription)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.entries {
		s.entries[e.AccountID] = append(s.entries[e.AccountID], e)
	}
	s.trades = append(s.trades, tx.trades...)
	for _, w := range tx.withdrawals {
		s.withdrawals[w.ID] = w
	}
	for id, w := range tx.withdrawalUpdates {
		s.withdrawals[id] = w
	}
	for _, sub := range tx.subscriptions {
		s.subscriptions[sub.ID] = sub
	}
	for id, sub := range tx.subUpdates {
		s.subscriptions[id] = sub
	}
	return nil
}

// memTx buffers writes until Atomic commits them. Reads overlay the buffer
// on the committed state so the unit sees its own writes.
type memTx struct {
	store             *Store
	entries           []models.LedgerEntry
	trades            []models.Trade
	withdrawals       []models.WithdrawalRequest
	withdrawalUpdates map[int64]models.WithdrawalRequest
	subscriptions     []models.StrategySubscription
	subUpdates        map[int64]models.StrategySubscription
}

func (t *memTx) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].AccountID == accountID {
			return t.entries[i].BalanceAfter, nil
		}
	}
	return t.store.LatestBalance(ctx, accountID)
}

func (t *memTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	latest, err := t.LatestBalance(ctx, entry.AccountID)
	if err != nil {
		return err
	}
	if !entry.BalanceBefore.Equal(latest) {
		return &storage.IntegrityError{AccountID: entry.AccountID, Expected: latest, Got: entry.BalanceBefore}
	}

	t.store.mu.Lock()
	t.store.nextEntryID++
	entry.ID = t.store.nextEntryID
	t.store.mu.Unlock()

	entry.CreatedAt = t.store.clk.Now()
	t.entries = append(t.entries, *entry)
	return nil
}

func (t *memTx) AccountExists(ctx context.Context, id int64) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.accounts[id]
	return ok, nil
}

func (t *memTx) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return t.store.AccountByEmail(ctx, email)
}

func (t *memTx) InsertTrade(ctx context.Context, trade *models.Trade) error {
	t.store.mu.Lock()
	t.store.nextTradeID++
	trade.ID = t.store.nextTradeID
	t.store.mu.Unlock()

	trade.CreatedAt = t.store.clk.Now()
	t.trades = append(t.trades, *trade)
	return nil
}

func (t *memTx) BuyVolume(ctx context.Context, asset string) (decimal.Decimal, error) {
	total := decimal.Zero
	t.store.mu.Lock()
	for _, tr := range t.store.trades {
		if tr.Asset == asset && tr.Side == models.SideBuy {
			total = total.Add(tr.Size)
		}
	}
	t.store.mu.Unlock()
	for _, tr := range t.trades {
		if tr.Asset == asset && tr.Side == models.SideBuy {
			total = total.Add(tr.Size)
		}
	}
	return total, nil
}

func (t *memTx) InsertWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	t.store.mu.Lock()
	t.store.nextWithdrawal++
	w.ID = t.store.nextWithdrawal
	t.store.mu.Unlock()

	w.RequestedAt = t.store.clk.Now()
	t.withdrawals = append(t.withdrawals, *w)
	return nil
}

func (t *memTx) WithdrawalForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	if w, ok := t.withdrawalUpdates[id]; ok {
		copied := w
		return &copied, nil
	}
	for _, w := range t.withdrawals {
		if w.ID == id {
			copied := w
			return &copied, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	w, ok := t.store.withdrawals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := w
	return &copied, nil
}

func (t *memTx) UpdateWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, processedAt time.Time) error {
	w, err := t.WithdrawalForUpdate(ctx, id)
	if err != nil {
		return err
	}
	w.Status = status
	w.ProcessedAt = &processedAt
	t.withdrawalUpdates[id] = *w
	return nil
}

func (t *memTx) StrategyByID(ctx context.Context, id int64) (*models.Strategy, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	st, ok := t.store.strategies[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := st
	return &copied, nil
}

func (t *memTx) InsertSubscription(ctx context.Context, sub *models.StrategySubscription) error {
	t.store.mu.Lock()
	t.store.nextSub++
	sub.ID = t.store.nextSub
	t.store.mu.Unlock()

	sub.SubscribedAt = t.store.clk.Now()
	t.subscriptions = append(t.subscriptions, *sub)
	return nil
}

func (t *memTx) ActiveSubscription(ctx context.Context, accountID, strategyID int64) (*models.StrategySubscription, error) {
	for i := len(t.subscriptions) - 1; i >= 0; i-- {
		sub := t.subscriptions[i]
		if sub.AccountID == accountID && sub.StrategyID == strategyID && sub.IsActive {
			return &sub, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, sub := range t.store.subscriptions {
		if updated, ok := t.subUpdates[sub.ID]; ok {
			sub = updated
		}
		if sub.AccountID == accountID && sub.StrategyID == strategyID && sub.IsActive {
			copied := sub
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *memTx) SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error) {
	if sub, ok := t.subUpdates[id]; ok {
		copied := sub
		return &copied, nil
	}
	for _, sub := range t.subscriptions {
		if sub.ID == id {
			copied := sub
			return &copied, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	sub, ok := t.store.subscriptions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := sub
	return &copied, nil
}

func (t *memTx) DeactivateSubscription(ctx context.Context, id int64, unsubscribedAt time.Time) error {
	sub, err := t.SubscriptionByID(ctx, id)
	if err != nil {
		return err
	}
	sub.IsActive = false
	sub.UnsubscribedAt = &unsubscribedAt
	t.subUpdates[id] = *sub
	return nil
}

var _ storage.Tx = (*memTx)(nil)
