// Package postgres is the production storage.Store implementation. Atomic
// units run in SERIALIZABLE transactions with the touched account rows
// locked FOR UPDATE in ascending id order; serialization failures (SQLSTATE
// 40001) are retried with a linear backoff.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

const (
	maxRetries     = 3
	defaultTimeout = 5 * time.Second
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
	clk  clock.Clock
}

var _ storage.Store = (*Store)(nil)

// Connect opens a pool against url and pings it.
func Connect(ctx context.Context, url string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.System{}
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, clk: clk}, nil
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(queryCtx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// Atomic runs fn in a SERIALIZABLE transaction, retrying serialization
// failures. fn must be safe to re-run; all our units are, since they read
// their inputs inside the transaction.
func (s *Store) Atomic(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	ids := dedupeSorted(accountIDs)

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = s.runAtomic(ctx, ids, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		if attempt == maxRetries-1 {
			return fmt.Errorf("atomic unit failed after %d retries due to serialization failure: %w", maxRetries, err)
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func (s *Store) runAtomic(ctx context.Context, ids []int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(queryCtx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %v", ledger.ErrStorageUnavailable, err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(queryCtx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ledger.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(queryCtx)

	// Lock account rows one by one in ascending id order so that units
	// touching overlapping account sets cannot deadlock.
	for _, id := range ids {
		var one int
		err := tx.QueryRow(queryCtx, `SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&one)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to lock account %d: %w", id, err)
		}
	}

	if err := fn(queryCtx, &pgTx{tx: tx, clk: s.clk}); err != nil {
		return err
	}

	if err := tx.Commit(queryCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func dedupeSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// pgTx is the in-transaction view.
type pgTx struct {
	tx  pgx.Tx
	clk clock.Clock
}

var _ storage.Tx = (*pgTx)(nil)

func (t *pgTx) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return latestBalance(ctx, t.tx, accountID)
}

func (t *pgTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	latest, err := latestBalance(ctx, t.tx, entry.AccountID)
	if err != nil {
		return err
	}
	if !latest.Equal(entry.BalanceBefore) {
		return &storage.IntegrityError{AccountID: entry.AccountID, Expected: latest, Got: entry.BalanceBefore}
	}

	entry.CreatedAt = t.clk.Now()
	err = t.tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (account_id, kind, amount, balance_before, balance_after, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, entry.AccountID, string(entry.Kind), entry.Amount, entry.BalanceBefore, entry.BalanceAfter,
		entry.Reference, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (t *pgTx) AccountExists(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

func (t *pgTx) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return accountByEmail(ctx, t.tx, email)
}

func (t *pgTx) InsertTrade(ctx context.Context, trade *models.Trade) error {
	trade.CreatedAt = t.clk.Now()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO trades (account_id, asset, side, size, price, total, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, trade.AccountID, trade.Asset, string(trade.Side), trade.Size, trade.Price, trade.Total,
		trade.Reference, trade.CreatedAt).Scan(&trade.ID)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (t *pgTx) BuyVolume(ctx context.Context, asset string) (decimal.Decimal, error) {
	var volume decimal.Decimal
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(size), 0) FROM trades WHERE asset = $1 AND side = $2
	`, asset, string(models.SideBuy)).Scan(&volume)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum buy volume: %w", err)
	}
	return volume, nil
}

func (t *pgTx) InsertWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	w.RequestedAt = t.clk.Now()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (account_id, amount, status, requested_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, w.AccountID, w.Amount, string(w.Status), w.RequestedAt).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal request: %w", err)
	}
	return nil
}

func (t *pgTx) WithdrawalForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, account_id, amount, status, requested_at, processed_at
		FROM withdrawal_requests WHERE id = $1
		FOR UPDATE
	`, id)
	return scanWithdrawal(row)
}

func (t *pgTx) UpdateWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, processedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $1, processed_at = $2 WHERE id = $3
	`, string(status), processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *pgTx) StrategyByID(ctx context.Context, id int64) (*models.Strategy, error) {
	return strategyByID(ctx, t.tx, id)
}

func (t *pgTx) InsertSubscription(ctx context.Context, sub *models.StrategySubscription) error {
	sub.SubscribedAt = t.clk.Now()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO strategy_subscriptions (account_id, strategy_id, invested_amount, is_active, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sub.AccountID, sub.StrategyID, sub.InvestedAmount, sub.IsActive, sub.SubscribedAt).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (t *pgTx) ActiveSubscription(ctx context.Context, accountID, strategyID int64) (*models.StrategySubscription, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, account_id, strategy_id, invested_amount, is_active, subscribed_at, unsubscribed_at
		FROM strategy_subscriptions
		WHERE account_id = $1 AND strategy_id = $2 AND is_active
	`, accountID, strategyID)
	return scanSubscription(row)
}

func (t *pgTx) SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error) {
	return subscriptionByID(ctx, t.tx, id)
}

func (t *pgTx) DeactivateSubscription(ctx context.Context, id int64, unsubscribedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE strategy_subscriptions SET is_active = FALSE, unsubscribed_at = $1
		WHERE id = $2 AND is_active
	`, unsubscribedAt, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
