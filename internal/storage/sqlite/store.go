// Package sqlite is the embedded storage.Store implementation, intended for
// development and single-node deployments. SQLite allows one writer at a
// time, so atomic units take a process-wide write lock before opening the
// transaction; that lock subsumes per-account serialization.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q   querier
	clk clock.Clock
}

// Store is a SQLite-backed storage.Store.
type Store struct {
	conn
	db      *sql.DB
	writeMu sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an ephemeral store.
func Open(path string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.System{}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps the in-memory database alive and avoids
	// SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{conn: conn{q: db, clk: clk}, db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Atomic runs fn in one transaction. The write mutex serializes all units,
// which is stricter than per-account ordering but correct, and matches the
// single-writer nature of the underlying database.
func (s *Store) Atomic(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(ctx, &conn{q: tx, clk: s.clk}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// --- Tx methods (valid on the Store itself for read-only use) ---

func (c *conn) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := c.q.QueryRowContext(ctx,
		`SELECT balance_after FROM ledger_entries
		 WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(raw)
}

func (c *conn) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	latest, err := c.LatestBalance(ctx, entry.AccountID)
	if err != nil {
		return err
	}
	if !latest.Equal(entry.BalanceBefore) {
		return &storage.IntegrityError{AccountID: entry.AccountID, Expected: latest, Got: entry.BalanceBefore}
	}

	entry.CreatedAt = c.clk.Now()
	res, err := c.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (account_id, kind, amount, balance_before, balance_after, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.AccountID, string(entry.Kind), entry.Amount.String(),
		entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Reference, entry.CreatedAt)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

func (c *conn) AccountExists(ctx context.Context, accountID int64) (bool, error) {
	var one int
	err := c.q.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *conn) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := c.q.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM accounts WHERE email = ?`, email).
		Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *conn) InsertTrade(ctx context.Context, trade *models.Trade) error {
	trade.CreatedAt = c.clk.Now()
	res, err := c.q.ExecContext(ctx,
		`INSERT INTO trades (account_id, asset, side, size, price, total, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.AccountID, trade.Asset, string(trade.Side),
		trade.Size.String(), trade.Price.String(), trade.Total.String(),
		trade.Reference, trade.CreatedAt)
	if err != nil {
		return err
	}
	trade.ID, err = res.LastInsertId()
	return err
}

func (c *conn) BuyVolume(ctx context.Context, asset string) (decimal.Decimal, error) {
	// Sizes are stored as decimal strings, so sum in Go rather than relying
	// on SQLite's float arithmetic.
	rows, err := c.q.QueryContext(ctx,
		`SELECT size FROM trades WHERE asset = ? AND side = ?`, asset, string(models.SideBuy))
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		size, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(size)
	}
	return total, rows.Err()
}

func (c *conn) InsertWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	w.RequestedAt = c.clk.Now()
	res, err := c.q.ExecContext(ctx,
		`INSERT INTO withdrawal_requests (account_id, amount, status, requested_at, processed_at)
		 VALUES (?, ?, ?, ?, NULL)`,
		w.AccountID, w.Amount.String(), string(w.Status), w.RequestedAt)
	if err != nil {
		return err
	}
	w.ID, err = res.LastInsertId()
	return err
}

// WithdrawalForUpdate is a plain read here: the store-wide write lock held
// by Atomic already excludes concurrent processing.
func (c *conn) WithdrawalForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return c.WithdrawalByID(ctx, id)
}

func (c *conn) WithdrawalByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT id, account_id, amount, status, requested_at, processed_at
		 FROM withdrawal_requests WHERE id = ?`, id)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return w, err
}

func (c *conn) UpdateWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, processedAt time.Time) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status = ?, processed_at = ? WHERE id = ?`,
		string(status), processedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *conn) StrategyByID(ctx context.Context, id int64) (*models.Strategy, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT id, name, description, category, risk_level, daily_rate, min_investment, max_investment, is_active
		 FROM strategies WHERE id = ?`, id)
	strat, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return strat, err
}

func (c *conn) InsertSubscription(ctx context.Context, sub *models.StrategySubscription) error {
	sub.SubscribedAt = c.clk.Now()
	res, err := c.q.ExecContext(ctx,
		`INSERT INTO strategy_subscriptions (account_id, strategy_id, invested_amount, is_active, subscribed_at, unsubscribed_at)
		 VALUES (?, ?, ?, ?, ?, NULL)`,
		sub.AccountID, sub.StrategyID, sub.InvestedAmount.String(), sub.IsActive, sub.SubscribedAt)
	if err != nil {
		return err
	}
	sub.ID, err = res.LastInsertId()
	return err
}

func (c *conn) ActiveSubscription(ctx context.Context, accountID, strategyID int64) (*models.StrategySubscription, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT id, account_id, strategy_id, invested_amount, is_active, subscribed_at, unsubscribed_at
		 FROM strategy_subscriptions
		 WHERE account_id = ? AND strategy_id = ? AND is_active = 1`,
		accountID, strategyID)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return sub, err
}

func (c *conn) SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT id, account_id, strategy_id, invested_amount, is_active, subscribed_at, unsubscribed_at
		 FROM strategy_subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return sub, err
}

func (c *conn) DeactivateSubscription(ctx context.Context, id int64, unsubscribedAt time.Time) error {
	res, err := c.q.ExecContext(ctx,
		`UPDATE strategy_subscriptions SET is_active = 0, unsubscribed_at = ? WHERE id = ? AND is_active = 1`,
		unsubscribedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
