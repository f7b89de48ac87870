package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the row helpers
// below serve the store-level projections and the in-transaction view alike.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func latestBalance(ctx context.Context, q querier, accountID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT balance_after FROM ledger_entries
		WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1
	`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read latest balance: %w", err)
	}
	return balance, nil
}

func accountByEmail(ctx context.Context, q querier, email string) (*models.Account, error) {
	var account models.Account
	err := q.QueryRow(ctx, `
		SELECT id, email, created_at FROM accounts WHERE email = $1
	`, email).Scan(&account.ID, &account.Email, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func strategyByID(ctx context.Context, q querier, id int64) (*models.Strategy, error) {
	var strat models.Strategy
	err := q.QueryRow(ctx, `
		SELECT id, name, description, category, risk_level, daily_rate, min_investment, max_investment, is_active
		FROM strategies WHERE id = $1
	`, id).Scan(&strat.ID, &strat.Name, &strat.Description, &strat.Category, &strat.RiskLevel,
		&strat.DailyRate, &strat.MinInvestment, &strat.MaxInvestment, &strat.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return &strat, nil
}

func subscriptionByID(ctx context.Context, q querier, id int64) (*models.StrategySubscription, error) {
	row := q.QueryRow(ctx, `
		SELECT id, account_id, strategy_id, invested_amount, is_active, subscribed_at, unsubscribed_at
		FROM strategy_subscriptions WHERE id = $1
	`, id)
	return scanSubscription(row)
}

func scanSubscription(row pgx.Row) (*models.StrategySubscription, error) {
	var sub models.StrategySubscription
	err := row.Scan(&sub.ID, &sub.AccountID, &sub.StrategyID, &sub.InvestedAmount,
		&sub.IsActive, &sub.SubscribedAt, &sub.UnsubscribedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &sub, nil
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	var status string
	err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &status, &w.RequestedAt, &w.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
	}
	w.Status = models.WithdrawalStatus(status)
	return &w, nil
}

// --- store-level read projections ---

func (s *Store) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return latestBalance(queryCtx, s.pool, accountID)
}

func (s *Store) History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, account_id, kind, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at, id
	`, accountID)
}

func (s *Store) EntriesByKind(ctx context.Context, accountID int64, kind models.EntryKind) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, `
		SELECT id, account_id, kind, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries WHERE account_id = $1 AND kind = $2 ORDER BY created_at, id
	`, accountID, string(kind))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry models.LedgerEntry
			kind  string
		)
		err := rows.Scan(&entry.ID, &entry.AccountID, &kind, &entry.Amount,
			&entry.BalanceBefore, &entry.BalanceAfter, &entry.Reference, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Kind = models.EntryKind(kind)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) TradesByAccount(ctx context.Context, accountID int64) ([]models.Trade, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, account_id, asset, side, size, price, total, reference, created_at
		FROM trades WHERE account_id = $1 ORDER BY created_at, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var (
			trade models.Trade
			side  string
		)
		err := rows.Scan(&trade.ID, &trade.AccountID, &trade.Asset, &side,
			&trade.Size, &trade.Price, &trade.Total, &trade.Reference, &trade.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trade.Side = models.TradeSide(side)
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

func (s *Store) WithdrawalsByAccount(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, account_id, amount, status, requested_at, processed_at
		FROM withdrawal_requests WHERE account_id = $1 ORDER BY requested_at, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []models.WithdrawalRequest
	for rows.Next() {
		var (
			w      models.WithdrawalRequest
			status string
		)
		if err := rows.Scan(&w.ID, &w.AccountID, &w.Amount, &status, &w.RequestedAt, &w.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		w.Status = models.WithdrawalStatus(status)
		requests = append(requests, w)
	}
	return requests, rows.Err()
}

func (s *Store) WithdrawalByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.pool.QueryRow(queryCtx, `
		SELECT id, account_id, amount, status, requested_at, processed_at
		FROM withdrawal_requests WHERE id = $1
	`, id)
	return scanWithdrawal(row)
}

// Strategies lists the catalog with active subscriber counts and invested
// totals, aggregated in one pass.
func (s *Store) Strategies(ctx context.Context) ([]models.StrategyStats, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT
			st.id, st.name, st.description, st.category, st.risk_level,
			st.daily_rate, st.min_investment, st.max_investment, st.is_active,
			COUNT(ss.id) AS subscriber_count,
			COALESCE(SUM(ss.invested_amount), 0) AS total_invested
		FROM strategies st
		LEFT JOIN strategy_subscriptions ss ON ss.strategy_id = st.id AND ss.is_active
		GROUP BY st.id
		ORDER BY st.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var stats []models.StrategyStats
	for rows.Next() {
		var stat models.StrategyStats
		err := rows.Scan(&stat.ID, &stat.Name, &stat.Description, &stat.Category, &stat.RiskLevel,
			&stat.DailyRate, &stat.MinInvestment, &stat.MaxInvestment, &stat.IsActive,
			&stat.SubscriberCount, &stat.TotalInvested)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *Store) StrategyByID(ctx context.Context, id int64) (*models.Strategy, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return strategyByID(queryCtx, s.pool, id)
}

func (s *Store) SubscriptionByID(ctx context.Context, id int64) (*models.StrategySubscription, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return subscriptionByID(queryCtx, s.pool, id)
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return accountByEmail(queryCtx, s.pool, email)
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	account.CreatedAt = s.clk.Now()
	err := s.pool.QueryRow(queryCtx, `
		INSERT INTO accounts (email, created_at) VALUES ($1, $2) RETURNING id
	`, account.Email, account.CreatedAt).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) InsertStrategy(ctx context.Context, strategy *models.Strategy) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := s.pool.QueryRow(queryCtx, `
		INSERT INTO strategies (name, description, category, risk_level, daily_rate, min_investment, max_investment, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, strategy.Name, strategy.Description, strategy.Category, strategy.RiskLevel,
		strategy.DailyRate, strategy.MinInvestment, strategy.MaxInvestment, strategy.IsActive).Scan(&strategy.ID)
	if err != nil {
		return fmt.Errorf("failed to insert strategy: %w", err)
	}
	return nil
}
