package sqlite

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var (
		entry                 models.LedgerEntry
		kind                  string
		amount, before, after string
	)
	if err := row.Scan(&entry.ID, &entry.AccountID, &kind, &amount, &before, &after, &entry.Reference, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.Kind = models.EntryKind(kind)
	var err error
	if entry.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if entry.BalanceBefore, err = parseDecimal(before); err != nil {
		return nil, err
	}
	if entry.BalanceAfter, err = parseDecimal(after); err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var (
		trade              models.Trade
		side               string
		size, price, total string
	)
	if err := row.Scan(&trade.ID, &trade.AccountID, &trade.Asset, &side, &size, &price, &total, &trade.Reference, &trade.CreatedAt); err != nil {
		return nil, err
	}
	trade.Side = models.TradeSide(side)
	var err error
	if trade.Size, err = parseDecimal(size); err != nil {
		return nil, err
	}
	if trade.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if trade.Total, err = parseDecimal(total); err != nil {
		return nil, err
	}
	return &trade, nil
}

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var (
		w         models.WithdrawalRequest
		amount    string
		status    string
		processed sql.NullTime
	)
	if err := row.Scan(&w.ID, &w.AccountID, &amount, &status, &w.RequestedAt, &processed); err != nil {
		return nil, err
	}
	w.Status = models.WithdrawalStatus(status)
	var err error
	if w.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if processed.Valid {
		t := processed.Time
		w.ProcessedAt = &t
	}
	return &w, nil
}

func scanStrategy(row rowScanner) (*models.Strategy, error) {
	var (
		strat          models.Strategy
		rate, min, max string
	)
	if err := row.Scan(&strat.ID, &strat.Name, &strat.Description, &strat.Category, &strat.RiskLevel, &rate, &min, &max, &strat.IsActive); err != nil {
		return nil, err
	}
	var err error
	if strat.DailyRate, err = parseDecimal(rate); err != nil {
		return nil, err
	}
	if strat.MinInvestment, err = parseDecimal(min); err != nil {
		return nil, err
	}
	if strat.MaxInvestment, err = parseDecimal(max); err != nil {
		return nil, err
	}
	return &strat, nil
}

func scanSubscription(row rowScanner) (*models.StrategySubscription, error) {
	var (
		sub          models.StrategySubscription
		invested     string
		unsubscribed sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.AccountID, &sub.StrategyID, &invested, &sub.IsActive, &sub.SubscribedAt, &unsubscribed); err != nil {
		return nil, err
	}
	var err error
	if sub.InvestedAmount, err = parseDecimal(invested); err != nil {
		return nil, err
	}
	if unsubscribed.Valid {
		t := unsubscribed.Time
		sub.UnsubscribedAt = &t
	}
	return &sub, nil
}

// History returns the account's entries in chain order.
func (s *Store) History(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, account_id, kind, amount, balance_before, balance_after, reference, created_at
		 FROM ledger_entries WHERE account_id = ? ORDER BY created_at, id`, accountID)
}

func (s *Store) EntriesByKind(ctx context.Context, accountID int64, kind models.EntryKind) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx,
		`SELECT id, account_id, kind, amount, balance_before, balance_after, reference, created_at
		 FROM ledger_entries WHERE account_id = ? AND kind = ? ORDER BY created_at, id`,
		accountID, string(kind))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *Store) TradesByAccount(ctx context.Context, accountID int64) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, asset, side, size, price, total, reference, created_at
		 FROM trades WHERE account_id = ? ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *trade)
	}
	return trades, rows.Err()
}

func (s *Store) WithdrawalsByAccount(ctx context.Context, accountID int64) ([]models.WithdrawalRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, amount, status, requested_at, processed_at
		 FROM withdrawal_requests WHERE account_id = ? ORDER BY requested_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *w)
	}
	return requests, rows.Err()
}

// Strategies lists the catalog with active subscriber counts and invested
// totals. Totals are summed in Go to keep decimal arithmetic exact.
func (s *Store) Strategies(ctx context.Context) ([]models.StrategyStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, category, risk_level, daily_rate, min_investment, max_investment, is_active
		 FROM strategies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.StrategyStats
	index := make(map[int64]int)
	for rows.Next() {
		strat, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		index[strat.ID] = len(stats)
		stats = append(stats, models.StrategyStats{Strategy: *strat, TotalInvested: decimal.Zero})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.db.QueryContext(ctx,
		`SELECT strategy_id, invested_amount FROM strategy_subscriptions WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			strategyID int64
			invested   string
		)
		if err := subRows.Scan(&strategyID, &invested); err != nil {
			return nil, err
		}
		i, ok := index[strategyID]
		if !ok {
			continue
		}
		amount, err := parseDecimal(invested)
		if err != nil {
			return nil, err
		}
		stats[i].SubscriberCount++
		stats[i].TotalInvested = stats[i].TotalInvested.Add(amount)
	}
	return stats, subRows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	account.CreatedAt = s.clk.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (email, created_at) VALUES (?, ?)`,
		account.Email, account.CreatedAt)
	if err != nil {
		return err
	}
	account.ID, err = res.LastInsertId()
	return err
}

func (s *Store) InsertStrategy(ctx context.Context, strategy *models.Strategy) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO strategies (name, description, category, risk_level, daily_rate, min_investment, max_investment, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strategy.Name, strategy.Description, strategy.Category, strategy.RiskLevel,
		strategy.DailyRate.String(), strategy.MinInvestment.String(), strategy.MaxInvestment.String(),
		strategy.IsActive)
	if err != nil {
		return err
	}
	strategy.ID, err = res.LastInsertId()
	return err
}
