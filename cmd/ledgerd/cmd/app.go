package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/wallet-ledger/internal/accrual"
	"github.com/example/wallet-ledger/internal/clock"
	"github.com/example/wallet-ledger/internal/config"
	"github.com/example/wallet-ledger/internal/ledger"
	"github.com/example/wallet-ledger/internal/notify"
	"github.com/example/wallet-ledger/internal/pricing"
	"github.com/example/wallet-ledger/internal/storage"
	"github.com/example/wallet-ledger/internal/storage/memory"
	"github.com/example/wallet-ledger/internal/storage/postgres"
	"github.com/example/wallet-ledger/internal/storage/sqlite"
	"github.com/example/wallet-ledger/internal/strategy"
	"github.com/example/wallet-ledger/internal/trading"
	"github.com/example/wallet-ledger/internal/wallet"
	"github.com/example/wallet-ledger/internal/withdrawal"
)

// app is the wired service stack shared by all commands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   storage.Store
	sink    notify.Sink
	service *wallet.Service
}

func openStore(ctx context.Context, cfg *config.Config, clk clock.Clock) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.DatabaseURL, clk)
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath, clk)
	case config.DriverMemory:
		return memory.NewStore(clk), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newApp(ctx context.Context) (*app, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	clk := clock.System{}
	store, err := openStore(ctx, cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var sink notify.Sink = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		sink = notify.NewKafka(cfg.KafkaBrokers, cfg.NotifyTopic)
	}

	quotes := pricing.NewCache(pricing.NewFallback(), cfg.PriceTTL, clk)

	engine := ledger.NewEngine(store, logger, cfg.CommandTimeout)
	trades := trading.NewSettlement(store, engine, quotes, logger, cfg.CommandTimeout)
	withdrawals := withdrawal.NewWorkflow(store, engine, clk, logger, cfg.CommandTimeout)
	strategies := strategy.NewService(store, engine, accrual.NewEngine(nil), clk, logger, cfg.CommandTimeout)

	return &app{
		cfg:     cfg,
		log:     logger,
		store:   store,
		sink:    sink,
		service: wallet.New(store, engine, trades, withdrawals, strategies, sink, clk, logger),
	}, nil
}

func (a *app) close() {
	if closer, ok := a.sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("closing notification sink", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}
