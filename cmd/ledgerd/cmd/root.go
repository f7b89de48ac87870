package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "Append-only wallet ledger daemon and operations CLI",
	Long: `Ledgerd manages a per-account monetary ledger with derived balances.

It provides commands for:
  - Running the daemon (serve)
  - Applying the database schema (migrate)
  - Seeding the strategy catalog (seed)
  - Inspecting and operating on accounts (balance, deposit, history)`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	return logger
}
