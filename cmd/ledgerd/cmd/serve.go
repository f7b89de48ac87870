package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger daemon until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if migrator, ok := a.store.(interface{ Migrate(context.Context) error }); ok {
		if err := migrator.Migrate(cmd.Context()); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info("ledgerd running",
		"environment", a.cfg.Environment,
		"driver", a.cfg.Driver,
		"notify_topic", a.cfg.NotifyTopic,
	)

	<-sigCh
	a.log.Info("shutting down")
	return nil
}
