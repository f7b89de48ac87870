package cmd

import (
	"github.com/spf13/cobra"

	"github.com/example/wallet-ledger/internal/strategy"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the strategy catalog if it is empty",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := strategy.Seed(cmd.Context(), a.store); err != nil {
		return err
	}
	a.log.Info("strategy catalog seeded", "strategies", len(strategy.DefaultStrategies))
	return nil
}
