package cmd

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Operational commands for inspecting and exercising accounts from the
// shell. These go through the same wallet facade the daemon uses.

var balanceCmd = &cobra.Command{
	Use:   "balance <account-id>",
	Short: "Print an account's derived balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

var depositCmd = &cobra.Command{
	Use:   "deposit <account-id> <amount>",
	Short: "Credit an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeposit,
}

var historyCmd = &cobra.Command{
	Use:   "history <account-id>",
	Short: "Print an account's ledger entries in chain order",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the strategy catalog with subscription stats",
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(balanceCmd, depositCmd, historyCmd, strategiesCmd)
}

func parseAccountID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", arg)
	}
	return id, nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}
	balance, err := a.service.GetBalance(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", balance)
	return nil
}

func runDeposit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}
	balance, err := a.service.Deposit(cmd.Context(), id, amount)
	if err != nil {
		return err
	}
	fmt.Printf("balance: %s\n", balance)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}
	entries, err := a.service.History(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%d\t%s\t%s\t%s -> %s\t%s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind,
			e.BalanceBefore, e.BalanceAfter, e.Reference)
	}
	return nil
}

func runStrategies(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.service.Strategies(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range stats {
		fmt.Printf("%d\t%-24s\t%s/%s\trate=%s\tsubscribers=%d\tinvested=%s\n",
			s.ID, s.Name, s.Category, s.RiskLevel, s.DailyRate, s.SubscriberCount, s.TotalInvested)
	}
	return nil
}
