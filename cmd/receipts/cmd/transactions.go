package cmd

import (
	"context"

	"receipts/pkg/receipts"

	"github.com/spf13/cobra"
)

var (
	transactionsAccount string
	transactionsLast    int
)

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List transactions of an account",
	Long: `List the transactions of an account, the personal current account by
default. The whole feed is loaded, which is slow for busy accounts.`,
	RunE: runTransactions,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	transactionsCmd.Flags().StringVar(&transactionsAccount, "account", "", "account ID (default: personal current account)")
	transactionsCmd.Flags().IntVar(&transactionsLast, "last", 0, "only show the N most recent transactions")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	accountID, err := s.accountID(ctx, transactionsAccount)
	if err != nil {
		return err
	}

	var txs []receipts.Transaction
	err = s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		txs, err = c.Transactions(ctx, accountID)
		return err
	})
	if err != nil {
		return err
	}

	renderTransactions(s.out, lastN(txs, transactionsLast))
	return nil
}

func lastN(txs []receipts.Transaction, n int) []receipts.Transaction {
	if n <= 0 || n >= len(txs) {
		return txs
	}
	return txs[len(txs)-n:]
}
