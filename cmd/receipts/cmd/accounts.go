package cmd

import (
	"context"

	"receipts/pkg/receipts"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts",
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	var accounts []receipts.Account
	err = s.call(cmd.Context(), func(ctx context.Context, c *receipts.Client) error {
		accounts, err = c.Accounts(ctx)
		return err
	})
	if err != nil {
		return err
	}

	renderAccounts(s.out, accounts)
	return nil
}
