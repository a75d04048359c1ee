package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var demoWebhookURL string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the end-to-end receipts example",
	Long: `Authenticate, load the personal account's transactions, attach an example
receipt to the most recent one, read it back and register a webhook.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoWebhookURL, "webhook-url", "https://example.com/webhook_callback", "endpoint served by your own backend")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	accountID, err := s.accountID(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Retrieved account information.")

	tx, err := s.targetTransaction(ctx, accountID, "")
	if err != nil {
		return err
	}

	externalID, err := s.putExampleReceipt(ctx, tx)
	if err != nil {
		return err
	}
	if err := s.readReceipt(ctx, externalID); err != nil {
		return err
	}

	fmt.Fprintln(s.out, "Listing webhooks on account")
	hooks, err := s.listWebhooks(ctx, accountID)
	if err != nil {
		return err
	}
	renderWebhooks(s.out, hooks)

	_, err = s.registerWebhook(ctx, accountID, demoWebhookURL)
	return err
}
