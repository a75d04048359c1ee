package cmd

import (
	"context"
	"fmt"

	"receipts/pkg/receipts"

	"github.com/spf13/cobra"
)

var webhooksAccount string

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage account webhooks",
	Long: `Webhooks make the API call your own backend when events happen on an
account, for example to attach receipts to new transactions as they arrive.`,
}

var webhooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhooks registered on an account",
	Args:  cobra.NoArgs,
	RunE:  runWebhooksList,
}

var webhooksRegisterCmd = &cobra.Command{
	Use:   "register URL",
	Short: "Register a webhook URL on an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhooksRegister,
}

func init() {
	rootCmd.AddCommand(webhooksCmd)
	webhooksCmd.AddCommand(webhooksListCmd, webhooksRegisterCmd)
	webhooksCmd.PersistentFlags().StringVar(&webhooksAccount, "account", "", "account ID (default: personal current account)")
}

func runWebhooksList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	accountID, err := s.accountID(ctx, webhooksAccount)
	if err != nil {
		return err
	}

	hooks, err := s.listWebhooks(ctx, accountID)
	if err != nil {
		return err
	}
	renderWebhooks(s.out, hooks)
	return nil
}

func runWebhooksRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	accountID, err := s.accountID(ctx, webhooksAccount)
	if err != nil {
		return err
	}

	_, err = s.registerWebhook(ctx, accountID, args[0])
	return err
}

func (s *session) listWebhooks(ctx context.Context, accountID string) ([]receipts.Webhook, error) {
	var hooks []receipts.Webhook
	err := s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		var err error
		hooks, err = c.Webhooks(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return hooks, nil
}

func (s *session) registerWebhook(ctx context.Context, accountID, endpoint string) (*receipts.Webhook, error) {
	fmt.Fprintf(s.out, "Registering a webhook with callback URL %s ...\n", endpoint)

	var hook *receipts.Webhook
	err := s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		var err error
		hook, err = c.RegisterWebhook(ctx, accountID, endpoint)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	fmt.Fprintf(s.out, "Successfully registered webhook %s\n", hook.ID)
	return hook, nil
}
