package cmd

import (
	"context"
	"errors"
	"fmt"

	"receipts/pkg/receipts"

	"github.com/spf13/cobra"
)

var (
	receiptAccount     string
	receiptTransaction string
)

var receiptCmd = &cobra.Command{
	Use:   "receipt",
	Short: "Attach and read transaction receipts",
}

var receiptPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Attach an example receipt to a transaction",
	Long: `Attach a fabricated grocery receipt to a transaction, the most recent one
of the personal current account by default. The same transaction can be given
receipts again and again.`,
	Args: cobra.NoArgs,
	RunE: runReceiptPut,
}

var receiptReadCmd = &cobra.Command{
	Use:   "read EXTERNAL_ID",
	Short: "Read a receipt by its external ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceiptRead,
}

func init() {
	rootCmd.AddCommand(receiptCmd)
	receiptCmd.AddCommand(receiptPutCmd, receiptReadCmd)
	receiptPutCmd.Flags().StringVar(&receiptAccount, "account", "", "account ID (default: personal current account)")
	receiptPutCmd.Flags().StringVar(&receiptTransaction, "transaction", "", "transaction ID (default: most recent transaction)")
}

func runReceiptPut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	tx, err := s.targetTransaction(ctx, receiptAccount, receiptTransaction)
	if err != nil {
		return err
	}

	_, err = s.putExampleReceipt(ctx, tx)
	return err
}

func runReceiptRead(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return s.readReceipt(cmd.Context(), args[0])
}

// targetTransaction finds txID in the account's feed, or its most recent
// transaction when txID is empty
func (s *session) targetTransaction(ctx context.Context, accountID, txID string) (receipts.Transaction, error) {
	accountID, err := s.accountID(ctx, accountID)
	if err != nil {
		return receipts.Transaction{}, err
	}

	var txs []receipts.Transaction
	err = s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		txs, err = c.Transactions(ctx, accountID)
		return err
	})
	if err != nil {
		return receipts.Transaction{}, err
	}
	fmt.Fprintln(s.out, "All transactions loaded.")

	if txID == "" {
		tx, ok := receipts.MostRecent(txs)
		if !ok {
			return receipts.Transaction{}, errors.New("no transactions found in the account")
		}
		return tx, nil
	}
	for _, tx := range txs {
		if tx.ID == txID {
			return tx, nil
		}
	}
	return receipts.Transaction{}, fmt.Errorf("transaction %s not found in account %s", txID, accountID)
}

func (s *session) putExampleReceipt(ctx context.Context, tx receipts.Transaction) (string, error) {
	fmt.Fprintf(s.out, "Using transaction %s (%s) to attach receipt\n", tx.ID, formatAmount(tx.Amount, tx.Currency))

	receipt := receipts.ExampleReceipt(tx)
	fmt.Fprintln(s.out, "Uploading receipt data to API:")
	if err := printJSON(s.out, receipt); err != nil {
		return "", err
	}

	err := s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		return c.PutReceipt(ctx, receipt)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	fmt.Fprintf(s.out, "Successfully uploaded receipt %s\n", receipt.ExternalID)
	return receipt.ExternalID, nil
}

func (s *session) readReceipt(ctx context.Context, externalID string) error {
	var receipt *receipts.Receipt
	err := s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		var err error
		receipt, err = c.ReadReceipt(ctx, externalID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load receipt: %w", err)
	}

	fmt.Fprintln(s.out, "Receipt read:")
	return printJSON(s.out, receipt)
}
