package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"receipts/pkg/receipts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderAccounts(w io.Writer, accounts []receipts.Account) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Type", "Description", "Created"})
	for _, a := range accounts {
		desc := a.Description
		if a.Closed {
			desc += " (closed)"
		}
		t.AppendRow(table.Row{a.ID, a.Type, desc, a.Created.Format("2006-01-02")})
	}
	t.Render()
}

func renderTransactions(w io.Writer, txs []receipts.Transaction) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Created", "Description", "Amount"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	for _, tx := range txs {
		t.AppendRow(table.Row{tx.ID, tx.Created.Format("2006-01-02 15:04"), tx.Description, formatAmount(tx.Amount, tx.Currency)})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(txs)})
	t.Render()
}

func renderWebhooks(w io.Writer, hooks []receipts.Webhook) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Account", "URL"})
	for _, h := range hooks {
		t.AppendRow(table.Row{h.ID, h.AccountID, h.URL})
	}
	t.Render()
}

// formatAmount renders minor units as a decimal amount, e.g. -350 GBP as -3.50 GBP
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
