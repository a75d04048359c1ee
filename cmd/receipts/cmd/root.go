package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"receipts/pkg/metrics"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	envFiles    []string
	listen      bool
	openBrowser bool
	verbose     bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "receipts",
	Short: "Monzo transaction receipts client",
	Long: `receipts authenticates against the Monzo API with OAuth2 and attaches
itemised receipts to transactions.

Every command runs the authorization flow first:
  receipts transactions

Visit the printed URL, follow the email login, then paste the URL you are
redirected to. With --listen the redirect is captured by a local listener
on the configured redirect URI instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if metricsAddr == "" {
			return nil
		}
		addr, err := metrics.Serve(cmd.Context(), metricsAddr, newLogger(cmd.ErrOrStderr(), verbose))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics\n", addr)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default $HOME/.config/receipts/config.yaml)")
	flags.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading MONZO_* variables")
	flags.BoolVar(&listen, "listen", false, "capture the OAuth2 redirect with a local listener instead of a prompt")
	flags.BoolVar(&openBrowser, "open", false, "open the authorization URL in the default browser")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address for the lifetime of the command")
}

// ExecuteContext runs the root command; ctx cancels any pending flow
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
