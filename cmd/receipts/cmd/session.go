package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"receipts/pkg/browser"
	"receipts/pkg/config"
	"receipts/pkg/oauth"
	"receipts/pkg/prompt"
	"receipts/pkg/receipts"

	"github.com/spf13/cobra"
)

// session is an authenticated run of the CLI
type session struct {
	auth     *oauth.Client
	receipts *receipts.Client
	logger   *slog.Logger
	out      io.Writer
}

// newSession loads the configuration and completes the authorization flow
func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath, envFiles...)
	if err != nil {
		return nil, err
	}

	auth, err := oauth.NewClient(cfg, oauth.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	src, err := callbackSource(ctx, cmd, cfg, auth, logger)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "Starting OAuth2 flow...")
	if err := auth.StartAuth(ctx, src); err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "OAuth2 flow completed, testing API call...")
	if _, err := auth.TestAPICall(ctx); err != nil {
		return nil, fmt.Errorf("OAuth2 flow seems to have failed: %w", err)
	}
	fmt.Fprintln(out, "API call test successful!")

	return &session{
		auth:     auth,
		receipts: receipts.New(auth.API()),
		logger:   logger,
		out:      out,
	}, nil
}

func callbackSource(ctx context.Context, cmd *cobra.Command, cfg oauth.Config, auth *oauth.Client, logger *slog.Logger) (oauth.CallbackSource, error) {
	if !listen {
		return prompt.New(
			prompt.WithInput(cmd.InOrStdin()),
			prompt.WithOutput(cmd.OutOrStdout()),
			prompt.WithBrowser(openBrowser),
		), nil
	}

	server, err := oauth.NewCallbackServer(cfg.RedirectURI,
		oauth.WithCallbackTimeout(cfg.CallbackTimeout),
		oauth.WithCallbackOutput(cmd.OutOrStdout()),
		oauth.WithCallbackLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	if openBrowser {
		if err := browser.Open(auth.AuthorizationURL()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\n", err)
		}
	}
	return server, nil
}

// refresher is the part of oauth.Client needed to recover from a 401
type refresher interface {
	Confidential() bool
	RefreshAccessToken(ctx context.Context) error
}

// withRefresh runs fn and, if the API rejected the access token, refreshes
// it once and runs fn again. Non-confidential sessions cannot refresh.
func withRefresh(ctx context.Context, r refresher, logger *slog.Logger, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !receipts.IsUnauthorized(err) || !r.Confidential() {
		return err
	}

	logger.Info("access token rejected, refreshing")
	if rerr := r.RefreshAccessToken(ctx); rerr != nil {
		return fmt.Errorf("%w (refresh failed: %w)", err, rerr)
	}
	return fn(ctx)
}

// call runs fn against the receipts client with one refresh on a 401
func (s *session) call(ctx context.Context, fn func(context.Context, *receipts.Client) error) error {
	return withRefresh(ctx, s.auth, s.logger, func(ctx context.Context) error {
		return fn(ctx, s.receipts)
	})
}

// accountID returns id or, when empty, the personal current account
func (s *session) accountID(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	fmt.Fprintln(s.out, "Retrieving account information...")
	var account receipts.Account
	err := s.call(ctx, func(ctx context.Context, c *receipts.Client) error {
		var err error
		account, err = c.RetailAccount(ctx)
		return err
	})
	if err != nil {
		return "", err
	}
	return account.ID, nil
}
