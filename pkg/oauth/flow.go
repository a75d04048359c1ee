package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"

	"receipts/pkg/metrics"

	"golang.org/x/oauth2"
)

// CallbackSource presents the authorization URL to the operator and blocks
// until the redirect back to the client is available, returning the full
// callback URL.
type CallbackSource interface {
	AwaitCallback(ctx context.Context, authURL string) (string, error)
}

// AuthorizationURL builds the URL the operator visits to grant access
func (c *Client) AuthorizationURL() string {
	conf := &oauth2.Config{
		ClientID:    c.cfg.ClientID,
		RedirectURL: c.cfg.RedirectURI,
		Scopes:      c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL(),
			TokenURL:  c.cfg.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	authURL := conf.AuthCodeURL(c.stateNonce,
		oauth2.SetAuthURLParam("response_type", c.cfg.ResponseType),
	)
	if len(c.cfg.ExtraAuthParams) == 0 {
		return authURL
	}

	u, err := url.Parse(authURL)
	if err != nil {
		return authURL
	}
	q := u.Query()
	for key, values := range c.cfg.ExtraAuthParams {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// StartAuth runs the whole handshake: it hands the authorization URL to src,
// waits for the callback URL and exchanges the code it carries.
func (c *Client) StartAuth(ctx context.Context, src CallbackSource) error {
	authURL := c.AuthorizationURL()
	c.state = StateAwaitingCallback
	c.logger.Debug("authorization flow started", "auth_host", c.cfg.OAuthHost)

	callbackURL, err := src.AwaitCallback(ctx, authURL)
	if err != nil {
		metrics.RecordAuthFailure("callback")
		c.resetAfterFailure()
		return fmt.Errorf("failed to receive callback: %w", err)
	}

	return c.WaitForAuthFlow(ctx, callbackURL)
}

// WaitForAuthFlow consumes the callback URL the authorization server
// redirected to, verifies its state and exchanges its code for tokens.
func (c *Client) WaitForAuthFlow(ctx context.Context, callbackURL string) error {
	code, err := c.parseCallback(callbackURL)
	if err != nil {
		metrics.RecordCallbackFailure()
		metrics.RecordAuthFailure("callback")
		c.resetAfterFailure()
		return err
	}
	metrics.RecordCallbackSuccess()

	c.authCode = code
	return c.ExchangeAuthCode(ctx)
}

func (c *Client) parseCallback(callbackURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(callbackURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCallback, err)
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCallback, err)
	}

	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		if providerErr := query.Get("error"); providerErr != "" {
			return "", fmt.Errorf("%w: code (authorization server returned %s: %s)",
				ErrMissingCallbackParameter, providerErr, query.Get("error_description"))
		}
		return "", fmt.Errorf("%w: cannot find authorization code in callback URL", ErrMissingCallbackParameter)
	}

	state := strings.TrimSpace(query.Get("state"))
	if state == "" {
		return "", fmt.Errorf("%w: cannot find state in callback URL", ErrMissingCallbackParameter)
	}

	if subtle.ConstantTimeCompare([]byte(state), []byte(c.stateNonce)) != 1 {
		c.logger.Warn("callback state mismatch")
		return "", ErrStateMismatch
	}

	return code, nil
}

// resetAfterFailure returns a session that has not yet authenticated to the
// unauthenticated state. An authenticated session keeps its tokens.
func (c *Client) resetAfterFailure() {
	if c.token == nil {
		c.state = StateUnauthenticated
	} else {
		c.state = StateAuthenticated
	}
}
