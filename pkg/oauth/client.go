package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"receipts/pkg/api"

	"golang.org/x/oauth2"
)

// State is the position of a Client in the credential lifecycle
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingCallback
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// whoAmIPath is the token introspection endpoint used by TestAPICall
const whoAmIPath = "ping/whoami"

// Client owns a single OAuth2 session: the anti-forgery state, the
// authorization code, the token pair and the authenticated user. It drives
// the authorization code handshake and token refresh, and hands out an
// authenticated request wrapper.
//
// A Client is not safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	api        *api.Client

	state        State
	stateNonce   string
	confidential bool
	authCode     string
	token        *oauth2.Token
	userID       string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for the token endpoint and API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates cfg and creates an unauthenticated session with a
// fresh state nonce
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nonce, err := GenerateState()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       slog.Default(),
		state:        StateUnauthenticated,
		stateNonce:   nonce,
		confidential: cfg.Confidential,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.api = api.NewClient(cfg.APIBaseURL(), c,
		api.WithHTTPClient(c.httpClient),
		api.WithLogger(c.logger),
	)

	return c, nil
}

// State returns the current lifecycle state
func (c *Client) State() State { return c.state }

// StateNonce returns the anti-forgery value sent as the OAuth2 state parameter
func (c *Client) StateNonce() string { return c.stateNonce }

// Confidential reports whether the session may refresh its access token
func (c *Client) Confidential() bool { return c.confidential }

// UserID returns the authenticated user, empty before the code exchange
func (c *Client) UserID() string { return c.userID }

// AccessToken returns the current bearer token
func (c *Client) AccessToken() (string, error) {
	if c.token == nil || c.token.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	return c.token.AccessToken, nil
}

// RefreshToken returns the current refresh token, empty when none was issued
func (c *Client) RefreshToken() string {
	if c.token == nil {
		return ""
	}
	return c.token.RefreshToken
}

// Token implements oauth2.TokenSource. It never refreshes on its own.
func (c *Client) Token() (*oauth2.Token, error) {
	if c.token == nil || c.token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	tok := *c.token
	return &tok, nil
}

// API returns the authenticated request wrapper bound to this session
func (c *Client) API() *api.Client { return c.api }

// TestAPICall checks that the API currently accepts the bearer token
func (c *Client) TestAPICall(ctx context.Context) (*api.Response, error) {
	resp, err := c.api.Get(ctx, whoAmIPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticatedOrRevoked, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%w: bad status code returned: %d (%s)", ErrUnauthenticatedOrRevoked, resp.StatusCode, resp.Body)
	}
	if obj, ok := resp.Object(); ok {
		if authenticated, ok := obj["authenticated"].(bool); ok && !authenticated {
			return resp, ErrUnauthenticatedOrRevoked
		}
	}

	c.logger.Debug("API test call successful", "user_id", c.userID)
	return resp, nil
}
