package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"receipts/pkg/metrics"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single API round trip when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// Response is the outcome of an API call that reached the server.
// Payload is the decoded JSON document (map, slice, string, number, bool or
// nil) or, when the body is not JSON, the raw body text.
type Response struct {
	Success    bool
	StatusCode int
	Payload    any
	Body       []byte
}

// Object returns the payload as a JSON object, if it is one.
func (r *Response) Object() (map[string]any, bool) {
	obj, ok := r.Payload.(map[string]any)
	return obj, ok
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Client issues bearer-authenticated requests against the API host.
type Client struct {
	baseURL    string
	source     oauth2.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL (e.g. https://api.monzo.com). The
// token source is consulted before every request.
func NewClient(baseURL string, source oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     source,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the absolute URL for path. A leading slash is optional.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// Get sends params as a query string.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	target := c.URL(path)
	if q := params.Encode(); q != "" {
		target += "?" + q
	}
	return c.do(ctx, http.MethodGet, path, target, nil, "")
}

// Post sends params as a form-encoded body.
func (c *Client) Post(ctx context.Context, path string, params Params) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, c.URL(path), strings.NewReader(params.Encode()), "application/x-www-form-urlencoded")
}

// Put sends params as a form-encoded body.
func (c *Client) Put(ctx context.Context, path string, params Params) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, c.URL(path), strings.NewReader(params.Encode()), "application/x-www-form-urlencoded")
}

// PutJSON sends body marshalled as a JSON document.
func (c *Client) PutJSON(ctx context.Context, path string, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, c.URL(path), bytes.NewReader(data), "application/json")
}

func (c *Client) do(ctx context.Context, method, path, target string, body io.Reader, contentType string) (*Response, error) {
	if c.source == nil {
		return nil, ErrNotAuthenticated
	}
	token, err := c.source.Token()
	if err != nil {
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	token.SetAuthHeader(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	op := method + " " + strings.TrimPrefix(path, "/")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug("api request",
		"method", method,
		"path", strings.TrimPrefix(path, "/"),
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return &Response{
		Success:    resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Payload:    parsePayload(data),
		Body:       data,
	}, nil
}

// parsePayload decodes data as JSON and falls back to the raw text.
func parsePayload(data []byte) any {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return string(data)
	}
	return payload
}

// IsTransportError reports whether err is, or wraps, a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
