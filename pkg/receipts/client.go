// Package receipts talks to the accounts, transactions, transaction
// receipts and webhooks endpoints of the banking API.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"receipts/pkg/api"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnexpectedResponse is returned when a successful response lacks the expected document
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrNoRetailAccount is returned when the user has no personal current account
	ErrNoRetailAccount = errors.New("could not find a personal account")
	// ErrInvalidReceipt is returned when a receipt fails validation before upload
	ErrInvalidReceipt = errors.New("invalid receipt")
)

// APIError is a request that reached the API but did not succeed
type APIError struct {
	Op         string
	StatusCode int
	Payload    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: bad status code %d: %v", e.Op, e.StatusCode, e.Payload)
}

// IsUnauthorized reports whether err is an APIError carrying a 401
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Requester is the subset of the authenticated request wrapper used here
type Requester interface {
	Get(ctx context.Context, path string, params api.Params) (*api.Response, error)
	Post(ctx context.Context, path string, params api.Params) (*api.Response, error)
	PutJSON(ctx context.Context, path string, body any) (*api.Response, error)
}

// Client is a single-account client of the receipts API
type Client struct {
	api      Requester
	validate *validator.Validate
}

// New creates a Client issuing requests through r
func New(r Requester) *Client {
	return &Client{
		api:      r,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Accounts lists the user's accounts
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, "list accounts", "accounts", nil, "accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// RetailAccount returns the user's personal current account, ignoring joint ones
func (c *Client) RetailAccount(ctx context.Context) (Account, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.Type == RetailAccountType {
			return a, nil
		}
	}
	return Account{}, ErrNoRetailAccount
}

// Transactions lists every transaction of an account. The feed is not
// paginated, which is slow for busy accounts.
func (c *Client) Transactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var txs []Transaction
	params := api.Params{}.Add("account_id", accountID)
	if err := c.get(ctx, "list transactions", "transactions", params, "transactions", &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ReadReceipt fetches the receipt stored under externalID
func (c *Client) ReadReceipt(ctx context.Context, externalID string) (*Receipt, error) {
	var receipt Receipt
	params := api.Params{}.Add("external_id", externalID)
	if err := c.get(ctx, "read receipt", "transaction-receipts", params, "receipt", &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// PutReceipt creates or replaces the receipt identified by its ExternalID
func (c *Client) PutReceipt(ctx context.Context, receipt *Receipt) error {
	if receipt == nil {
		return fmt.Errorf("%w: nil receipt", ErrInvalidReceipt)
	}
	if err := c.validate.Struct(receipt); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReceipt, err)
	}

	resp, err := c.api.PutJSON(ctx, "transaction-receipts", receipt)
	if err != nil {
		return fmt.Errorf("upload receipt: %w", err)
	}
	if !resp.Success {
		return &APIError{Op: "upload receipt", StatusCode: resp.StatusCode, Payload: resp.Payload}
	}
	return nil
}

// Webhooks lists the webhooks registered on an account
func (c *Client) Webhooks(ctx context.Context, accountID string) ([]Webhook, error) {
	var hooks []Webhook
	params := api.Params{}.Add("account_id", accountID)
	if err := c.get(ctx, "list webhooks", "webhooks", params, "webhooks", &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// RegisterWebhook asks the API to call endpoint on account events
func (c *Client) RegisterWebhook(ctx context.Context, accountID, endpoint string) (*Webhook, error) {
	params := api.Params{}.Add("account_id", accountID).Add("url", endpoint)
	resp, err := c.api.Post(ctx, "webhooks", params)
	if err != nil {
		return nil, fmt.Errorf("register webhook: %w", err)
	}

	var hook Webhook
	if err := decodeField("register webhook", resp, "webhook", &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

func (c *Client) get(ctx context.Context, op, path string, params api.Params, field string, v any) error {
	resp, err := c.api.Get(ctx, path, params)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return decodeField(op, resp, field, v)
}

// decodeField unmarshals one top-level field of a successful JSON object response
func decodeField(op string, resp *api.Response, field string, v any) error {
	if !resp.Success {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Payload: resp.Payload}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnexpectedResponse, err)
	}
	raw, ok := envelope[field]
	if !ok {
		return fmt.Errorf("%s: %w: missing %q", op, ErrUnexpectedResponse, field)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnexpectedResponse, err)
	}
	return nil
}
