package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"receipts/pkg/api"

	"golang.org/x/oauth2"
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

// newTestClient serves canned responses keyed by "METHOD /path"
func newTestClient(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		route, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		route(w)
	}))
	t.Cleanup(srv.Close)

	wrapper := api.NewClient(srv.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}),
		api.WithHTTPClient(srv.Client()))
	return New(wrapper), &calls
}

func reply(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func TestClient_RetailAccount(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantID  string
		wantErr error
	}{
		{
			name:   "skips joint account",
			status: http.StatusOK,
			body:   `{"accounts":[{"id":"acc_joint","type":"uk_retail_joint"},{"id":"acc_1","type":"uk_retail","created":"2024-01-02T03:04:05.000Z"}]}`,
			wantID: "acc_1",
		},
		{
			name:    "no personal account",
			status:  http.StatusOK,
			body:    `{"accounts":[{"id":"acc_joint","type":"uk_retail_joint"}]}`,
			wantErr: ErrNoRetailAccount,
		},
		{
			name:    "missing accounts field",
			status:  http.StatusOK,
			body:    `{"something":"else"}`,
			wantErr: ErrUnexpectedResponse,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `hello`,
			wantErr: ErrUnexpectedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, map[string]func(http.ResponseWriter){
				"GET /accounts": reply(tt.status, tt.body),
			})

			acc, err := c.RetailAccount(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RetailAccount() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RetailAccount() error = %v", err)
			}
			if acc.ID != tt.wantID {
				t.Errorf("RetailAccount().ID = %q, want %q", acc.ID, tt.wantID)
			}
		})
	}
}

func TestClient_APIError(t *testing.T) {
	c, _ := newTestClient(t, map[string]func(http.ResponseWriter){
		"GET /transactions": reply(http.StatusForbidden, `{"code":"forbidden.insufficient_permissions"}`),
	})

	_, err := c.Transactions(context.Background(), "acc_1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Transactions() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Op != "list transactions" {
		t.Errorf("APIError = %+v", apiErr)
	}
	payload, ok := apiErr.Payload.(map[string]any)
	if !ok || payload["code"] != "forbidden.insufficient_permissions" {
		t.Errorf("Payload = %#v", apiErr.Payload)
	}
	if IsUnauthorized(err) {
		t.Error("IsUnauthorized() = true for a 403")
	}
}

func TestIsUnauthorized(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &APIError{Op: "list accounts", StatusCode: http.StatusUnauthorized})
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized() = false for a wrapped 401")
	}
	if IsUnauthorized(errors.New("plain")) {
		t.Error("IsUnauthorized() = true for a plain error")
	}
}

func TestClient_Transactions(t *testing.T) {
	c, calls := newTestClient(t, map[string]func(http.ResponseWriter){
		"GET /transactions": reply(http.StatusOK, `{"transactions":[{"id":"tx_1","amount":-350,"currency":"GBP"},{"id":"tx_2","amount":-120,"currency":"GBP"}]}`),
	})

	txs, err := c.Transactions(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(txs) != 2 || txs[0].Amount != -350 {
		t.Errorf("Transactions() = %+v", txs)
	}
	if (*calls)[0].query != "account_id=acc_1" {
		t.Errorf("query = %q, want account_id=acc_1", (*calls)[0].query)
	}

	latest, ok := MostRecent(txs)
	if !ok || latest.ID != "tx_2" {
		t.Errorf("MostRecent() = %+v, %v", latest, ok)
	}
	if _, ok := MostRecent(nil); ok {
		t.Error("MostRecent(nil) reported a transaction")
	}
}

func TestClient_PutAndReadReceipt(t *testing.T) {
	var stored string
	c, calls := newTestClient(t, map[string]func(http.ResponseWriter){
		"PUT /transaction-receipts": reply(http.StatusOK, `{}`),
		"GET /transaction-receipts": func(w http.ResponseWriter) {
			fmt.Fprintf(w, `{"receipt":%s}`, stored)
		},
	})

	receipt := ExampleReceipt(Transaction{ID: "tx_1", Amount: -350})
	if err := c.PutReceipt(context.Background(), receipt); err != nil {
		t.Fatalf("PutReceipt() error = %v", err)
	}
	put := (*calls)[0]
	if put.contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", put.contentType)
	}
	stored = put.body

	got, err := c.ReadReceipt(context.Background(), receipt.ExternalID)
	if err != nil {
		t.Fatalf("ReadReceipt() error = %v", err)
	}
	if (*calls)[1].query != "external_id="+receipt.ExternalID {
		t.Errorf("query = %q", (*calls)[1].query)
	}
	if got.ExternalID != receipt.ExternalID || got.Total != 350 || len(got.Items) != 2 {
		t.Errorf("ReadReceipt() = %+v", got)
	}
}

func TestClient_PutReceiptValidation(t *testing.T) {
	c, calls := newTestClient(t, nil)

	tests := []struct {
		name    string
		receipt *Receipt
	}{
		{"nil", nil},
		{"missing external id", &Receipt{TransactionID: "tx_1", Currency: "GBP"}},
		{"bad currency", &Receipt{ExternalID: "x", TransactionID: "tx_1", Currency: "pounds"}},
		{"bad payment type", &Receipt{ExternalID: "x", TransactionID: "tx_1", Currency: "GBP",
			Payments: []Payment{{Type: "cheque", Currency: "GBP"}}}},
		{"item without description", &Receipt{ExternalID: "x", TransactionID: "tx_1", Currency: "GBP",
			Items: []Item{{Currency: "GBP"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.PutReceipt(context.Background(), tt.receipt); !errors.Is(err, ErrInvalidReceipt) {
				t.Errorf("PutReceipt() error = %v, want ErrInvalidReceipt", err)
			}
		})
	}
	if len(*calls) != 0 {
		t.Errorf("invalid receipts reached the API %d times", len(*calls))
	}
}

func TestClient_Webhooks(t *testing.T) {
	c, calls := newTestClient(t, map[string]func(http.ResponseWriter){
		"GET /webhooks":  reply(http.StatusOK, `{"webhooks":[{"id":"webhook_1","account_id":"acc_1","url":"https://a.example/hook"}]}`),
		"POST /webhooks": reply(http.StatusOK, `{"webhook":{"id":"webhook_2","account_id":"acc_1","url":"https://example.com/webhook_callback"}}`),
	})

	hooks, err := c.Webhooks(context.Background(), "acc_1")
	if err != nil {
		t.Fatalf("Webhooks() error = %v", err)
	}
	if len(hooks) != 1 || hooks[0].ID != "webhook_1" {
		t.Errorf("Webhooks() = %+v", hooks)
	}

	hook, err := c.RegisterWebhook(context.Background(), "acc_1", "https://example.com/webhook_callback")
	if err != nil {
		t.Fatalf("RegisterWebhook() error = %v", err)
	}
	if hook.ID != "webhook_2" {
		t.Errorf("RegisterWebhook().ID = %q, want webhook_2", hook.ID)
	}

	post := (*calls)[1]
	if post.contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", post.contentType)
	}
	if post.body != "account_id=acc_1&url=https%3A%2F%2Fexample.com%2Fwebhook_callback" {
		t.Errorf("form = %q", post.body)
	}
}

func TestExampleReceipt(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		wantTotal int64
		wantItems int
	}{
		{"debit above bananas price", -350, 350, 2},
		{"exactly bananas price", -269, 269, 1},
		{"credit below bananas price", 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExampleReceipt(Transaction{ID: "tx_1", Amount: tt.amount})
			if r.Total != tt.wantTotal || r.Payments[0].Amount != tt.wantTotal {
				t.Errorf("Total = %d, payment = %d, want %d", r.Total, r.Payments[0].Amount, tt.wantTotal)
			}
			if len(r.Items) != tt.wantItems {
				t.Fatalf("items = %d, want %d", len(r.Items), tt.wantItems)
			}
			if tt.wantItems == 2 && r.Items[1].Amount != tt.wantTotal-269 {
				t.Errorf("excess fare = %d, want %d", r.Items[1].Amount, tt.wantTotal-269)
			}
			if err := New(nil).validate.Struct(r); err != nil {
				t.Errorf("example receipt does not validate: %v", err)
			}
		})
	}

	// Wire format keeps every field, including empty sub_items
	data, err := json.Marshal(ExampleReceipt(Transaction{ID: "tx_1", Amount: -350}))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	items := doc["items"].([]any)
	if subs, ok := items[1].(map[string]any)["sub_items"].([]any); !ok || len(subs) != 0 {
		t.Errorf("excess fare sub_items = %#v, want []", items[1].(map[string]any)["sub_items"])
	}
	for _, key := range []string{"id", "external_id", "transaction_id", "total", "currency", "payments", "taxes", "items"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("receipt JSON missing %q", key)
		}
	}
}

func TestNewExternalID(t *testing.T) {
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	a, b := NewExternalID(), NewExternalID()
	if !hex32.MatchString(a) {
		t.Errorf("NewExternalID() = %q, want 32 hex digits", a)
	}
	if a == b {
		t.Error("NewExternalID() repeated a value")
	}
}
