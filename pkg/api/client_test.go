package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"golang.org/x/oauth2"
)

func staticSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

type failingSource struct{ err error }

func (f failingSource) Token() (*oauth2.Token, error) { return nil, f.err }

func TestClient_LeadingSlashNormalization(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.String())
		w.Write([]byte(`{"accounts":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticSource("t1"))
	if c.URL("/accounts") != c.URL("accounts") {
		t.Fatalf("URL(/accounts) = %q, URL(accounts) = %q", c.URL("/accounts"), c.URL("accounts"))
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "/accounts", nil); err != nil {
		t.Fatalf("Get(/accounts) error = %v", err)
	}
	if _, err := c.Get(ctx, "accounts", nil); err != nil {
		t.Fatalf("Get(accounts) error = %v", err)
	}

	if len(paths) != 2 || paths[0] != paths[1] {
		t.Errorf("requests targeted different URLs: %v", paths)
	}
	if paths[0] != "/accounts" {
		t.Errorf("request path = %q, want /accounts", paths[0])
	}
}

func TestClient_BearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticSource("secret-token"))
	if _, err := c.Get(context.Background(), "ping/whoami", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer secret-token")
	}
}

func TestClient_ResponseHandling(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSuccess bool
		wantPayload any
	}{
		{
			name:        "404 with JSON error body is parsed",
			status:      http.StatusNotFound,
			body:        `{"code":"not_found","message":"no such account"}`,
			wantSuccess: false,
			wantPayload: map[string]any{"code": "not_found", "message": "no such account"},
		},
		{
			name:        "200 with non-JSON body falls back to raw text",
			status:      http.StatusOK,
			body:        "pong",
			wantSuccess: true,
			wantPayload: "pong",
		},
		{
			name:        "200 with JSON array",
			status:      http.StatusOK,
			body:        `[1,2]`,
			wantSuccess: true,
			wantPayload: []any{float64(1), float64(2)},
		},
		{
			name:        "201 is not success",
			status:      http.StatusCreated,
			body:        `{"ok":true}`,
			wantSuccess: false,
			wantPayload: map[string]any{"ok": true},
		},
		{
			name:        "500 with HTML body",
			status:      http.StatusInternalServerError,
			body:        "<html>oops</html>",
			wantSuccess: false,
			wantPayload: "<html>oops</html>",
		},
		{
			name:        "empty body",
			status:      http.StatusOK,
			body:        "",
			wantSuccess: true,
			wantPayload: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, staticSource("t1"))
			resp, err := c.Get(context.Background(), "accounts", nil)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", resp.Success, tt.wantSuccess)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.status)
			}
			if !reflect.DeepEqual(resp.Payload, tt.wantPayload) {
				t.Errorf("Payload = %#v, want %#v", resp.Payload, tt.wantPayload)
			}
		})
	}
}

func TestClient_ParamsPlacement(t *testing.T) {
	type seen struct {
		method      string
		query       string
		body        string
		contentType string
	}
	var got seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.RawQuery, string(b), r.Header.Get("Content-Type")}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticSource("t1"))
	ctx := context.Background()
	params := Params{}.Add("account_id", "acc_1").Add("url", "https://example.com/hook")

	if _, err := c.Get(ctx, "webhooks", params); err != nil {
		t.Fatal(err)
	}
	if got.method != http.MethodGet || got.query != "account_id=acc_1&url=https%3A%2F%2Fexample.com%2Fhook" || got.body != "" {
		t.Errorf("GET sent %+v", got)
	}

	if _, err := c.Post(ctx, "webhooks", params); err != nil {
		t.Fatal(err)
	}
	if got.method != http.MethodPost || got.query != "" || got.body != "account_id=acc_1&url=https%3A%2F%2Fexample.com%2Fhook" {
		t.Errorf("POST sent %+v", got)
	}
	if got.contentType != "application/x-www-form-urlencoded" {
		t.Errorf("POST Content-Type = %q", got.contentType)
	}

	if _, err := c.Put(ctx, "webhooks", params); err != nil {
		t.Fatal(err)
	}
	if got.method != http.MethodPut || got.body != "account_id=acc_1&url=https%3A%2F%2Fexample.com%2Fhook" {
		t.Errorf("PUT sent %+v", got)
	}

	if _, err := c.PutJSON(ctx, "transaction-receipts", map[string]string{"external_id": "x"}); err != nil {
		t.Fatal(err)
	}
	if got.method != http.MethodPut || got.body != `{"external_id":"x"}` || got.contentType != "application/json" {
		t.Errorf("PutJSON sent %+v", got)
	}
}

func TestClient_NotAuthenticated(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		source oauth2.TokenSource
	}{
		{name: "nil source", source: nil},
		{name: "source without token", source: failingSource{err: ErrNotAuthenticated}},
		{name: "empty access token", source: oauth2.StaticTokenSource(&oauth2.Token{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(srv.URL, tt.source)
			_, err := c.Get(context.Background(), "accounts", nil)
			if !errors.Is(err, ErrNotAuthenticated) {
				t.Errorf("Get() error = %v, want ErrNotAuthenticated", err)
			}
		})
	}

	if calls != 0 {
		t.Errorf("server received %d requests, want 0", calls)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, staticSource("t1"))
	_, err := c.Get(context.Background(), "accounts", nil)
	if !IsTransportError(err) {
		t.Fatalf("Get() error = %v, want TransportError", err)
	}
	var te *TransportError
	if errors.As(err, &te) && te.Op != "GET accounts" {
		t.Errorf("TransportError.Op = %q, want %q", te.Op, "GET accounts")
	}
}

func TestClient_GetIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transactions":[{"id":"tx_1","amount":-350}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticSource("t1"))
	params := Params{}.Add("account_id", "acc_1")
	first, err := c.Get(context.Background(), "transactions", params)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Get(context.Background(), "transactions", params)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Payload, second.Payload) {
		t.Errorf("payloads differ: %#v vs %#v", first.Payload, second.Payload)
	}
}

func TestResponse_Decode(t *testing.T) {
	resp := &Response{Body: []byte(`{"webhook":{"id":"wh_1"}}`)}
	var out struct {
		Webhook struct {
			ID string `json:"id"`
		} `json:"webhook"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Webhook.ID != "wh_1" {
		t.Errorf("Webhook.ID = %q, want wh_1", out.Webhook.ID)
	}

	bad := &Response{Body: []byte("not json")}
	if err := bad.Decode(&out); err == nil {
		t.Error("Decode() of raw text should fail")
	}
}
