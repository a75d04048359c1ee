package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receipts/pkg/api"
	"receipts/pkg/metrics"

	"golang.org/x/oauth2"
)

// tokenResponse is the token endpoint's JSON body
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	ClientID     string `json:"client_id"`
}

// token converts the response into an oauth2.Token carrying user_id as an extra
func (r *tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]any{
		"user_id": r.UserID,
	})
}

// postToken sends one form POST to the token endpoint. kind labels the
// TokenError returned for a non-200 status or an unparsable body. Transport
// failures are returned as *api.TransportError.
func (c *Client) postToken(ctx context.Context, form url.Values, kind error) (*tokenResponse, []byte, error) {
	grantType := form.Get("grant_type")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.TokenRequestDuration.WithLabelValues(grantType).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, nil, &api.TransportError{Op: "POST oauth2/token", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &api.TransportError{Op: "POST oauth2/token", Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, body, &TokenError{Kind: kind, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, body, &TokenError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Reason:     "response is not valid JSON",
		}
	}

	return &tr, body, nil
}
