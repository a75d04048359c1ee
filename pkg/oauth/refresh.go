package oauth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"receipts/pkg/api"
	"receipts/pkg/metrics"
)

// RefreshAccessToken replaces both tokens using the refresh token. Only
// confidential sessions can refresh; the old tokens are discarded on success
// and kept on failure.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	if !c.confidential {
		metrics.RecordTokenRefreshFailure("not_confidential")
		return ErrNotConfidential
	}
	if c.token == nil || c.token.RefreshToken == "" {
		metrics.RecordTokenRefreshFailure("not_authenticated")
		return ErrNotAuthenticated
	}

	c.state = StateRefreshing
	defer func() { c.state = StateAuthenticated }()

	form := url.Values{
		"grant_type":    {c.cfg.RefreshGrantType},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {c.token.RefreshToken},
	}

	start := time.Now()
	tr, _, err := c.postToken(ctx, form, ErrTokenRefreshFailed)
	if err != nil {
		metrics.RecordTokenRefreshFailure(refreshFailureReason(err))
		c.logger.Warn("token refresh failed", "user_id", c.userID, "error", err)
		return err
	}

	if tr.AccessToken == "" || tr.RefreshToken == "" {
		metrics.RecordTokenRefreshFailure("incomplete_response")
		c.logger.Warn("token refresh response incomplete",
			"user_id", c.userID,
			"has_access_token", tr.AccessToken != "",
			"has_refresh_token", tr.RefreshToken != "")
		return ErrIncompleteRefreshResponse
	}

	if tr.UserID == "" {
		tr.UserID = c.userID
	}
	c.token = tr.token()
	c.userID = tr.UserID

	metrics.RecordTokenRefreshSuccess()
	c.logger.Info("access token refreshed",
		"user_id", c.userID,
		"expires_at", c.token.Expiry,
		"duration", time.Since(start))

	return nil
}

func refreshFailureReason(err error) string {
	switch {
	case api.IsTransportError(err):
		return "transport"
	case errors.Is(err, ErrTokenRefreshFailed):
		return "token_endpoint"
	default:
		return "unknown"
	}
}
