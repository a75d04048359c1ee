package oauth

import (
	"context"
	"net/http"
	"net/url"

	"receipts/pkg/api"
	"receipts/pkg/metrics"
)

// ExchangeAuthCode redeems the captured authorization code for an access
// token. A code is redeemed at most once: after the token endpoint has
// answered, a further exchange needs a new callback.
func (c *Client) ExchangeAuthCode(ctx context.Context) error {
	if c.authCode == "" {
		return ErrNoAuthorizationCode
	}

	form := url.Values{
		"grant_type":    {c.cfg.AuthGrantType},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"redirect_uri":  {c.cfg.RedirectURI},
		"code":          {c.authCode},
	}

	tr, body, err := c.postToken(ctx, form, ErrTokenExchangeFailed)
	if api.IsTransportError(err) {
		// The server never saw the code; it may be tried again
		metrics.RecordAuthFailure("transport")
		c.resetAfterFailure()
		return err
	}
	c.authCode = ""
	if err != nil {
		metrics.RecordAuthFailure("token_exchange")
		c.resetAfterFailure()
		return err
	}

	if tr.AccessToken == "" {
		metrics.RecordAuthFailure("missing_access_token")
		c.resetAfterFailure()
		return &TokenError{
			Kind:       ErrTokenExchangeFailed,
			StatusCode: http.StatusOK,
			Body:       string(body),
			Reason:     "response missing access_token",
		}
	}
	if tr.UserID == "" {
		metrics.RecordAuthFailure("missing_user_id")
		c.resetAfterFailure()
		return ErrMissingUserID
	}

	if tr.RefreshToken == "" {
		if c.confidential {
			c.logger.Warn("token exchange returned no refresh token, treating client as non-confidential",
				"client_id", c.cfg.ClientID,
				"configured_confidential", c.cfg.Confidential)
			metrics.RecordConfidentialDowngrade()
		}
		c.confidential = false
	}

	c.token = tr.token()
	c.userID = tr.UserID
	c.state = StateAuthenticated

	metrics.RecordAuthSuccess()
	c.logger.Info("authorization code exchanged",
		"user_id", c.userID,
		"confidential", c.confidential,
		"expires_at", c.token.Expiry)

	return nil
}
