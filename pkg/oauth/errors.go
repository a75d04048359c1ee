package oauth

import (
	"errors"
	"fmt"

	"receipts/pkg/api"
)

var (
	ErrMalformedCallback         = errors.New("cannot parse callback URL")
	ErrMissingCallbackParameter  = errors.New("missing callback parameter")
	ErrStateMismatch             = errors.New("invalid state in callback URL, did you use the most recent login link?")
	ErrNoAuthorizationCode       = errors.New("no authorization code, complete the authorization flow first")
	ErrTokenExchangeFailed       = errors.New("token exchange failed")
	ErrTokenRefreshFailed        = errors.New("token refresh failed")
	ErrMissingUserID             = errors.New("token response missing user_id")
	ErrNotConfidential           = errors.New("client is not confidential, refresh tokens are unavailable")
	ErrIncompleteRefreshResponse = errors.New("refresh response missing access_token or refresh_token")
	ErrUnauthenticatedOrRevoked  = errors.New("access token rejected: unauthenticated or revoked")

	// ErrNotAuthenticated is shared with the request wrapper so callers can
	// test for it regardless of which layer reported it.
	ErrNotAuthenticated = api.ErrNotAuthenticated
)

// TokenError reports a token endpoint response that could not be used.
// Kind is ErrTokenExchangeFailed or ErrTokenRefreshFailed.
type TokenError struct {
	Kind       error
	StatusCode int
	Body       string
	Reason     string
}

func (e *TokenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s (status %d): %s", e.Kind, e.Reason, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%v: bad status code returned: %d (%s)", e.Kind, e.StatusCode, e.Body)
}

func (e *TokenError) Unwrap() error {
	return e.Kind
}

// ConfigurationError is returned by NewClient when the configuration is
// incomplete or invalid.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
