package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the client registration and endpoint configuration
type Config struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`

	// Hostnames, optionally with a port. Requests always use https.
	OAuthHost string `yaml:"oauth_hostname" validate:"required"`
	APIHost   string `yaml:"api_hostname" validate:"required"`

	ResponseType     string `yaml:"response_type" validate:"required"`
	AuthGrantType    string `yaml:"auth_grant_type" validate:"required"`
	RefreshGrantType string `yaml:"refresh_grant_type" validate:"required"`
	RedirectURI      string `yaml:"redirect_uri" validate:"required,url"`

	// Confidential clients keep the secret away from the end user and may
	// refresh access tokens.
	Confidential bool `yaml:"confidential"`

	Scopes          []string            `yaml:"scopes,omitempty"`
	ExtraAuthParams map[string][]string `yaml:"extra_auth_params,omitempty"`

	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	CallbackTimeout time.Duration `yaml:"callback_timeout"`
}

// DefaultConfig returns the settings that rarely need changing. Client
// credentials must still be supplied.
func DefaultConfig() Config {
	return Config{
		OAuthHost:        "auth.monzo.com",
		APIHost:          "api.monzo.com",
		ResponseType:     "code",
		AuthGrantType:    "authorization_code",
		RefreshGrantType: "refresh_token",
		RedirectURI:      "http://127.0.0.1:21234/",
		Confidential:     true,
		HTTPTimeout:      30 * time.Second,
		CallbackTimeout:  5 * time.Minute,
	}
}

// Validate checks that every required setting is present
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}

// AuthURL is the authorization endpoint the operator visits
func (c Config) AuthURL() string {
	return fmt.Sprintf("https://%s/", c.OAuthHost)
}

// APIBaseURL is the root of the REST API
func (c Config) APIBaseURL() string {
	return fmt.Sprintf("https://%s", c.APIHost)
}

// TokenURL is the token endpoint used for code exchange and refresh
func (c Config) TokenURL() string {
	return c.APIBaseURL() + "/oauth2/token"
}

// GenerateState generates a cryptographically secure random state parameter
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
