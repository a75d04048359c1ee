// Package config loads the OAuth client configuration from a YAML file,
// dotenv files and MONZO_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"receipts/pkg/oauth"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file settings
const (
	EnvClientID         = "MONZO_CLIENT_ID"
	EnvClientSecret     = "MONZO_CLIENT_SECRET"
	EnvOAuthHost        = "MONZO_OAUTH_HOSTNAME"
	EnvAPIHost          = "MONZO_API_HOSTNAME"
	EnvResponseType     = "MONZO_RESPONSE_TYPE"
	EnvAuthGrantType    = "MONZO_AUTH_GRANT_TYPE"
	EnvRefreshGrantType = "MONZO_REFRESH_GRANT_TYPE"
	EnvRedirectURI      = "MONZO_OAUTH_REDIRECT_URI"
	EnvConfidential     = "MONZO_CLIENT_IS_CONFIDENTIAL"
)

// DefaultPath returns $HOME/.config/receipts/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "receipts", "config.yaml")
}

// Load builds an oauth.Config starting from oauth.DefaultConfig. An empty
// path means DefaultPath, which may be absent; an explicit path must exist.
// The env files are loaded into the process environment before the
// overrides are applied. The result is validated.
func Load(path string, envFiles ...string) (oauth.Config, error) {
	cfg := oauth.DefaultConfig()

	if err := LoadEnv(envFiles...); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}

	optional := path == ""
	if optional {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if !optional || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads dotenv files, expanding a leading ~ to the home directory.
// Variables already set in the environment win.
func LoadEnv(files ...string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if strings.HasPrefix(file, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			file = strings.Replace(file, "~", home, 1)
		}
		if err := godotenv.Load(file); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(path string, cfg *oauth.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *oauth.Config) {
	cfg.ClientID = getEnv(EnvClientID, cfg.ClientID)
	cfg.ClientSecret = getEnv(EnvClientSecret, cfg.ClientSecret)
	cfg.OAuthHost = getEnv(EnvOAuthHost, cfg.OAuthHost)
	cfg.APIHost = getEnv(EnvAPIHost, cfg.APIHost)
	cfg.ResponseType = getEnv(EnvResponseType, cfg.ResponseType)
	cfg.AuthGrantType = getEnv(EnvAuthGrantType, cfg.AuthGrantType)
	cfg.RefreshGrantType = getEnv(EnvRefreshGrantType, cfg.RefreshGrantType)
	cfg.RedirectURI = getEnv(EnvRedirectURI, cfg.RedirectURI)
	cfg.Confidential = getEnvBool(EnvConfidential, cfg.Confidential)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid bool in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return boolVal
}
