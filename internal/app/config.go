package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"zohoq/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the storage backends supported for token state.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigAuthStorage       = TokenStorageTypeFile
	DefaultConfigAccountsURL       = "https://accounts.zoho.com"
	DefaultConfigRedirectURL       = "http://127.0.0.1:8765/oauth/callback"
	DefaultConfigCallbackListen    = "127.0.0.1:8765"
	DefaultConfigAnalyticsBaseURL  = "https://analyticsapi.zoho.com/restapi/v2"
	DefaultConfigQueryTimeout      = 5 * time.Minute
	DefaultConfigQueryPollInterval = 5 * time.Second
)

// AuthConfig describes the OAuth client and where token state lives.
// The client secret is config-only and never written to the token store.
type AuthConfig struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	AccountsURL  string   `json:"accounts_url" validate:"required,url"`
	RedirectURL  string   `json:"redirect_url" validate:"required,url"`
	Scopes       []string `json:"scopes,omitempty"`

	// Listen is the loopback address for the redirect listener; must agree
	// with the host/port registered in RedirectURL.
	Listen string `json:"listen"`

	// Storage configuration - where token state is persisted
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to state file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewTokenStore creates a token state store from the auth configuration.
func (a *AuthConfig) NewTokenStore() (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvKey)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore("zohoq-token-state", a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// AnalyticsConfig holds the bulk export API configuration.
type AnalyticsConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// WorkspaceID is only demanded by the query workflow, not at load time;
	// the authorize/refresh commands run without it.
	WorkspaceID string `json:"workspace_id,omitempty"`
	// OrgID is required by multi-org accounts (ZANALYTICS-ORGID header).
	OrgID string `json:"org_id,omitempty"`

	// QueryTimeout bounds the submit/poll phase of one query.
	QueryTimeout time.Duration `json:"query_timeout"`
	// PollInterval is the sleep between job status checks.
	PollInterval time.Duration `json:"poll_interval"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level      `json:"log_level"`
	LogFormat LogFormat       `json:"log_format" validate:"oneof=text json"`
	Auth      AuthConfig      `json:"auth"`
	Analytics AnalyticsConfig `json:"analytics"`
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Auth.AccountsURL == "" {
		c.Auth.AccountsURL = DefaultConfigAccountsURL
	}
	if c.Auth.RedirectURL == "" {
		c.Auth.RedirectURL = DefaultConfigRedirectURL
	}
	if c.Auth.Listen == "" {
		c.Auth.Listen = DefaultConfigCallbackListen
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Analytics.BaseURL == "" {
		c.Analytics.BaseURL = DefaultConfigAnalyticsBaseURL
	}
	if c.Analytics.QueryTimeout == 0 {
		c.Analytics.QueryTimeout = DefaultConfigQueryTimeout
	}
	if c.Analytics.PollInterval == 0 {
		c.Analytics.PollInterval = DefaultConfigQueryPollInterval
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "zohoq", "token_state.json")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags plus the
// cross-field constraints the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// The lifecycle rewrites state after every refresh; env storage cannot
	// persist that, so it only suits one-shot runs with a fresh state doc.
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	if c.Analytics.PollInterval > c.Analytics.QueryTimeout {
		return errors.New("analytics.poll_interval must not exceed analytics.query_timeout")
	}

	return nil
}
