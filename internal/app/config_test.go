package app

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a minimal config that passes validation after
// defaults are applied.
func validConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
		},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	if cfg.LogFormat != DefaultConfigLogFormat {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, DefaultConfigLogFormat)
	}
	if cfg.Auth.AccountsURL != DefaultConfigAccountsURL {
		t.Errorf("AccountsURL = %q, want %q", cfg.Auth.AccountsURL, DefaultConfigAccountsURL)
	}
	if cfg.Auth.RedirectURL != DefaultConfigRedirectURL {
		t.Errorf("RedirectURL = %q, want %q", cfg.Auth.RedirectURL, DefaultConfigRedirectURL)
	}
	if cfg.Auth.Storage != TokenStorageTypeFile {
		t.Errorf("Storage = %q, want file", cfg.Auth.Storage)
	}
	if cfg.Auth.File == "" {
		t.Error("Auth.File not auto-detected for file storage")
	}
	if cfg.Analytics.BaseURL != DefaultConfigAnalyticsBaseURL {
		t.Errorf("Analytics.BaseURL = %q, want %q", cfg.Analytics.BaseURL, DefaultConfigAnalyticsBaseURL)
	}
	if cfg.Analytics.QueryTimeout != DefaultConfigQueryTimeout {
		t.Errorf("QueryTimeout = %v, want %v", cfg.Analytics.QueryTimeout, DefaultConfigQueryTimeout)
	}
	if cfg.Analytics.PollInterval != DefaultConfigQueryPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.Analytics.PollInterval, DefaultConfigQueryPollInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid after defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.Auth.ClientID = "" },
			wantErr: "ClientID",
		},
		{
			name:    "missing client secret",
			mutate:  func(c *Config) { c.Auth.ClientSecret = "" },
			wantErr: "ClientSecret",
		},
		{
			name:    "bad accounts url",
			mutate:  func(c *Config) { c.Auth.AccountsURL = "not-a-url" },
			wantErr: "AccountsURL",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Auth.Storage = "vault" },
			wantErr: "Storage",
		},
		{
			name: "env storage without env key",
			mutate: func(c *Config) {
				c.Auth.Storage = TokenStorageTypeEnv
				c.Auth.EnvKey = ""
			},
			wantErr: "env_key",
		},
		{
			name: "poll interval exceeds timeout",
			mutate: func(c *Config) {
				c.Analytics.QueryTimeout = time.Second
				c.Analytics.PollInterval = 2 * time.Second
			},
			wantErr: "poll_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if err := cfg.ApplyDefaults(); err != nil {
				t.Fatalf("ApplyDefaults: %v", err)
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewTokenStoreFile(t *testing.T) {
	auth := AuthConfig{
		Storage: TokenStorageTypeFile,
		File:    filepath.Join(t.TempDir(), "token_state.json"),
	}

	store, err := auth.NewTokenStore()
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	if store == nil {
		t.Fatal("NewTokenStore returned nil store")
	}
}

func TestNewTokenStoreEnv(t *testing.T) {
	t.Setenv("ZOHOQ_TEST_TOKEN_STATE", `{"access_token":"A1"}`)

	auth := AuthConfig{
		Storage: TokenStorageTypeEnv,
		EnvKey:  "ZOHOQ_TEST_TOKEN_STATE",
	}

	if _, err := auth.NewTokenStore(); err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
}

func TestNewTokenStoreUnknown(t *testing.T) {
	auth := AuthConfig{Storage: "vault"}
	if _, err := auth.NewTokenStore(); err == nil {
		t.Error("NewTokenStore accepted unknown storage type")
	}
}
