// Package app wires configuration, token lifecycle, and the query runner
// into the workflows the CLI exposes: authorize, refresh, query.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zohoq/internal/analytics"
	"zohoq/internal/callback"
	"zohoq/internal/tokensource"
)

// errFlowDone unwinds the authorization errgroup once the exchange has run.
var errFlowDone = errors.New("authorization flow finished")

// App orchestrates the token lifecycle manager and the query runner.
type App struct {
	cfg     *Config
	manager *tokensource.Manager
}

// New creates a new App instance. No network I/O is performed.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	manager, err := tokensource.NewManager(
		tokensource.Credentials{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			RedirectURL:  cfg.Auth.RedirectURL,
			Scopes:       cfg.Auth.Scopes,
		},
		store,
		tokensource.WithEndpoint(tokensource.Endpoint(cfg.Auth.AccountsURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	return &App{
		cfg:     cfg,
		manager: manager,
	}, nil
}

// AuthorizeInteractive runs the full consent flow: start the loopback
// redirect listener, print the consent URL, wait for the redirect, and
// exchange the code. Blocks until the flow completes or ctx ends.
func (a *App) AuthorizeInteractive(ctx context.Context, out io.Writer) error {
	redirect, err := url.Parse(a.cfg.Auth.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	state := uuid.NewString()
	listener, err := callback.New(redirect.Path, state)
	if err != nil {
		return fmt.Errorf("failed to create callback listener: %w", err)
	}

	errCh, err := listener.Start(ctx, a.cfg.Auth.Listen)
	if err != nil {
		return fmt.Errorf("callback listener startup failed: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := listener.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "callback listener shutdown failed", "error", err)
		}
	}()

	fmt.Fprintf(out, "Open the following URL in your browser to authorize access:\n\n  %s\n\n", a.manager.AuthorizeURL(state))
	slog.InfoContext(ctx, "waiting for authorization redirect", "listen", a.cfg.Auth.Listen)

	g, gCtx := errgroup.WithContext(ctx)

	// Listener runtime errors abort the flow; errgroup cancels on first error.
	g.Go(func() error {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("callback listener: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	var exchangeErr error
	g.Go(func() error {
		code, err := listener.Wait(gCtx)
		if err != nil {
			return err
		}
		_, exchangeErr = a.manager.Exchange(gCtx, code)
		return errFlowDone
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errFlowDone) {
		return err
	}
	if exchangeErr != nil {
		return exchangeErr
	}

	slog.InfoContext(ctx, "authorization complete, token state persisted")
	return nil
}

// ConsentURL returns a consent URL for the manual flow. A state parameter
// is still generated for the provider's CSRF check even though no local
// listener validates it on the way back.
func (a *App) ConsentURL() string {
	return a.manager.AuthorizeURL(uuid.NewString())
}

// CompleteAuthorization exchanges a manually obtained authorization code.
func (a *App) CompleteAuthorization(ctx context.Context, code string) error {
	state, err := a.manager.Exchange(ctx, code)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "authorization complete, token state persisted", "expires_at", state.ExpiresAt)
	return nil
}

// Refresh forces a token refresh regardless of remaining lifetime.
func (a *App) Refresh(ctx context.Context) error {
	state, err := a.manager.Refresh(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "token refreshed", "expires_at", state.ExpiresAt)
	return nil
}

// Query runs sql against the configured workspace and writes the result
// rows to out, one JSON document per line.
func (a *App) Query(ctx context.Context, sql string, out io.Writer) error {
	if a.cfg.Analytics.WorkspaceID == "" {
		return errors.New("analytics.workspace_id is required to run queries")
	}

	var opts []analytics.ClientOption
	if a.cfg.Analytics.OrgID != "" {
		opts = append(opts, analytics.WithOrgID(a.cfg.Analytics.OrgID))
	}

	client, err := analytics.NewClient(
		a.cfg.Analytics.BaseURL,
		a.cfg.Analytics.WorkspaceID,
		a.manager.TokenSource(ctx),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create analytics client: %w", err)
	}

	started := time.Now()
	rows, err := client.RunQuery(ctx, sql, analytics.Options{
		Timeout:      a.cfg.Analytics.QueryTimeout,
		PollInterval: a.cfg.Analytics.PollInterval,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("writing result row: %w", err)
		}
	}

	slog.InfoContext(ctx, "query complete", "rows", len(rows), "duration", time.Since(started).Round(time.Millisecond))
	return nil
}
