// Package callback runs a short-lived loopback HTTP listener that captures
// the authorization code from the OAuth redirect, so the consent flow
// completes without manual copy/paste.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Result is the outcome of one captured redirect.
type Result struct {
	Code string
	Err  error
}

// Listener serves the OAuth redirect endpoint on a loopback address and
// hands the captured authorization code to the caller. One-shot: the first
// matching redirect wins, later hits get a conflict response.
type Listener struct {
	mux    *http.ServeMux
	server *http.Server

	state    string
	resultCh chan Result
	once     sync.Once
}

// Compile-time check that Listener implements http.Handler
var _ http.Handler = (*Listener)(nil)

// New creates a Listener expecting the given redirect path and state
// parameter. The state must match the value embedded in the consent URL,
// otherwise the redirect is rejected.
func New(path, state string) (*Listener, error) {
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("redirect path must start with /")
	}
	if state == "" {
		return nil, fmt.Errorf("state cannot be empty")
	}

	l := &Listener{
		state:    state,
		resultCh: make(chan Result, 1),
	}

	logger := slog.Default()

	mux := http.NewServeMux()
	mux.Handle("GET "+path, applyMiddlewares(http.HandlerFunc(l.handleRedirect),
		Logging(logger),
		Recovery,
	))
	l.mux = mux

	return l, nil
}

// ServeHTTP implements http.Handler
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mux.ServeHTTP(w, r)
}

// handleRedirect validates the redirect and delivers the code exactly once.
func (l *Listener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		l.deliver(w, r, Result{Err: fmt.Errorf("consent denied: %s", errCode)})
		return
	}
	if q.Get("state") != l.state {
		writeJSONError(r.Context(), w, "state mismatch", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSONError(r.Context(), w, "missing code parameter", http.StatusBadRequest)
		return
	}

	l.deliver(w, r, Result{Code: code})
}

func (l *Listener) deliver(w http.ResponseWriter, r *http.Request, res Result) {
	delivered := false
	l.once.Do(func() {
		l.resultCh <- res
		delivered = true
	})
	if !delivered {
		writeJSONError(r.Context(), w, "authorization already completed", http.StatusConflict)
		return
	}

	if res.Err != nil {
		writeJSONError(r.Context(), w, res.Err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Authorization received. You can close this window.\n"))
}

// Wait blocks until a redirect is captured or the context ends.
func (l *Listener) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-l.resultCh:
		return res.Code, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately;
// runtime errors go to the channel. The caller must call Shutdown.
func (l *Listener) Start(ctx context.Context, address string) (<-chan error, error) {
	// Listener created synchronously so a port-in-use error surfaces now.
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	l.server = &http.Server{
		Handler:      l,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := l.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.server == nil {
		return nil
	}

	if err := l.server.Shutdown(ctx); err != nil {
		_ = l.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
