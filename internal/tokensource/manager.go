package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"zohoq/internal/tokenstore"
)

// DefaultSafetyMargin is the lead time before expiry at which the access
// token is proactively refreshed.
const DefaultSafetyMargin = 5 * time.Minute

// maxErrorBody bounds how much of a provider error body is kept for
// diagnostics.
const maxErrorBody = 4 << 10

// Credentials is the immutable OAuth client configuration. Loaded once at
// startup and never mutated by the lifecycle.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (c Credentials) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.RedirectURL == "" {
		missing = append(missing, "redirect_url")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Reason: "missing " + strings.Join(missing, ", ")}
	}
	return nil
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets the HTTP client used for token endpoint requests.
// Defaults to a client with a 30 second timeout.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = client }
}

// WithEndpoint overrides the OAuth2 endpoints (non-US data centers, tests).
func WithEndpoint(endpoint oauth2.Endpoint) ManagerOption {
	return func(m *Manager) { m.endpoint = endpoint }
}

// WithSafetyMargin overrides the refresh lead time.
func WithSafetyMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) { m.margin = margin }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager owns the token lifecycle: consent URL construction, code
// exchange, expiry-aware refresh, and persistence through a Store.
//
// All state mutations happen under a single mutex, so concurrent Token
// calls that both observe an expiring token still produce exactly one
// refresh per expiry.
type Manager struct {
	creds      Credentials
	store      tokenstore.Store
	httpClient *http.Client
	endpoint   oauth2.Endpoint
	margin     time.Duration
	now        func() time.Time

	mu     sync.Mutex
	state  *State
	loaded bool
}

// NewManager creates a Manager. No I/O is performed; stored state is read
// lazily on the first operation that needs it.
func NewManager(creds Credentials, store tokenstore.Store, opts ...ManagerOption) (*Manager, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &ConfigurationError{Reason: "missing token store"}
	}

	m := &Manager{
		creds:      creds,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   Endpoint(DefaultAccountsURL),
		margin:     DefaultSafetyMargin,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// oauth2Config builds the x/oauth2 view of the credentials; used only for
// consent URL construction (the token grants need Zoho's error-field quirk
// handled by hand).
func (m *Manager) oauth2Config() *oauth2.Config {
	scopes := m.creds.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return &oauth2.Config{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
		RedirectURL:  m.creds.RedirectURL,
		Scopes:       scopes,
		Endpoint:     m.endpoint,
	}
}

// AuthorizeURL builds the provider consent URL. access_type=offline asks
// for a refresh token; prompt=consent forces Zoho to issue one even when
// the grant was approved before. Pure computation, no I/O.
func (m *Manager) AuthorizeURL(state string) string {
	return m.oauth2Config().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades a one-time authorization code for the initial token
// state and persists it. A rejected code is not retried: codes are
// single-use and expire within minutes, so the caller must restart from
// AuthorizeURL.
func (m *Manager) Exchange(ctx context.Context, code string) (*State, error) {
	if code == "" {
		return nil, &AuthorizationError{Code: "empty_code"}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)
	form.Set("redirect_uri", m.creds.RedirectURL)

	tr, status, body, err := m.postToken(ctx, "exchange", form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 || tr.Error != "" {
		return nil, &AuthorizationError{Status: status, Code: tr.Error, Body: body}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return nil, &MalformedResponseError{Step: "exchange", Detail: "missing access_token or expires_in"}
	}
	if tr.RefreshToken == "" {
		// Consent without access_type=offline; tokens work until expiry but
		// cannot be refreshed.
		slog.WarnContext(ctx, "token exchange returned no refresh token")
	}

	now := m.now()
	next := &State{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		ObtainedAt:   now,
		ClientID:     m.creds.ClientID,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		// A fresh authorization replaces whatever was stored; a corrupt or
		// unreadable old state must not block it.
		slog.DebugContext(ctx, "ignoring unreadable previous token state", "error", err)
		m.loaded = true
	}
	if err := m.commitLocked(ctx, next); err != nil {
		return nil, err
	}
	return m.snapshotLocked(), nil
}

// Token returns an access token valid for at least the safety margin,
// refreshing first when the stored one is expired or about to expire.
// Returns ErrAuthenticationRequired when no state exists yet. A failed
// refresh leaves the stale state untouched.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	if m.state == nil {
		return "", ErrAuthenticationRequired
	}
	if m.state.Fresh(m.now(), m.margin) {
		return m.state.AccessToken, nil
	}

	if _, err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.state.AccessToken, nil
}

// Refresh unconditionally exchanges the stored refresh token for a new
// access token, persists the result, and returns the updated state.
func (m *Manager) Refresh(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}
	if _, err := m.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return m.snapshotLocked(), nil
}

// Current returns a copy of the current token state without any network
// I/O, for inspection. Returns ErrAuthenticationRequired if none exists.
func (m *Manager) Current(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}
	if m.state == nil {
		return nil, ErrAuthenticationRequired
	}
	return m.snapshotLocked(), nil
}

// refreshLocked performs the refresh grant. Callers hold m.mu and have
// already loaded state.
func (m *Manager) refreshLocked(ctx context.Context) (*State, error) {
	if m.state == nil {
		return nil, ErrAuthenticationRequired
	}
	prev := m.state
	if prev.RefreshToken == "" {
		return nil, ErrAuthenticationRequired
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", prev.RefreshToken)
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)

	tr, status, body, err := m.postToken(ctx, "refresh", form)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 || tr.Error != "" {
		return nil, &RefreshError{Status: status, Code: tr.Error, Body: body}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return nil, &MalformedResponseError{Step: "refresh", Detail: "missing access_token or expires_in"}
	}

	// Zoho omits refresh_token on refresh responses; the previous one stays
	// valid and must be retained.
	refreshToken := tr.RefreshToken
	if refreshToken == "" {
		refreshToken = prev.RefreshToken
	}

	now := m.now()
	next := &State{
		AccessToken:  tr.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		ObtainedAt:   now,
		ClientID:     m.creds.ClientID,
	}

	if err := m.commitLocked(ctx, next); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "access token refreshed", "expires_at", next.ExpiresAt)
	return m.state, nil
}

// commitLocked persists next and only then replaces the in-memory state,
// so a crash can never leave memory ahead of storage.
func (m *Manager) commitLocked(ctx context.Context, next *State) error {
	doc, err := next.Encode()
	if err != nil {
		return err
	}
	if err := m.store.Write(ctx, doc); err != nil {
		return fmt.Errorf("persisting token state: %w", err)
	}
	m.state = next
	return nil
}

// loadLocked reads stored state once. Absent state is not an error here;
// callers decide whether a missing token matters.
func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}

	doc, err := m.store.Read(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		m.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token state: %w", err)
	}

	state, err := DecodeState(doc)
	if err != nil {
		return err
	}
	m.state = state
	m.loaded = true
	return nil
}

func (m *Manager) snapshotLocked() *State {
	copied := *m.state
	return &copied
}

// tokenResponse is the token endpoint's JSON body for both grants.
// Zoho reports some rejections as HTTP 200 with only the error field set.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	APIDomain    string `json:"api_domain"`
	Error        string `json:"error"`
}

// postToken performs a form-encoded POST against the token endpoint and
// returns the parsed body alongside the raw status and (truncated) text
// for error reporting.
func (m *Manager) postToken(ctx context.Context, step string, form url.Values) (*tokenResponse, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, "", fmt.Errorf("building %s request: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", &NetworkError{Step: step, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, 0, "", &NetworkError{Step: step, Err: err}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Non-JSON error bodies happen (HTML gateway errors); surface the
			// status rather than a parse error.
			tr = tokenResponse{}
		} else {
			return nil, resp.StatusCode, string(body), &MalformedResponseError{Step: step, Detail: "body is not valid JSON"}
		}
	}
	return &tr, resp.StatusCode, string(body), nil
}
