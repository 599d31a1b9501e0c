package tokensource

import (
	"context"

	"golang.org/x/oauth2"
)

// managerTokenSource adapts Manager to oauth2.TokenSource so API clients
// can mount it behind an oauth2.Transport.
type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

// Compile-time check that managerTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*managerTokenSource)(nil)

// TokenSource returns an oauth2.TokenSource backed by this Manager.
// oauth2.TokenSource.Token has no context parameter, so the given context
// is captured at construction time (same convention the oauth2 package
// itself documents for its HTTP client injection).
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

// Token returns a valid token, refreshing through the Manager as needed.
// The token type carries Zoho's Authorization scheme so oauth2.Transport
// emits "Authorization: Zoho-oauthtoken <token>".
func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.manager.Token(s.ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.manager.Current(s.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: access,
		TokenType:   TokenType,
		Expiry:      state.ExpiresAt,
	}, nil
}
