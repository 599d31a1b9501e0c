// Package tokensource implements the Zoho OAuth2 token lifecycle: building
// the consent URL, exchanging the one-time authorization code, refreshing
// the access token ahead of expiry, and persisting state through a
// tokenstore.Store.
//
// Zoho's OAuth2 implementation has two quirks that require handling beyond
// the standard flow:
//   - client credentials are sent as form parameters, not basic auth
//   - rejections are sometimes reported as HTTP 200 with an "error" field
//     in the JSON body instead of a 4xx status
//
// # Usage
//
//	mgr, err := tokensource.NewManager(creds, store)
//	// mgr.Token(ctx) returns a valid access token, refreshing as needed.
//	// mgr.TokenSource(ctx) adapts the manager to oauth2.TokenSource so it
//	// can back an oauth2.Transport.
package tokensource
