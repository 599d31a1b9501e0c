package tokensource

import (
	"strings"

	"golang.org/x/oauth2"
)

// DefaultAccountsURL is the Zoho accounts server for the US data center.
// Other data centers (eu, in, com.au, jp) use the same path layout under a
// different host.
const DefaultAccountsURL = "https://accounts.zoho.com"

// TokenType is Zoho's non-standard Authorization header scheme.
const TokenType = "Zoho-oauthtoken"

// DefaultScopes covers Analytics bulk export, which is all this tool needs.
var DefaultScopes = []string{
	"ZohoAnalytics.data.read",
	"ZohoAnalytics.metadata.read",
}

// Endpoint returns the OAuth2 endpoints under the given accounts server.
func Endpoint(accountsURL string) oauth2.Endpoint {
	base := strings.TrimSuffix(accountsURL, "/")
	return oauth2.Endpoint{
		AuthURL:   base + "/oauth/v2/auth",
		TokenURL:  base + "/oauth/v2/token",
		AuthStyle: oauth2.AuthStyleInParams, // client creds as form params
	}
}
