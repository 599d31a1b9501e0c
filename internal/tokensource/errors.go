package tokensource

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired is returned when no token state exists yet.
// The caller must run the authorization flow before tokens can be issued.
var ErrAuthenticationRequired = errors.New("no token state: run the authorization flow first")

// ConfigurationError reports incomplete or invalid credentials. Fatal; the
// process cannot proceed without fixing its configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid credentials configuration: " + e.Reason
}

// AuthorizationError reports a rejected authorization-code exchange. Codes
// are single-use and expire within minutes server-side, so the flow must be
// restarted from the consent URL rather than retried.
type AuthorizationError struct {
	Status int    // HTTP status from the token endpoint
	Code   string // provider error code, e.g. "invalid_code"
	Body   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization code rejected (status %d, %s)", e.Status, e.Code)
}

// RefreshError reports a rejected refresh grant (revoked or expired refresh
// token). The previously persisted state is left untouched so the caller
// can inspect it and decide to re-authorize.
type RefreshError struct {
	Status int
	Code   string
	Body   string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh rejected (status %d, %s)", e.Status, e.Code)
}

// MalformedResponseError reports a provider response that parsed as JSON
// but lacks a field the protocol requires.
type MalformedResponseError struct {
	Step   string // "exchange" or "refresh"
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Step, e.Detail)
}

// NetworkError reports a transport-level failure (connection reset, DNS,
// TLS) talking to the accounts server. Not retried here; whole-operation
// retry policy belongs to the caller.
type NetworkError struct {
	Step string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Step, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
