package tokensource

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the persisted outcome of the last successful token grant.
// Mutated in place by every refresh; the client secret is deliberately not
// part of it (config-time secret, never written next to tokens).
type State struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	ObtainedAt   time.Time `json:"obtained_at"`
	ClientID     string    `json:"client_id"`
}

// Fresh reports whether the access token is still valid at now with at
// least margin to spare.
func (s *State) Fresh(now time.Time, margin time.Duration) bool {
	return now.Before(s.ExpiresAt.Add(-margin))
}

// Encode serializes the state to its storage document form.
func (s *State) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding token state: %w", err)
	}
	return string(data), nil
}

// DecodeState parses a storage document back into a State.
func DecodeState(doc string) (*State, error) {
	var s State
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return nil, fmt.Errorf("decoding token state: %w", err)
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil, fmt.Errorf("decoding token state: no tokens present")
	}
	return &s, nil
}
