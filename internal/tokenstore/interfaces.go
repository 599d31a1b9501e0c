package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the backend holds no state yet.
// Distinct from transport/permission errors: a fresh install reads nothing
// and that is not a failure until a token is actually demanded.
var ErrNotFound = errors.New("tokenstore: no stored state")

// Store reads and writes the serialized token state.
//
// The OAuth lifecycle requires writable storage: state is rewritten after
// every successful exchange or refresh.
type Store interface {
	// Read returns the stored state document. Returns ErrNotFound if the
	// backend holds nothing.
	Read(ctx context.Context) (string, error)

	// Write persists the state document, replacing any previous value.
	// Returns an error if the backend is read-only or the write fails.
	Write(ctx context.Context, state string) error
}
