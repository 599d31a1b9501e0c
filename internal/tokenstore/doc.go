// Package tokenstore provides persistent storage for the serialized OAuth
// token state.
//
// Three backends with different security and deployment tradeoffs:
//   - File: local filesystem storage with atomic writes and 0600 permissions
//   - Env: read-only environment variable access (bootstrap/CI use)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Linux Secret Service)
//
// The OAuth flow mutates token state after every refresh, so it requires a
// writable backend (file or keyring). The env backend can only seed state
// that is managed elsewhere.
package tokenstore
