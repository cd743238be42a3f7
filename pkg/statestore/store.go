package statestore

import (
	"context"
	"errors"
	"strings"
)

const statePrefix = "state_"

var (
	// ErrNotFound is returned when a key has no stored value
	ErrNotFound = errors.New("state not found")
)

// Store is the persistence boundary for session state. Values are opaque
// bytes; callers own serialization. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all stored keys.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// StateKey returns the storage key for a session's state document.
func StateKey(sessionID string) string {
	return statePrefix + sessionID
}

// SessionID extracts the session id from a state key. It reports false
// for keys that are not state keys.
func SessionID(key string) (string, bool) {
	if !strings.HasPrefix(key, statePrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, statePrefix), true
}
