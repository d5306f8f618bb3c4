// Package store persists small string values under fixed keys.
package store

import (
	"fmt"
	"strings"
)

// Keys used by the application
const (
	KeyTheme    = "prompt-architect-theme"
	KeyLanguage = "prompt-architect-language"
	KeyHistory  = "prompt-architect-history"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a key-value store. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value stored under key and whether it exists
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error

	Close() error
}

// Open opens the store for backend at path
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (valid: %s, %s)", backend, BackendFile, BackendSQLite)
	}
}
