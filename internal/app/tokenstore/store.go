/*
Package tokenstore provides the durable key-value storage the session layer persists its token in.

Every implementation completes a write before returning, so a process restart right after a
successful Set or Remove observes the new state.
*/
package tokenstore

import (
	"context"
	"errors"
	"fmt"
)

// TokenKey is the key the session token is stored under.
const TokenKey = "token"

// ErrEmptyKey is returned for operations on an empty key.
var ErrEmptyKey = errors.New("tokenstore: empty key")

// Store is durable local key-value storage.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Backend names a Store implementation selectable from configuration.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendFile, BackendRedis, BackendPostgres, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("tokenstore: unknown backend %q", s)
	}
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
