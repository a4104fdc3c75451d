// Package kvstore abstracts the external key-value cache used for path
// combinations and pool metadata. Values are opaque strings; callers are
// responsible for serialization that preserves big-integer precision.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned on a cache miss.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the key-value cache port.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Write stores value under key. A non-positive ttl stores without expiry.
	Write(ctx context.Context, key, value string, ttl time.Duration) error

	// ScanByPattern returns all keys matching a glob-style pattern.
	ScanByPattern(ctx context.Context, pattern string) ([]string, error)

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the underlying connection.
	Close() error
}
