// Package cache provides the query-result cache used to memoize repository
// index lookups between runs.
//
// The cache is a pure memoization layer: clearing it never changes the outcome
// of a reconciliation, only how long it takes. Entries carry an expiration
// timestamp and are dropped after a fixed TTL.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long query results stay valid (24 hours).
const DefaultTTL = 24 * time.Hour

// Cache is the storage backend for memoized query results.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of zero means the entry
	// never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry regardless of expiry and reports how many
	// were removed.
	Clear(ctx context.Context) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}
