package repoindex

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matzehuels/vendorsync/pkg/cache"
)

// cachedLookup is the persisted form of one query answer. Negative answers
// are cached too: "not packaged" is just as expensive to recompute as
// "packaged". Unknown fields in old entries are ignored on decode.
type cachedLookup struct {
	Found  bool    `json:"found"`
	Record *Record `json:"record,omitempty"`
}

// Cached decorates an Index with a cache. Query failures are never cached;
// only definitive answers (found / not found) are.
type Cached struct {
	inner   Index
	backend cache.Cache
	ttl     time.Duration
	refresh bool
}

// NewCached wraps inner with the given cache backend. When refresh is true
// the cache is bypassed on read but still updated on write.
func NewCached(inner Index, backend cache.Cache, ttl time.Duration, refresh bool) *Cached {
	return &Cached{inner: inner, backend: backend, ttl: ttl, refresh: refresh}
}

// Lookup serves from cache when possible, falling through to the wrapped
// index otherwise.
func (c *Cached) Lookup(ctx context.Context, name string) (*Record, error) {
	key := cacheKey(name)

	if !c.refresh {
		if data, hit, err := c.backend.Get(ctx, key); err == nil && hit {
			var entry cachedLookup
			if err := json.Unmarshal(data, &entry); err == nil {
				if !entry.Found {
					return nil, ErrNotFound
				}
				if entry.Record != nil {
					return entry.Record, nil
				}
			}
			// Corrupt entry - fall through to a fresh query
		}
	}

	rec, err := c.inner.Lookup(ctx, name)
	switch {
	case err == nil:
		c.store(ctx, key, cachedLookup{Found: true, Record: rec})
		return rec, nil
	case errors.Is(err, ErrNotFound):
		c.store(ctx, key, cachedLookup{Found: false})
		return nil, err
	default:
		return nil, err
	}
}

func (c *Cached) store(ctx context.Context, key string, entry cachedLookup) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	// Cache write failures cost latency, not correctness
	_ = c.backend.Set(ctx, key, data, c.ttl)
}

// cacheKey derives the storage key for a crate lookup.
func cacheKey(name string) string {
	return "repoquery:" + cache.Hash([]byte(name))
}

// Ensure Cached implements Index.
var _ Index = (*Cached)(nil)
