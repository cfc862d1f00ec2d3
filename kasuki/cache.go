package kasuki

import (
	"context"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"sync/atomic"
	"time"
)

// cacheFetchTimeout bounds a shared fetch, which runs detached from the
// context of the caller that started it
var cacheFetchTimeout = 2 * DefaultHTTPTimeout

// RemoteCache memoizes outbound API responses, keyed by a request
// fingerprint (typically the serialized request body, or method+path+body).
//
// Entries are evicted once the cache reaches its capacity, least recently
// used first, or after the configured TTL. A zero TTL keeps entries until
// capacity eviction. Concurrent misses for the same key are coalesced
// into a single fetch.
type RemoteCache struct {
	entries *expirable.LRU[string, string]
	group   singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	fetches atomic.Int64
	errors  atomic.Int64
}

// CacheStats is a point-in-time snapshot of RemoteCache counters
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
	Errors  int64 `json:"errors"`
}

// NewRemoteCache returns a RemoteCache holding up to size entries. A size
// <= 0 uses DefaultCacheSize.
func NewRemoteCache(size int, ttl time.Duration) *RemoteCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RemoteCache{
		entries: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// GetOrFetch returns the cached value for key. On a miss, fetch is called,
// and its result is cached and returned. If fetch returns an error,
// nothing is cached and the error is returned.
//
// While a fetch for key is in flight, other callers for the same key
// wait for it and share its result, instead of calling their own fetch.
// A caller whose ctx is done stops waiting, but the fetch keeps going
// for the others.
func (c *RemoteCache) GetOrFetch(
	ctx context.Context,
	key string,
	fetch func(ctx context.Context) (string, error),
) (string, error) {
	if v, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	ch := c.group.DoChan(
		key, func() (any, error) {
			// another flight may have populated the key between our
			// lookup and acquiring this one
			if v, ok := c.entries.Peek(key); ok {
				return v, nil
			}
			c.fetches.Add(1)
			// the fetch is shared, so it can't be cancelled by
			// whichever caller happened to start it
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheFetchTimeout)
			defer cancel()
			v, err := fetch(fctx)
			if err != nil {
				c.errors.Add(1)
				return "", err
			}
			c.entries.Add(key, v)
			return v, nil
		},
	)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Get returns the cached value for key, without fetching
func (c *RemoteCache) Get(key string) (string, bool) {
	return c.entries.Get(key)
}

// Remove evicts key, returning true if it was present
func (c *RemoteCache) Remove(key string) bool {
	return c.entries.Remove(key)
}

// Purge removes all entries
func (c *RemoteCache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached entries
func (c *RemoteCache) Len() int {
	return c.entries.Len()
}

func (c *RemoteCache) Stats() CacheStats {
	return CacheStats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
		Errors:  c.errors.Load(),
	}
}
