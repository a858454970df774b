package lookup

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Client returns the identifiers a bibliographic service knows for a lookup
// key. A key the service does not know yields no identifiers and no error.
type Client interface {
	Lookup(ctx context.Context, key string) ([]string, error)
}

// Cached serves lookups from a Cache and asks the client only on a miss.
// Concurrent misses for one key share a single request. Empty results are
// cached; errors are not, so a failed key is retried on the next run.
type Cached struct {
	client Client
	cache  *Cache
	group  singleflight.Group

	hits    atomic.Int64
	fetches atomic.Int64
}

// NewCached wraps client with cache. A nil client makes the cache the only
// source of identifiers.
func NewCached(client Client, cache *Cache) *Cached {
	return &Cached{client: client, cache: cache}
}

// Lookup implements Client.
func (c *Cached) Lookup(ctx context.Context, key string) ([]string, error) {
	if ids, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return ids, nil
	}
	if c.client == nil {
		return nil, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if ids, ok := c.cache.Get(key); ok {
			c.hits.Add(1)
			return ids, nil
		}
		c.fetches.Add(1)
		ids, err := c.client.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Stats reports how many lookups were answered from the cache and how many
// went to the service.
func (c *Cached) Stats() (hits, fetches int64) {
	return c.hits.Load(), c.fetches.Load()
}
