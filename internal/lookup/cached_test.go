package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls   atomic.Int64
	results map[string][]string
	err     error
}

func (f *fakeClient) Lookup(ctx context.Context, key string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[key], nil
}

func memoryCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache("", nil)
	require.NoError(t, err)
	return cache
}

func TestCachedLookup(t *testing.T) {
	client := &fakeClient{results: map[string][]string{"123": {"1234-5678"}}}
	cached := NewCached(client, memoryCache(t))
	ctx := context.Background()

	ids, err := cached.Lookup(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-5678"}, ids)

	ids, err = cached.Lookup(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-5678"}, ids)

	ids, err = cached.Lookup(ctx, "404")
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = cached.Lookup(ctx, "404")
	require.NoError(t, err)

	assert.Equal(t, int64(2), client.calls.Load(), "each key goes to the service once")
	hits, fetches := cached.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), fetches)
}

func TestCachedConcurrentLookups(t *testing.T) {
	client := &fakeClient{results: map[string][]string{"123": {"1234-5678"}}}
	cached := NewCached(client, memoryCache(t))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := cached.Lookup(context.Background(), "123")
			assert.NoError(t, err)
			assert.Equal(t, []string{"1234-5678"}, ids)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), client.calls.Load())
}

func TestCachedErrorsAreNotCached(t *testing.T) {
	cache := memoryCache(t)
	client := &fakeClient{err: errors.New("service down")}
	cached := NewCached(client, cache)

	_, err := cached.Lookup(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	client.err = nil
	client.results = map[string][]string{"123": {"1234-5678"}}
	ids, err := cached.Lookup(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-5678"}, ids)
}

func TestCachedWithoutClient(t *testing.T) {
	cache := memoryCache(t)
	cache.Put("123", []string{"1234-5678"})
	cached := NewCached(nil, cache)

	ids, err := cached.Lookup(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234-5678"}, ids)

	ids, err = cached.Lookup(context.Background(), "456")
	require.NoError(t, err)
	assert.Nil(t, ids)
}
