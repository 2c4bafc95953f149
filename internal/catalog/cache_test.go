package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	products := []Product{{Code: "BRC-001", Destination: "Bariloche", Name: "Circuito Chico"}}
	require.NoError(t, cache.SetJSON(ctx, ListCacheKey, products))

	var got []Product
	found, err := cache.GetJSON(ctx, ListCacheKey, &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	require.Equal(t, "BRC-001", got[0].Code)
}

func TestCacheMissReportsNotFound(t *testing.T) {
	cache, _ := newTestCache(t)

	var got []Product
	found, err := cache.GetJSON(context.Background(), ListCacheKey, &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestCacheInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, ListCacheKey, []Product{{Code: "X"}}))
	require.True(t, mr.Exists(ListCacheKey))
	require.NoError(t, cache.Invalidate(ctx, ListCacheKey))
	require.False(t, mr.Exists(ListCacheKey))
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, ListCacheKey, []Product{{Code: "X"}}))
	mr.FastForward(2 * time.Minute)

	var got []Product
	found, err := cache.GetJSON(ctx, ListCacheKey, &got)
	require.NoError(t, err)
	require.False(t, found)
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, ListCacheKey, []Product{{Code: "X"}}))
	found, err := cache.GetJSON(ctx, ListCacheKey, &[]Product{})
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, cache.Invalidate(ctx, ListCacheKey))
}
