package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/cache"
)

func TestFingerprintStableAndDistinguishing(t *testing.T) {
	a := cache.Fingerprint("*3[users]::name>>oQ", "sqlite", "basic", "backend1", "user1")
	b := cache.Fingerprint("*3[users]::name>>oQ", "sqlite", "basic", "backend1", "user1")
	require.Equal(t, a, b)

	c := cache.Fingerprint("*3[users]::name>>oQ", "sqlite", "basic", "backend1", "user2")
	require.NotEqual(t, a, c)
}

func TestGetMissThenPutThenHit(t *testing.T) {
	c := cache.New(10)

	_, ok := c.Get("k1")
	require.False(t, ok)

	c.Put("k1", "v1")
	v, ok := c.Get("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts "a", the least recently used

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)

	require.Equal(t, int64(1), c.Stats().Evictions)
}

func TestGetPromotesToMostRecentlyUsed(t *testing.T) {
	c := cache.New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // "a" is now most recently used
	c.Put("c", 3) // evicts "b"

	_, ok := c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
}

func TestClearResetsSizeNotStats(t *testing.T) {
	c := cache.New(10)
	c.Put("a", 1)
	c.Get("a")
	c.Clear()

	require.Equal(t, 0, c.Stats().Size)
	require.Equal(t, int64(1), c.Stats().Hits)
}

func TestHitRate(t *testing.T) {
	require.Equal(t, 0.0, cache.Stats{}.HitRate())
	require.Equal(t, 0.5, cache.Stats{Hits: 1, Misses: 1}.HitRate())
}
