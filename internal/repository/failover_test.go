package repository

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"slotbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenCache fails every call, optionally counting the attempts.
type brokenCache struct {
	mu    sync.Mutex
	calls int
}

var errCacheDown = errors.New("cache down")

func (b *brokenCache) bump() {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
}

func (b *brokenCache) GetCount(context.Context, models.SlotKey) (int, bool, error) {
	b.bump()
	return 0, false, errCacheDown
}

func (b *brokenCache) SetCount(context.Context, models.SlotKey, int) error {
	b.bump()
	return errCacheDown
}

func (b *brokenCache) Invalidate(context.Context, models.SlotKey) error {
	b.bump()
	return errCacheDown
}

func (b *brokenCache) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestFailover_UsesFallbackWhenPrimaryFails(t *testing.T) {
	logger := zerolog.New(io.Discard)
	primary := &brokenCache{}
	fallback := NewMemoryCountCache(time.Minute)
	cache := NewFailoverCountCache(primary, fallback, &logger)

	ctx := context.Background()
	key := testKey()

	require.NoError(t, cache.SetCount(ctx, key, 4))

	count, ok, err := cache.GetCount(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, count)
}

func TestFailover_StopsProbingDownPrimary(t *testing.T) {
	logger := zerolog.New(io.Discard)
	primary := &brokenCache{}
	fallback := NewMemoryCountCache(time.Minute)
	cache := NewFailoverCountCache(primary, fallback, &logger)

	ctx := context.Background()
	key := testKey()

	// First call trips the breaker; the rest go straight to the fallback.
	_, _, _ = cache.GetCount(ctx, key)
	for i := 0; i < 5; i++ {
		_, _, err := cache.GetCount(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, primary.callCount())
}

func TestFailover_RecoversWithHealthyPrimary(t *testing.T) {
	logger := zerolog.New(io.Discard)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	primary := NewRedisCountCache(client, time.Minute)
	fallback := NewMemoryCountCache(time.Minute)
	cache := NewFailoverCountCache(primary, fallback, &logger)

	ctx := context.Background()
	key := testKey()

	require.NoError(t, cache.SetCount(ctx, key, 2))

	// Both layers carry the value while the primary is healthy.
	count, ok, err := primary.GetCount(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, count)

	count, ok, err = cache.GetCount(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestFailover_InvalidateClearsBothLayers(t *testing.T) {
	logger := zerolog.New(io.Discard)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	primary := NewRedisCountCache(client, time.Minute)
	fallback := NewMemoryCountCache(time.Minute)
	cache := NewFailoverCountCache(primary, fallback, &logger)

	ctx := context.Background()
	key := testKey()

	require.NoError(t, cache.SetCount(ctx, key, 9))
	require.NoError(t, cache.Invalidate(ctx, key))

	_, ok, err := primary.GetCount(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = fallback.GetCount(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
