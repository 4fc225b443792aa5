package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type generated struct {
	URL    string
	Prompt string
}

func TestInMemoryCacheManager_SetGet(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, generated]("images", DefaultExpiration, DefaultCleanupInterval)

	cache.Set(ctx, "img:cat", generated{URL: "http://x/cat.png", Prompt: "cat"}, 0)

	got, ok := cache.Get(ctx, "img:cat")
	require.True(t, ok)
	require.Equal(t, "http://x/cat.png", got.URL)
	require.Equal(t, 1, cache.Len())
}

func TestInMemoryCacheManager_Miss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("text", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "absent")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, string]("text", DefaultExpiration, DefaultCleanupInterval)

	cache.Set(ctx, "k", "v", 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := cache.Get(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, int]("n", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "a", 1, 0)
	cache.Set(ctx, "b", 2, 0)
	cache.Set(ctx, "c", 3, 0)

	cache.Delete(ctx, "a", "b")
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Flush(ctx)
	require.Equal(t, 0, cache.Len())
}

func TestReadThroughCache_CallsOnceOnHit(t *testing.T) {
	ctx := context.Background()
	calls := 0
	rt := NewReadThroughCache[string, string, string](
		NewInMemoryCacheManager[string, string]("text", DefaultExpiration, DefaultCleanupInterval),
		time.Minute,
		func(ctx context.Context, prompt string) (string, error) {
			calls++
			return "echo: " + prompt, nil
		},
	)

	v1, err := rt.Get(ctx, "k", "hi")
	require.NoError(t, err)
	v2, err := rt.Get(ctx, "k", "hi")
	require.NoError(t, err)

	require.Equal(t, "echo: hi", v1)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, calls)
}

func TestReadThroughCache_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	calls := 0
	rt := NewReadThroughCache[string, string, string](
		NewInMemoryCacheManager[string, string]("text", DefaultExpiration, DefaultCleanupInterval),
		time.Minute,
		func(ctx context.Context, _ string) (string, error) {
			calls++
			return "", errors.New("vendor down")
		},
	)

	_, err := rt.Get(ctx, "k", "x")
	require.Error(t, err)
	_, err = rt.Get(ctx, "k", "x")
	require.Error(t, err)
	require.Equal(t, 2, calls)
}
