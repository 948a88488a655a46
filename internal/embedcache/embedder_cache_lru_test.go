package embedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/ai"
	"github.com/iron-dillo/cybersandbox/internal/embedcache"
)

type countingEmbedder struct {
	calls   int
	batches [][]string
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.calls++
	c.batches = append(c.batches, texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func TestCachedEmbedderMemoizes(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cached := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := cached.Embed(ctx, []string{"alpha", "beta"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, inner.calls)

	second, err := cached.Embed(ctx, []string{"alpha", "beta"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderForwardsOnlyMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cached := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.Embed(ctx, []string{"alpha"}, ai.TaskTypeDocument)
	require.NoError(t, err)

	vectors, err := cached.Embed(ctx, []string{"alpha", "gamma", "delta"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, []string{"gamma", "delta"}, inner.batches[1])
	require.Equal(t, []float32{5, 1}, vectors[0])
}

func TestCachedEmbedderKeysOnTaskType(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cached := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.Embed(ctx, []string{"alpha"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	_, err = cached.Embed(ctx, []string{"alpha"}, ai.TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapDisabledPassesThrough(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, ai.IEmbedder(inner), embedcache.WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, ai.IEmbedder(inner), embedcache.WrapLruCacheToEmbedder(inner, 16, 0))
}
