package embed

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int64(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_CacheHit(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	first, err := c.Embed(context.Background(), "repeated query")
	require.NoError(t, err)

	second, err := c.Embed(context.Background(), "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load(), "second call should be served from cache")
}

func TestCachedEmbedder_BatchReusesCache(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	_, err := c.Embed(context.Background(), "alpha")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	// alpha came from cache, only beta hit the inner embedder.
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 2)
	defer c.Close()

	for i := 0; i < 4; i++ {
		_, err := c.Embed(context.Background(), fmt.Sprintf("query %d", i))
		require.NoError(t, err)
	}

	// "query 0" was evicted; embedding it again hits the inner embedder.
	before := inner.calls.Load()
	_, err := c.Embed(context.Background(), "query 0")
	require.NoError(t, err)
	assert.Equal(t, before+1, inner.calls.Load())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedder(NewStaticEmbedder(), 10)
	defer c.Close()

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestCachedEmbedder_PassesThroughMetadata(t *testing.T) {
	inner := NewStaticEmbedder()
	c := NewCachedEmbedder(inner, 10)
	defer c.Close()

	assert.Equal(t, inner.Dimensions(), c.Dimensions())
	assert.Equal(t, inner.ModelName(), c.ModelName())
}
