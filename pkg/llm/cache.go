package llm

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingEmbedder memoizes embeddings by exact text. Repeated queries
// (the same task retrieved under several strategies) hit the provider once.
type CachingEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachingEmbedder wraps next with an LRU cache holding size entries.
func NewCachingEmbedder(next Embedder, size int) (*CachingEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachingEmbedder{next: next, cache: cache}, nil
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachingEmbedder) Dimension() int {
	return c.next.Dimension()
}

// Embed returns a cached vector or computes and caches a new one. Failures
// are not cached.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.cache.Get(text); ok {
		return cloneVector(vector), nil
	}
	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, cloneVector(vector))
	return vector, nil
}

// Len returns the number of cached entries.
func (c *CachingEmbedder) Len() int {
	return c.cache.Len()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
