package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// CachedEmbedder memoizes vectors by text so re-invoked batches and repeated
// queries skip the provider.
type CachedEmbedder struct {
	next  core.EmbeddingProvider
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(next core.EmbeddingProvider, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache size must be greater than zero")
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make(map[string][]int)
	var order []string
	for i, t := range texts {
		if v, ok := c.cache.Get(cacheKey(t)); ok {
			out[i] = cloneVector(v)
			continue
		}
		if _, seen := missing[t]; !seen {
			order = append(order, t)
		}
		missing[t] = append(missing[t], i)
	}
	if len(order) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedTexts(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(order) {
		return nil, fmt.Errorf("received %d embeddings for %d texts", len(vecs), len(order))
	}
	for i, t := range order {
		if len(vecs[i]) > 0 {
			c.cache.Add(cacheKey(t), cloneVector(vecs[i]))
		}
		for _, idx := range missing[t] {
			out[idx] = cloneVector(vecs[i])
		}
	}
	return out, nil
}

func (c *CachedEmbedder) Len() int { return c.cache.Len() }

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if src == nil {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}

var _ core.EmbeddingProvider = (*CachedEmbedder)(nil)
