package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (c *countingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Should only send texts that are not cached", func(t *testing.T) {
		inner := &countingEmbedder{}
		c, err := NewCachedEmbedder(inner, 16)
		require.NoError(t, err)

		first, err := c.EmbedTexts(ctx, []string{"alpha", "beta"})
		require.NoError(t, err)
		second, err := c.EmbedTexts(ctx, []string{"beta", "gamma", "alpha"})
		require.NoError(t, err)

		require.Len(t, inner.calls, 2)
		assert.Equal(t, []string{"gamma"}, inner.calls[1])
		assert.Equal(t, first[1], second[0])
		assert.Equal(t, first[0], second[2])
		assert.Equal(t, []float32{5, 1}, second[1])
		assert.Equal(t, 3, c.Len())
	})

	t.Run("Should embed duplicate texts once and keep input order", func(t *testing.T) {
		inner := &countingEmbedder{}
		c, err := NewCachedEmbedder(inner, 16)
		require.NoError(t, err)

		out, err := c.EmbedTexts(ctx, []string{"a", "bb", "a"})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "bb"}}, inner.calls)
		assert.Equal(t, [][]float32{{1, 1}, {2, 1}, {1, 1}}, out)
	})

	t.Run("Should return copies the caller may mutate", func(t *testing.T) {
		c, err := NewCachedEmbedder(&countingEmbedder{}, 4)
		require.NoError(t, err)
		out, _ := c.EmbedTexts(ctx, []string{"x"})
		out[0][0] = 99
		again, _ := c.EmbedTexts(ctx, []string{"x"})
		assert.Equal(t, float32(1), again[0][0])
	})

	t.Run("Should not cache failures", func(t *testing.T) {
		inner := &countingEmbedder{err: errors.New("quota")}
		c, err := NewCachedEmbedder(inner, 4)
		require.NoError(t, err)
		_, err = c.EmbedTexts(ctx, []string{"x"})
		assert.Error(t, err)
		assert.Zero(t, c.Len())
	})

	t.Run("Should reject a non-positive size", func(t *testing.T) {
		_, err := NewCachedEmbedder(&countingEmbedder{}, 0)
		assert.Error(t, err)
	})
}

type stubLangchainEmbedder struct {
	docs [][]string
	err  error
}

func (s *stubLangchainEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.docs = append(s.docs, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (s *stubLangchainEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestOpenAIEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Should delegate to the langchain embedder", func(t *testing.T) {
		stub := &stubLangchainEmbedder{}
		e := newOpenAIEmbedder(stub, "text-embedding-3-small")
		out, err := e.EmbedTexts(ctx, []string{"one", "two"})
		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, [][]string{{"one", "two"}}, stub.docs)
	})

	t.Run("Should skip empty input", func(t *testing.T) {
		stub := &stubLangchainEmbedder{}
		out, err := newOpenAIEmbedder(stub, "m").EmbedTexts(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, out)
		assert.Empty(t, stub.docs)
	})

	t.Run("Should wrap provider errors with the model", func(t *testing.T) {
		stub := &stubLangchainEmbedder{err: errors.New("401 unauthorized")}
		_, err := newOpenAIEmbedder(stub, "m").EmbedTexts(ctx, []string{"x"})
		assert.ErrorContains(t, err, "openai embed (m)")
	})
}

func TestPartsText(t *testing.T) {
	assert.Equal(t, "Hello world", partsText([]genai.Part{genai.Text("Hello "), genai.Blob{}, genai.Text("world\n")}))
}
