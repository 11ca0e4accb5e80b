package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// OpenAIEmbedder talks to any OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	impl  embeddings.Embedder
	model string
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, batchSize int) (*OpenAIEmbedder, error) {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	opts := []openai.Option{openai.WithEmbeddingModel(model)}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: init client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	return newOpenAIEmbedder(emb, model), nil
}

func newOpenAIEmbedder(impl embeddings.Embedder, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{impl: impl, model: model}
}

func (o *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := o.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed (%s): %w", o.model, err)
	}
	return vecs, nil
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
