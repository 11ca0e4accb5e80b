package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Strategy turns page blocks into chunks without mutating them.
type Strategy interface {
	Name() string
	Chunk(blocks []models.PageBlock) []models.Chunk
}

// ChunkResult is the router's output.
type ChunkResult struct {
	DocType  models.DocType
	Strategy string
	Chunks   []models.Chunk
}

// ChunkRouter dispatches to a strategy by document type and walks a fallback
// chain when a strategy produces nothing.
type ChunkRouter struct {
	faq      Strategy
	glossary Strategy
	manual   Strategy
	standard Strategy
}

func NewChunkRouter() *ChunkRouter {
	return &ChunkRouter{
		faq:      NewFAQChunker(),
		glossary: NewGlossaryChunker(),
		manual:   NewSemanticChunker("manual", ManualParams),
		standard: NewSemanticChunker("standard", StandardParams),
	}
}

func (r *ChunkRouter) chain(dt models.DocType) []Strategy {
	switch dt {
	case models.DocTypeFAQQA:
		return []Strategy{r.faq, r.glossary, r.standard}
	case models.DocTypeFAQGlossary, models.DocTypeGlossary:
		return []Strategy{r.glossary, r.standard}
	case models.DocTypeManual:
		return []Strategy{r.manual}
	default:
		return []Strategy{r.standard}
	}
}

func (r *ChunkRouter) Route(ctx context.Context, dt models.DocType, blocks []models.PageBlock) ChunkResult {
	log := logger.FromContext(ctx)
	res := ChunkResult{DocType: dt}
	for _, s := range r.chain(dt) {
		res.Strategy = s.Name()
		res.Chunks = s.Chunk(blocks)
		if len(res.Chunks) > 0 {
			return res
		}
		log.Debug("strategy produced no chunks", "strategy", s.Name(), "doc_type", dt)
	}
	return res
}
