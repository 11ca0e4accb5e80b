package app

import (
	"context"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markdave123-py/contexta-ingest/internal/api/handlers"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	db "github.com/markdave123-py/contexta-ingest/internal/core/database"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
	"github.com/markdave123-py/contexta-ingest/internal/core/manifest"
	objectclient "github.com/markdave123-py/contexta-ingest/internal/core/object-client"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/metrics"
)

// Pipeline is the wired ingestion stack shared by the API and the CLI.
type Pipeline struct {
	Pool         *pgxpool.Pool
	Objects      core.ObjectClient
	Vectors      core.VectorStore
	Manifest     core.ManifestStore
	Embedder     core.EmbeddingProvider
	Orchestrator *ingestion_engine.Orchestrator
	Metrics      *metrics.Pipeline
}

type App struct {
	Pipeline *Pipeline
	Driver   *ingestion_engine.Driver
	Server   *Server
	llm      *llm.GeminiLLM
}

// LoggerConfig derives the process logger settings from cfg.
func LoggerConfig(cfg *config.Config) *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.LogLevel(cfg.LogLevel)
	lc.JSON = cfg.LogJSON
	return lc
}

// NewPipeline connects storage, the vector database and the embedding
// provider, and builds the orchestrator on top of them.
func NewPipeline(ctx context.Context, cfg *config.Config, progress ingestion_engine.ProgressSink) (*Pipeline, error) {
	log := logger.FromContext(ctx)
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	pool, err := db.Connect(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("vector database ready", "dim", cfg.EmbedDim)

	objects, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	embedder, err := llm.NewEmbeddingProvider(initCtx, cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	m := metrics.NewPipeline(true)
	vectors := db.NewVectorStore(pool, cfg.EmbedDim)
	manifests := manifest.NewStore(objects)
	orch := ingestion_engine.NewOrchestrator(
		objects, vectors, manifests, embedder,
		ingestion_engine.IngestConfigFromEnv(cfg),
		ingestion_engine.WithMetrics(m),
		ingestion_engine.WithProgress(progress),
	)

	return &Pipeline{
		Pool:         pool,
		Objects:      objects,
		Vectors:      vectors,
		Manifest:     manifests,
		Embedder:     embedder,
		Orchestrator: orch,
		Metrics:      m,
	}, nil
}

func (p *Pipeline) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// LogProgress reports pipeline progress through the context logger.
func LogProgress(log *charmlog.Logger) ingestion_engine.ProgressSink {
	return ingestion_engine.ProgressFunc(func(_ context.Context, p ingestion_engine.Progress) {
		log.Debug("ingestion progress",
			"namespace", p.Namespace, "file_key", p.FileKey, "phase", p.Phase,
			"batch", p.Batch, "total_batches", p.TotalBatches, "chunks", p.ChunkCount)
	})
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	pipeline, err := NewPipeline(ctx, cfg, LogProgress(log))
	if err != nil {
		return nil, err
	}

	driver, err := ingestion_engine.NewDriver(ctx, pipeline.Orchestrator, cfg.IngestWorkers)
	if err != nil {
		pipeline.Close()
		return nil, err
	}

	var (
		answerer core.LLMProvider
		gen      *llm.GeminiLLM
	)
	if cfg.GeminiAPIKey != "" {
		gen, err = llm.NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			log.Warn("answer generation disabled", "error", err)
			gen = nil
		} else {
			answerer = gen
		}
	}

	server := NewServer(cfg, log, Handlers{
		Ingest:    handlers.NewIngestHandler(pipeline.Orchestrator),
		Documents: handlers.NewDocumentHandler(pipeline.Objects, pipeline.Manifest, driver),
		Query:     handlers.NewQueryHandler(pipeline.Embedder, pipeline.Vectors, answerer),
		Metrics:   pipeline.Metrics.Handler(),
	})

	return &App{Pipeline: pipeline, Driver: driver, Server: server, llm: gen}, nil
}

func (a *App) Close() {
	if a.Driver != nil {
		a.Driver.Release()
	}
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.Pipeline != nil {
		a.Pipeline.Close()
	}
}
