package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/metrics"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// IngestRequest is the input of one invocation. StartBatch and DocumentType
// are taken from the previous invocation's continuation.
type IngestRequest struct {
	Namespace    string `json:"namespace" validate:"required,max=128,excludesall=/\\"`
	FileKey      string `json:"fileKey" validate:"required,max=1024"`
	FileName     string `json:"fileName" validate:"required,max=512"`
	DocumentType string `json:"documentType,omitempty" validate:"omitempty,max=32"`
	StartBatch   int    `json:"startBatch" validate:"gte=0"`
}

// IngestResponse is either terminal (Completed) or a continuation carrying
// the next batch cursor.
type IngestResponse struct {
	Success      bool         `json:"success"`
	Phase        Phase        `json:"phase"`
	Message      string       `json:"message"`
	Completed    bool         `json:"completed,omitempty"`
	ChunkCount   int          `json:"chunkCount,omitempty"`
	DocumentType string       `json:"documentType,omitempty"`
	NextPhase    Phase        `json:"nextPhase,omitempty"`
	NextBatch    int          `json:"nextBatch,omitempty"`
	TotalBatches int          `json:"totalBatches,omitempty"`
	BatchSize    int          `json:"batchSize,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Category Category `json:"category"`
	Phase    Phase    `json:"phase,omitempty"`
	Detail   string   `json:"detail"`
}

// Cursor returns the continuation as a batch cursor.
func (r *IngestResponse) Cursor() models.BatchCursor {
	return models.BatchCursor{
		StartBatchIndex:  r.NextBatch,
		TotalBatches:     r.TotalBatches,
		BatchSize:        r.BatchSize,
		EffectiveDocType: models.DocType(r.DocumentType),
	}
}

// errBatchAborted stops the upsert loop after an embedding failure.
var errBatchAborted = errors.New("batch aborted")

// Orchestrator runs one time-boxed invocation of the ingestion state machine:
// parse, classify, chunk, then embed and upsert a slice of batches, and write
// the manifest once the last batch is stored.
type Orchestrator struct {
	objects    core.ObjectClient
	vectors    core.VectorStore
	manifest   core.ManifestStore
	embedder   core.EmbeddingProvider
	extractor  core.PageExtractor
	classifier *Classifier
	router     *ChunkRouter
	cfg        *IngestConfig
	retry      retryPolicy
	progress   ProgressSink
	metrics    *metrics.Pipeline
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
}

type Option func(*Orchestrator)

func WithProgress(p ProgressSink) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.progress = p
		}
	}
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithExtractor(e core.PageExtractor) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.extractor = e
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(
	objects core.ObjectClient,
	vectors core.VectorStore,
	manifest core.ManifestStore,
	embedder core.EmbeddingProvider,
	cfg *IngestConfig,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		objects:    objects,
		vectors:    vectors,
		manifest:   manifest,
		embedder:   embedder,
		extractor:  NewPageBlockExtractor(5, false),
		classifier: NewClassifier(),
		router:     NewChunkRouter(),
		cfg:        cfg.withDefaults(),
		progress:   noopProgress{},
		metrics:    metrics.NewPipeline(false),
		validate:   validator.New(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.retry = newRetryPolicy(o.cfg.RetryAttempts, o.cfg.RetryInitialDelay, func(op string) {
		o.metrics.Retries.WithLabelValues(op).Inc()
	})
	return o
}

// Ingest runs one invocation. The response is always non-nil; on failure it
// carries the error category and the returned error is an *Error.
func (o *Orchestrator) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	started := o.now()
	log := logger.FromContext(ctx).With("component", "orchestrator", "namespace", req.Namespace, "file_key", req.FileKey)
	ctx = logger.ContextWithLogger(ctx, log)

	if err := o.validateRequest(req); err != nil {
		return o.fail(ctx, req, err, started)
	}

	var resp *IngestResponse
	err := raceTimeout(ctx, o.cfg.InvocationTimeout, "ingestion invocation", func(ctx context.Context) error {
		r, err := o.run(ctx, req)
		resp = r
		return err
	})
	if err != nil {
		return o.fail(ctx, req, err, started)
	}

	outcome := "continued"
	if resp.Completed {
		outcome = "completed"
	}
	o.metrics.ObserveInvocation(outcome, started)
	return resp, nil
}

func (o *Orchestrator) validateRequest(req IngestRequest) error {
	if err := o.validate.Struct(req); err != nil {
		return validationErrorf("invalid request: %v", err)
	}
	for field, v := range map[string]string{"namespace": req.Namespace, "fileKey": req.FileKey, "fileName": req.FileName} {
		if strings.TrimSpace(v) == "" {
			return validationErrorf("%s is blank", field)
		}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	log := logger.FromContext(ctx)

	o.report(ctx, req, Progress{Phase: PhaseParsing})
	var data []byte
	err := o.retry.do(ctx, "get_object", func(ctx context.Context) error {
		var err error
		data, err = o.objects.GetObject(ctx, req.FileKey)
		return err
	})
	switch {
	case errors.Is(err, core.ErrObjectNotFound):
		return nil, newError(CategoryValidation, PhaseParsing, fmt.Errorf("file key %q: %w", req.FileKey, err))
	case err != nil:
		return nil, asPipelineError(PhaseParsing, CategoryTransient, fmt.Errorf("get object: %w", err))
	}
	contentHash := sha256Hex(data)

	plan, err := o.plan(ctx, req, data)
	if err != nil {
		return nil, err
	}
	docType, res := plan.DocType, plan.Result
	n := len(res.Chunks)
	bs := o.cfg.EmbeddingBatchSize
	cursor := models.BatchCursor{
		StartBatchIndex:  req.StartBatch,
		TotalBatches:     (n + bs - 1) / bs,
		BatchSize:        bs,
		EffectiveDocType: docType,
	}
	if cursor.StartBatchIndex > cursor.TotalBatches {
		return nil, newError(CategoryValidation, PhaseEmbedding,
			fmt.Errorf("start batch %d beyond total batches %d", cursor.StartBatchIndex, cursor.TotalBatches))
	}
	if cursor.StartBatchIndex == 0 {
		o.metrics.ChunksProduced.WithLabelValues(res.Strategy).Add(float64(n))
	}
	log.Info("document chunked",
		"doc_type", docType, "strategy", res.Strategy, "chunks", n,
		"start_batch", cursor.StartBatchIndex, "total_batches", cursor.TotalBatches)
	o.report(ctx, req, Progress{Phase: PhaseChunking, TotalBatches: cursor.TotalBatches, ChunkCount: n})

	rc := RecordContext{
		Namespace:    req.Namespace,
		DocumentName: req.FileName,
		FileKey:      req.FileKey,
		ContentHash:  contentHash,
		DocType:      docType,
		TotalChunks:  n,
	}
	end := min(cursor.StartBatchIndex+o.cfg.BatchesPerCall, cursor.TotalBatches)
	if err := o.processBatches(ctx, req, res.Chunks, rc, cursor, end); err != nil {
		return nil, err
	}

	if end < cursor.TotalBatches {
		return &IngestResponse{
			Success:      true,
			Phase:        PhaseUpserting,
			Message:      fmt.Sprintf("processed batches %d-%d of %d", cursor.StartBatchIndex+1, end, cursor.TotalBatches),
			NextPhase:    PhaseEmbedding,
			NextBatch:    end,
			TotalBatches: cursor.TotalBatches,
			BatchSize:    bs,
			DocumentType: string(docType),
		}, nil
	}
	return o.writeManifest(ctx, req, rc, cursor)
}

// processBatches embeds batches [cursor.StartBatchIndex, end) with bounded
// parallelism and upserts them strictly in batch order.
func (o *Orchestrator) processBatches(
	ctx context.Context,
	req IngestRequest,
	chunks []models.Chunk,
	rc RecordContext,
	cursor models.BatchCursor,
	end int,
) error {
	start := cursor.StartBatchIndex
	count := end - start
	if count <= 0 {
		return nil
	}

	embedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		vectors  = make([][][]float32, count)
		ready    = make([]chan struct{}, count)
		failed   = make(chan struct{})
		failOnce sync.Once
	)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	upserted := make(chan error, 1)
	go func() {
		err := o.upsertInOrder(ctx, req, chunks, rc, cursor, vectors, ready, failed)
		if err != nil {
			cancel()
		}
		upserted <- err
	}()

	g, gctx := errgroup.WithContext(embedCtx)
	g.SetLimit(o.cfg.EmbedParallelism)
	for i := range count {
		batch := start + i
		g.Go(func() error {
			vecs, err := o.embedBatch(gctx, chunks, batch)
			if err != nil {
				failOnce.Do(func() { close(failed) })
				return err
			}
			vectors[i] = vecs
			close(ready[i])
			return nil
		})
	}
	embedErr := g.Wait()
	upsertErr := <-upserted

	if upsertErr != nil && !errors.Is(upsertErr, errBatchAborted) {
		return upsertErr
	}
	if embedErr != nil {
		return embedErr
	}
	return upsertErr
}

func (o *Orchestrator) batchBounds(batch, n int) (int, int) {
	lo := batch * o.cfg.EmbeddingBatchSize
	return lo, min(lo+o.cfg.EmbeddingBatchSize, n)
}

func (o *Orchestrator) embedBatch(ctx context.Context, chunks []models.Chunk, batch int) ([][]float32, error) {
	lo, hi := o.batchBounds(batch, len(chunks))
	texts := make([]string, 0, hi-lo)
	for _, c := range chunks[lo:hi] {
		texts = append(texts, truncateForEmbedding(c.EmbeddingInput(), o.cfg.EmbedMaxChars))
	}

	var vecs [][]float32
	err := raceTimeout(ctx, o.cfg.UnitTimeout, fmt.Sprintf("embed batch %d", batch), func(ctx context.Context) error {
		return o.retry.do(ctx, "embed", func(ctx context.Context) error {
			out, err := o.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}
			vecs = out
			return nil
		})
	})
	if err != nil {
		return nil, asPipelineError(PhaseEmbedding, CategoryTransient, fmt.Errorf("embed batch %d: %w", batch, err))
	}
	if len(vecs) != len(texts) {
		return nil, newError(CategoryInternal, PhaseEmbedding,
			fmt.Errorf("embed batch %d: got %d vectors for %d texts", batch, len(vecs), len(texts)))
	}
	for i, v := range vecs {
		want := o.cfg.EmbedDim
		if want <= 0 {
			want = len(vecs[0])
		}
		if len(v) != want || len(v) == 0 {
			return nil, newError(CategoryInternal, PhaseEmbedding,
				fmt.Errorf("embed batch %d: vector %d has dimension %d, want %d", batch, i, len(v), want))
		}
	}
	return vecs, nil
}

func (o *Orchestrator) upsertInOrder(
	ctx context.Context,
	req IngestRequest,
	chunks []models.Chunk,
	rc RecordContext,
	cursor models.BatchCursor,
	vectors [][][]float32,
	ready []chan struct{},
	failed <-chan struct{},
) error {
	log := logger.FromContext(ctx)
	vbs := o.cfg.VectorBatchSize
	for i := range ready {
		select {
		case <-ready[i]:
		case <-failed:
			return errBatchAborted
		}
		batch := cursor.StartBatchIndex + i
		lo, _ := o.batchBounds(batch, len(chunks))

		records := make([]models.VectorRecord, 0, len(vectors[i]))
		for j, vec := range vectors[i] {
			idx := lo + j
			meta := rc
			meta.ChunkIndex = idx
			records = append(records, models.VectorRecord{
				ID:       RecordID(rc.DocumentName, chunks[idx], idx),
				Values:   vec,
				Metadata: BuildMetadata(chunks[idx], meta),
			})
		}

		for off := 0; off < len(records); off += vbs {
			part := records[off:min(off+vbs, len(records))]
			err := raceTimeout(ctx, o.cfg.UnitTimeout, fmt.Sprintf("upsert batch %d", batch), func(ctx context.Context) error {
				return o.retry.do(ctx, "upsert", func(ctx context.Context) error {
					return o.vectors.Upsert(ctx, req.Namespace, part)
				})
			})
			if err != nil {
				return asPipelineError(PhaseUpserting, CategoryTransient, fmt.Errorf("upsert batch %d: %w", batch, err))
			}
		}
		o.metrics.BatchesUpserted.Inc()
		log.Debug("batch upserted", "batch", batch+1, "total_batches", cursor.TotalBatches, "records", len(records))
		o.report(ctx, req, Progress{
			Phase:        PhaseUpserting,
			Batch:        batch + 1,
			TotalBatches: cursor.TotalBatches,
			ChunkCount:   len(chunks),
		})
	}
	return nil
}

func (o *Orchestrator) writeManifest(ctx context.Context, req IngestRequest, rc RecordContext, cursor models.BatchCursor) (*IngestResponse, error) {
	log := logger.FromContext(ctx)
	o.report(ctx, req, Progress{Phase: PhaseManifest, TotalBatches: cursor.TotalBatches, ChunkCount: rc.TotalChunks})

	entry := models.DocumentManifestEntry{
		ID:           o.newID(),
		Source:       req.FileName,
		ObjectKey:    req.FileKey,
		CreatedAt:    o.now().UTC(),
		Namespace:    req.Namespace,
		ContentHash:  rc.ContentHash,
		DocumentType: rc.DocType.Lowered(),
		ChunkCount:   rc.TotalChunks,
	}
	resp := &IngestResponse{
		Success:      true,
		Phase:        PhaseDone,
		Message:      "ingestion completed",
		Completed:    true,
		ChunkCount:   rc.TotalChunks,
		DocumentType: rc.DocType.Lowered(),
	}

	err := o.retry.do(ctx, "manifest_write", func(ctx context.Context) error {
		return o.manifest.Write(ctx, req.Namespace, entry)
	})
	switch {
	case errors.Is(err, core.ErrDuplicateContent):
		log.Info("document already in manifest", "content_hash", rc.ContentHash)
		resp.Message = "document already ingested"
	case err != nil:
		return nil, asPipelineError(PhaseManifest, CategoryTransient, fmt.Errorf("write manifest: %w", err))
	default:
		o.metrics.DocumentsIngested.WithLabelValues(entry.DocumentType).Inc()
		log.Info("document ingested", "chunks", rc.TotalChunks, "doc_type", entry.DocumentType)
	}
	o.report(ctx, req, Progress{Phase: PhaseDone, Batch: cursor.TotalBatches, TotalBatches: cursor.TotalBatches, ChunkCount: rc.TotalChunks})
	return resp, nil
}

func (o *Orchestrator) fail(ctx context.Context, req IngestRequest, err error, started time.Time) (*IngestResponse, error) {
	log := logger.FromContext(ctx)
	pe := asPipelineError("", CategoryInternal, err)
	log.Error("ingestion failed", "category", pe.Category, "phase", pe.Phase, "error", pe.Err)

	if pe.Category.rollsBack() {
		o.rollback(ctx, req.FileKey)
	}
	o.report(ctx, req, Progress{Phase: PhaseFailed, Message: pe.Error()})
	o.metrics.ObserveInvocation(string(pe.Category), started)

	return &IngestResponse{
		Success: false,
		Phase:   PhaseFailed,
		Message: "ingestion failed",
		Error:   &ErrorDetail{Category: pe.Category, Phase: pe.Phase, Detail: pe.Err.Error()},
	}, pe
}

// rollback deletes the uploaded source object. Vectors from earlier batches stay.
func (o *Orchestrator) rollback(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := o.objects.DeleteObject(ctx, key); err != nil {
		logger.FromContext(ctx).Error("rollback: delete source object failed", "file_key", key, "error", err)
		return
	}
	logger.FromContext(ctx).Warn("rollback: source object deleted", "file_key", key)
}

func (o *Orchestrator) report(ctx context.Context, req IngestRequest, p Progress) {
	p.Namespace = req.Namespace
	p.FileKey = req.FileKey
	o.progress.Report(ctx, p)
}

// RecordID derives a stable vector id from the document name, the chunk's
// fingerprint (its content when it has none) and its position.
func RecordID(documentName string, c models.Chunk, index int) string {
	key := c.Fingerprint()
	if key == "" {
		key = c.Content()
	}
	return sha256Hex(fmt.Appendf(nil, "%s::%s::%d", documentName, key, index))
}

// ChunkPlan is the chunking outcome for one document before any embedding.
type ChunkPlan struct {
	DocType    models.DocType
	TotalPages int
	Result     ChunkResult
}

// Plan extracts, classifies and chunks data without touching storage.
func (o *Orchestrator) Plan(ctx context.Context, data []byte, fileName, documentType string) (*ChunkPlan, error) {
	return o.plan(ctx, IngestRequest{FileName: fileName, DocumentType: documentType}, data)
}

func (o *Orchestrator) plan(ctx context.Context, req IngestRequest, data []byte) (*ChunkPlan, error) {
	blocks, err := o.extractor.Extract(ctx, data, req.FileName)
	if err != nil {
		return nil, asPipelineError(PhaseParsing, CategoryExtraction, err)
	}

	o.report(ctx, req, Progress{Phase: PhaseClassifying})
	pages := blocks[len(blocks)-1].PageEnd
	sample := firstRunes(joinBlocks(blocks), o.cfg.ClassifierSampleSize)
	docType, err := o.classifier.resolveDocType(req.DocumentType, sample, pages)
	if err != nil {
		return nil, newError(CategoryValidation, PhaseClassifying, err)
	}

	res := o.router.Route(ctx, docType, blocks)
	if len(res.Chunks) == 0 {
		return nil, newError(CategoryExtraction, PhaseChunking, fmt.Errorf("no chunks produced from %s", req.FileName))
	}
	return &ChunkPlan{DocType: docType, TotalPages: pages, Result: res}, nil
}
