package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	data, ok := f.objects[key]
	if !ok {
		return nil, core.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeObjects) PutObject(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) UploadFile(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	return "mem://" + key, f.PutObject(ctx, key, buf.Bytes(), contentType)
}

type fakeVectors struct {
	mu      sync.Mutex
	records map[string]map[string]models.VectorRecord
	order   []string
	writes  map[string]int
	err     error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{records: map[string]map[string]models.VectorRecord{}, writes: map[string]int{}}
}

func (f *fakeVectors) Upsert(_ context.Context, namespace string, records []models.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	ns := f.records[namespace]
	if ns == nil {
		ns = map[string]models.VectorRecord{}
		f.records[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
		f.writes[r.ID]++
		f.order = append(f.order, r.ID)
	}
	return nil
}

func (f *fakeVectors) Query(context.Context, string, []float32, int, bool) ([]models.Match, error) {
	return nil, nil
}

func (f *fakeVectors) count(namespace string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[namespace])
}

type fakeManifest struct {
	mu      sync.Mutex
	entries map[string][]models.DocumentManifestEntry
}

func newFakeManifest() *fakeManifest {
	return &fakeManifest{entries: map[string][]models.DocumentManifestEntry{}}
}

func (f *fakeManifest) Read(_ context.Context, namespace string) ([]models.DocumentManifestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DocumentManifestEntry{}, f.entries[namespace]...), nil
}

func (f *fakeManifest) Write(_ context.Context, namespace string, entries ...models.DocumentManifestEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(entries) == 1 {
		for _, e := range f.entries[namespace] {
			if e.ContentHash == entries[0].ContentHash {
				return core.ErrDuplicateContent
			}
		}
	}
	f.entries[namespace] = append(f.entries[namespace], entries...)
	return nil
}

// fakeEmbedder returns deterministic vectors and counts every text it sees.
type fakeEmbedder struct {
	mu    sync.Mutex
	dim   int
	seen  map[string]int
	calls int
	embed func(ctx context.Context, texts []string) ([][]float32, error)
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, seen: map[string]int{}}
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	fn := f.embed
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, texts)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		f.seen[t]++
		v := make([]float32, f.dim)
		for j := range v {
			v[j] = float32(len(t)+j) / 100
		}
		out[i] = v
	}
	return out, nil
}

// faqDocument renders n labelled question/answer pairs.
func faqDocument(n int) []byte {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "Question: How does feature %d work?\nAnswer: Feature %d processes requests in order and reports status.\n\n", i, i)
	}
	return []byte(b.String())
}
