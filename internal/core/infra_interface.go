package core

import (
	"context"
	"io"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// ObjectClient defines interactions with S3 or any object storage.
// Keys are relative to the bucket the client was built for.
type ObjectClient interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error

	// UploadFile streams r to key and returns the object URL.
	UploadFile(ctx context.Context, key string, r io.Reader, contentType string) (url string, err error)
}

// VectorStore is a namespace-partitioned vector index.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]models.Match, error)
}

// ManifestStore owns the per-namespace list of ingested documents.
//
// Read returns an empty slice when the namespace has no manifest yet.
// Write with exactly one entry fails with ErrDuplicateContent when another
// entry already carries the same content hash; otherwise entries are upserted
// by id or appended.
type ManifestStore interface {
	Read(ctx context.Context, namespace string) ([]models.DocumentManifestEntry, error)
	Write(ctx context.Context, namespace string, entries ...models.DocumentManifestEntry) error
}
