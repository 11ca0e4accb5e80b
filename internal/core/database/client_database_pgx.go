package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const upsertVectorSQL = `
	INSERT INTO chunk_vectors (namespace, id, embedding, metadata, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (namespace, id) DO UPDATE
	SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata, updated_at = now()
`

const queryVectorSQL = `
	SELECT id, 1 - (embedding <=> $2) AS score, %s
	FROM chunk_vectors
	WHERE namespace = $1
	ORDER BY embedding <=> $2
	LIMIT $3
`

// VectorStore keeps namespaced vectors in a pgvector table.
type VectorStore struct {
	pool Pool
	dim  int
}

var _ core.VectorStore = (*VectorStore)(nil)

func NewVectorStore(pool Pool, dim int) *VectorStore {
	return &VectorStore{pool: pool, dim: dim}
}

// Connect opens a pgx pool for cfg.DatabaseURL and bootstraps the schema.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	pcfg.MaxConns = 20
	pcfg.MinConns = 2
	pcfg.MaxConnLifetime = 30 * time.Minute
	pcfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := EnsureBootstrapped(ctx, pool, cfg.EmbedDim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return pool, nil
}

// Upsert writes records in one transaction, replacing rows with the same id.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if s.dim > 0 && len(r.Values) != s.dim {
			return fmt.Errorf("record %s has dimension %d, store expects %d", r.ID, len(r.Values), s.dim)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}
		if _, err := tx.Exec(ctx, upsertVectorSQL, namespace, r.ID, pgvector.NewVector(r.Values), meta); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query returns the topK nearest vectors by cosine similarity.
func (s *VectorStore) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
	includeMetadata bool,
) ([]models.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	metaCol := "metadata"
	if !includeMetadata {
		metaCol = "NULL::jsonb"
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(queryVectorSQL, metaCol), namespace, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var (
			m   models.Match
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &raw); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
