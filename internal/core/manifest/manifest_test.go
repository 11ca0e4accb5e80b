package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

type memObjects struct {
	data   map[string][]byte
	puts   int
	getErr error
}

func (m *memObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.data[key]
	if !ok {
		return nil, core.ErrObjectNotFound
	}
	return d, nil
}

func (m *memObjects) PutObject(_ context.Context, key string, data []byte, _ string) error {
	m.puts++
	m.data[key] = data
	return nil
}

func (m *memObjects) DeleteObject(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memObjects) UploadFile(ctx context.Context, key string, r io.Reader, ct string) (string, error) {
	var b bytes.Buffer
	_, _ = io.Copy(&b, r)
	return key, m.PutObject(ctx, key, b.Bytes(), ct)
}

func entry(id, hash string, at time.Time) models.DocumentManifestEntry {
	return models.DocumentManifestEntry{
		ID: id, Source: id + ".pdf", ObjectKey: "hr/" + id + ".pdf", CreatedAt: at,
		ContentHash: hash, DocumentType: "standard", ChunkCount: 3,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Should read an empty list for a new namespace", func(t *testing.T) {
		s := NewStore(&memObjects{data: map[string][]byte{}})
		got, err := s.Read(ctx, "hr")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Should append entries and persist camelCase JSON", func(t *testing.T) {
		objs := &memObjects{data: map[string][]byte{}}
		s := NewStore(objs)
		require.NoError(t, s.Write(ctx, "hr", entry("a", "h1", t0)))
		require.NoError(t, s.Write(ctx, "hr", entry("b", "h2", t0.Add(time.Hour))))

		raw := objs.data["manifests/hr/manifest.json"]
		var generic []map[string]any
		require.NoError(t, json.Unmarshal(raw, &generic))
		require.Len(t, generic, 2)
		assert.Equal(t, "hr/a.pdf", generic[0]["objectKey"])
		assert.Equal(t, "hr", generic[0]["namespace"])
		assert.Equal(t, "h1", generic[0]["contentHash"])

		got, err := s.Read(ctx, "hr")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, []string{got[0].ID, got[1].ID})
	})

	t.Run("Should reject a single entry with a known content hash", func(t *testing.T) {
		objs := &memObjects{data: map[string][]byte{}}
		s := NewStore(objs)
		require.NoError(t, s.Write(ctx, "hr", entry("a", "h1", t0)))
		err := s.Write(ctx, "hr", entry("b", "h1", t0))
		assert.ErrorIs(t, err, core.ErrDuplicateContent)
		assert.Equal(t, 1, objs.puts)

		got, _ := s.Read(ctx, "hr")
		assert.Len(t, got, 1)
	})

	t.Run("Should keep namespaces apart", func(t *testing.T) {
		s := NewStore(&memObjects{data: map[string][]byte{}})
		require.NoError(t, s.Write(ctx, "hr", entry("a", "h1", t0)))
		require.NoError(t, s.Write(ctx, "legal", entry("a2", "h1", t0)))
		legal, _ := s.Read(ctx, "legal")
		assert.Len(t, legal, 1)
	})

	t.Run("Should upsert by id on multi-entry writes", func(t *testing.T) {
		s := NewStore(&memObjects{data: map[string][]byte{}})
		require.NoError(t, s.Write(ctx, "hr", entry("a", "h1", t0)))
		updated := entry("a", "h1", t0)
		updated.ChunkCount = 42
		require.NoError(t, s.Write(ctx, "hr", updated, entry("c", "h3", t0.Add(time.Minute))))

		got, _ := s.Read(ctx, "hr")
		require.Len(t, got, 2)
		assert.Equal(t, 42, got[0].ChunkCount)
		assert.Equal(t, "c", got[1].ID)
	})

	t.Run("Should surface storage errors", func(t *testing.T) {
		s := NewStore(&memObjects{data: map[string][]byte{}, getErr: errors.New("access denied")})
		_, err := s.Read(ctx, "hr")
		assert.ErrorContains(t, err, "access denied")
		assert.Error(t, s.Write(ctx, "hr", entry("a", "h1", t0)))
	})
}
