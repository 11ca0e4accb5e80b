// Package manifest keeps the per-namespace document manifest as a JSON array
// in the object store.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

const contentType = "application/json"

// Store is a read-modify-write manifest. One writer per namespace is assumed.
type Store struct {
	objects core.ObjectClient
	prefix  string
}

var _ core.ManifestStore = (*Store)(nil)

func NewStore(objects core.ObjectClient) *Store {
	return &Store{objects: objects, prefix: "manifests"}
}

// Key is the object key of a namespace's manifest.
func (s *Store) Key(namespace string) string {
	return path.Join(s.prefix, namespace, "manifest.json")
}

func (s *Store) Read(ctx context.Context, namespace string) ([]models.DocumentManifestEntry, error) {
	data, err := s.objects.GetObject(ctx, s.Key(namespace))
	if errors.Is(err, core.ErrObjectNotFound) {
		return []models.DocumentManifestEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", namespace, err)
	}
	entries := []models.DocumentManifestEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", namespace, err)
	}
	return entries, nil
}

// Write upserts entries by id, appending new ones. A single-entry write whose
// content hash is already present under another id fails with
// core.ErrDuplicateContent and leaves the manifest untouched.
func (s *Store) Write(ctx context.Context, namespace string, entries ...models.DocumentManifestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	current, err := s.Read(ctx, namespace)
	if err != nil {
		return err
	}

	if len(entries) == 1 {
		e := entries[0]
		for _, c := range current {
			if c.ContentHash == e.ContentHash && c.ID != e.ID {
				return fmt.Errorf("manifest %s: content %s already recorded as %s: %w",
					namespace, e.ContentHash, c.ID, core.ErrDuplicateContent)
			}
		}
	}

	byID := make(map[string]int, len(current))
	for i, c := range current {
		byID[c.ID] = i
	}
	for _, e := range entries {
		if e.Namespace == "" {
			e.Namespace = namespace
		}
		if i, ok := byID[e.ID]; ok {
			current[i] = e
			continue
		}
		byID[e.ID] = len(current)
		current = append(current, e)
	}
	sort.SliceStable(current, func(i, j int) bool { return current[i].CreatedAt.Before(current[j].CreatedAt) })

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest %s: %w", namespace, err)
	}
	if err := s.objects.PutObject(ctx, s.Key(namespace), data, contentType); err != nil {
		return fmt.Errorf("write manifest %s: %w", namespace, err)
	}
	logger.FromContext(ctx).Debug("manifest written", "namespace", namespace, "entries", len(current))
	return nil
}
