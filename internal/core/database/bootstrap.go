package db

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

const schemaVersion = 1

// EnsureBootstrapped creates the vector schema unless the current version is
// already recorded. The stored dimension must match dim.
func EnsureBootstrapped(ctx context.Context, pool Pool, dim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()
	log := logger.FromContext(ctx)

	var exists bool
	err := pool.QueryRow(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'contexta_meta'
		)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		log.Info("bootstrapping vector schema", "version", schemaVersion, "dim", dim)
		return runBootstrap(ctxBoot, pool, dim)
	}

	var stored int
	err = pool.QueryRow(ctxBoot,
		`SELECT COALESCE((SELECT embed_dim FROM contexta_meta WHERE version = $1), 0)`, schemaVersion).Scan(&stored)
	if err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if stored == 0 {
		log.Info("bootstrapping vector schema", "version", schemaVersion, "dim", dim)
		return runBootstrap(ctxBoot, pool, dim)
	}
	if stored != dim {
		return fmt.Errorf("vector schema has dimension %d, configured %d", stored, dim)
	}
	log.Debug("vector schema up to date", "version", schemaVersion)
	return nil
}

func bootstrapSQL(dim int) (string, error) {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	return strings.ReplaceAll(string(sqlBytes), "{{EMBED_DIM}}", strconv.Itoa(dim)), nil
}

func runBootstrap(ctx context.Context, pool Pool, dim int) error {
	script, err := bootstrapSQL(dim)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.Exec(ctx, script); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
