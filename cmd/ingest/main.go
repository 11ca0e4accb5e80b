package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/markdave123-py/contexta-ingest/internal/app"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

const previewRunes = 160

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		logger.Default().Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "contexta-ingest",
		Usage: "Chunk, embed and index documents into a vector namespace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Ingest a stored object, driving continuations until it completes",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "namespace", Aliases: []string{"n"}, Usage: "Target vector namespace", Required: true},
					&cli.StringFlag{Name: "file-key", Aliases: []string{"k"}, Usage: "Object key in the document bucket", Required: true},
					&cli.StringFlag{Name: "file-name", Usage: "Display name; defaults to the key's base name"},
					&cli.StringFlag{Name: "doc-type", Usage: "Hint (faq, glossary, manual) or an effective type"},
				},
			},
			{
				Name:   "inspect",
				Usage:  "Classify and chunk a local file and print a JSON summary",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to the document", Required: true},
					&cli.StringFlag{Name: "doc-type", Usage: "Hint (faq, glossary, manual) or an effective type"},
					&cli.IntFlag{Name: "preview", Usage: "Number of chunks to include in the output", Value: 5},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	lc := logger.DefaultConfig()
	lc.Level = logger.LogLevel(c.String("log-level"))
	lc.Output = c.App.ErrWriter
	logger.Init(lc)
	c.Context = logger.ContextWithLogger(c.Context, logger.Default())
	return nil
}

func runCommand(c *cli.Context) error {
	ctx := c.Context
	log := logger.FromContext(ctx)
	cfg := config.LoadConfig()

	pipeline, err := app.NewPipeline(ctx, cfg, app.LogProgress(log))
	if err != nil {
		return err
	}
	defer pipeline.Close()

	driver, err := ingestion_engine.NewDriver(ctx, pipeline.Orchestrator, 1)
	if err != nil {
		return err
	}
	defer driver.Release()

	req := ingestion_engine.IngestRequest{
		Namespace:    c.String("namespace"),
		FileKey:      c.String("file-key"),
		FileName:     c.String("file-name"),
		DocumentType: c.String("doc-type"),
	}
	if req.FileName == "" {
		req.FileName = filepath.Base(req.FileKey)
	}

	resp, err := driver.RunToCompletion(ctx, req)
	if resp != nil {
		if encErr := writeJSON(c, resp); encErr != nil {
			return encErr
		}
	}
	return err
}

type inspectSummary struct {
	File       string         `json:"file"`
	DocType    models.DocType `json:"docType"`
	Strategy   string         `json:"strategy"`
	TotalPages int            `json:"totalPages"`
	ChunkCount int            `json:"chunkCount"`
	Chunks     []chunkPreview `json:"chunks"`
}

type chunkPreview struct {
	Kind    models.ChunkKind `json:"kind"`
	Input   string           `json:"embeddingInput"`
	Content string           `json:"content"`
}

func inspectCommand(c *cli.Context) error {
	path := c.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	orch := ingestion_engine.NewOrchestrator(nil, nil, nil, nil, ingestion_engine.DefaultIngestConfig())
	plan, err := orch.Plan(c.Context, data, filepath.Base(path), c.String("doc-type"))
	if err != nil {
		return err
	}

	out := inspectSummary{
		File:       filepath.Base(path),
		DocType:    plan.DocType,
		Strategy:   plan.Result.Strategy,
		TotalPages: plan.TotalPages,
		ChunkCount: len(plan.Result.Chunks),
	}
	for _, ch := range plan.Result.Chunks[:min(c.Int("preview"), len(plan.Result.Chunks))] {
		out.Chunks = append(out.Chunks, chunkPreview{
			Kind:    ch.Kind(),
			Input:   truncate(ch.EmbeddingInput(), previewRunes),
			Content: truncate(ch.Content(), previewRunes),
		})
	}
	return writeJSON(c, out)
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
