package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/app"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger.Init(app.LoggerConfig(cfg))
	log := logger.Default()
	ctx = logger.ContextWithLogger(ctx, log)

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- application.Server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := application.Server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}
	log.Info("contexta-ingest stopped")
}
