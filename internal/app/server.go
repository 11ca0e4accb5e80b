package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/contexta-ingest/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/contexta-ingest/internal/api/middlewares"
	"github.com/markdave123-py/contexta-ingest/internal/config"
)

// Handlers groups the route handlers the server mounts.
type Handlers struct {
	Ingest    *handlers.IngestHandler
	Documents *handlers.DocumentHandler
	Query     *handlers.QueryHandler
	Metrics   http.Handler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *charmlog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, log *charmlog.Logger, h Handlers) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(appMiddleware.NewJWTMiddleware(cfg.JWTSecret))
		// An invocation may run for the full invocation timeout plus manifest/rollback work.
		api.Use(middleware.Timeout(cfg.InvocationTimeout + 30*time.Second))

		api.Post("/ingest", h.Ingest.Ingest)
		api.Post("/documents/upload", h.Documents.UploadDocument)
		api.Get("/namespaces/{namespace}/documents", h.Documents.ListDocuments)
		api.Post("/query", h.Query.Query)
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
