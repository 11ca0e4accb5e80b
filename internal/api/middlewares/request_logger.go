package middleware

import (
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// RequestLogger puts a request-scoped logger in the context and logs one
// line per request once it completes.
func RequestLogger(base *charmlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			log := base.With("request_id", chimw.GetReqID(r.Context()), "method", r.Method, "path", r.URL.Path)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), log)))

			log.Info("request handled", "status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(started))
		})
	}
}
