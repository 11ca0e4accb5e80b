package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// IngestHandler exposes one orchestrator invocation. Callers loop on the
// continuation fields of the response until completed is true.
type IngestHandler struct {
	invoker ingestion_engine.Invoker
}

func NewIngestHandler(invoker ingestion_engine.Invoker) *IngestHandler {
	return &IngestHandler{invoker: invoker}
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestion_engine.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, &ingestion_engine.IngestResponse{
			Phase:   ingestion_engine.PhaseFailed,
			Message: "invalid request body",
			Error: &ingestion_engine.ErrorDetail{
				Category: ingestion_engine.CategoryValidation,
				Detail:   err.Error(),
			},
		})
		return
	}

	resp, err := h.invoker.Ingest(r.Context(), req)
	if err != nil {
		cat := ingestion_engine.CategoryOf(err)
		logger.FromContext(r.Context()).Warn("ingest invocation failed", "category", cat, "file_key", req.FileKey)
		writeJSON(w, r, StatusFor(cat), resp)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// StatusFor maps a failure category to its HTTP status.
func StatusFor(cat ingestion_engine.Category) int {
	switch cat {
	case ingestion_engine.CategoryValidation:
		return http.StatusBadRequest
	case ingestion_engine.CategoryExtraction:
		return http.StatusUnprocessableEntity
	case ingestion_engine.CategoryTransient:
		return http.StatusBadGateway
	case ingestion_engine.CategoryTimeout:
		return http.StatusGatewayTimeout
	case ingestion_engine.CategoryDuplicate:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
