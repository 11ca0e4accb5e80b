package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

const maxUploadBytes = 52 << 20

type DocumentHandler struct {
	objects  core.ObjectClient
	manifest core.ManifestStore
	ingestor ingestion_engine.Ingestor
	newID    func() string
}

func NewDocumentHandler(objects core.ObjectClient, manifest core.ManifestStore, ing ingestion_engine.Ingestor) *DocumentHandler {
	return &DocumentHandler{objects: objects, manifest: manifest, ingestor: ing, newID: uuid.NewString}
}

type UploadResponse struct {
	Namespace string `json:"namespace"`
	FileKey   string `json:"fileKey"`
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	Queued    bool   `json:"queued"`
}

// UploadDocument stores the file under <namespace>/<id>/<file>. With
// async=true a full ingestion is queued on the driver.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	namespace := strings.TrimSpace(r.URL.Query().Get("namespace"))
	if !validNamespace(namespace) {
		writeError(w, r, http.StatusBadRequest, "namespace query parameter is required and must not contain slashes")
		return
	}
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	key := fmt.Sprintf("%s/%s/%s", namespace, h.newID(), fileName)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	url, err := h.objects.UploadFile(uploadCtx, key, file, contentType)
	if err != nil {
		log.Error("upload failed", "file_key", key, "error", err)
		writeError(w, r, http.StatusBadGateway, "upload failed")
		return
	}
	log.Info("document uploaded", "namespace", namespace, "file_key", key, "size", header.Size)

	resp := UploadResponse{Namespace: namespace, FileKey: key, FileName: fileName, URL: url}
	if async && h.ingestor != nil {
		req := ingestion_engine.IngestRequest{
			Namespace:    namespace,
			FileKey:      key,
			FileName:     fileName,
			DocumentType: r.URL.Query().Get("documentType"),
		}
		if err := h.ingestor.Enqueue(req); err != nil {
			log.Error("enqueue ingestion failed", "file_key", key, "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "ingestion queue unavailable")
			return
		}
		resp.Queued = true
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

// ListDocuments returns the namespace manifest.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	if !validNamespace(namespace) {
		writeError(w, r, http.StatusBadRequest, "invalid namespace")
		return
	}
	entries, err := h.manifest.Read(r.Context(), namespace)
	if err != nil {
		logger.FromContext(r.Context()).Error("read manifest failed", "namespace", namespace, "error", err)
		writeError(w, r, http.StatusBadGateway, "manifest unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func validNamespace(ns string) bool {
	return ns != "" && len(ns) <= 128 && !strings.ContainsAny(ns, `/\`)
}
