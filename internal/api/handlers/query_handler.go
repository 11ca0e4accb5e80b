package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

const answerSystemPrompt = "You are an assistant answering only from the given document excerpts. " +
	"If the excerpts do not contain the answer, say 'I cannot find this in the documents.'"

type QueryHandler struct {
	embedder core.EmbeddingProvider
	vectors  core.VectorStore
	llm      core.LLMProvider
	validate *validator.Validate
}

// NewQueryHandler builds the retrieval handler. llm may be nil, in which case
// answer requests return matches only.
func NewQueryHandler(emb core.EmbeddingProvider, vectors core.VectorStore, llm core.LLMProvider) *QueryHandler {
	return &QueryHandler{embedder: emb, vectors: vectors, llm: llm, validate: validator.New()}
}

type QueryRequest struct {
	Namespace       string `json:"namespace" validate:"required,max=128,excludesall=/\\"`
	Query           string `json:"query" validate:"required,max=4000"`
	TopK            int    `json:"topK" validate:"omitempty,min=1,max=50"`
	IncludeMetadata *bool  `json:"includeMetadata,omitempty"`
	Answer          bool   `json:"answer,omitempty"`
}

type QueryResponse struct {
	Matches []models.Match `json:"matches"`
	Answer  string         `json:"answer,omitempty"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.TopK == 0 {
		req.TopK = 5
	}
	includeMeta := req.IncludeMetadata == nil || *req.IncludeMetadata

	vecs, err := h.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		log.Error("query embedding failed", "error", err)
		writeError(w, r, http.StatusBadGateway, "embedding failed")
		return
	}

	matches, err := h.vectors.Query(ctx, req.Namespace, vecs[0], req.TopK, includeMeta || req.Answer)
	if err != nil {
		log.Error("vector query failed", "namespace", req.Namespace, "error", err)
		writeError(w, r, http.StatusBadGateway, "search failed")
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	resp := QueryResponse{Matches: matches}
	if req.Answer && h.llm != nil && len(matches) > 0 {
		answer, err := h.llm.Generate(ctx, answerSystemPrompt, answerPrompt(req.Query, matches))
		if err != nil {
			log.Error("answer generation failed", "error", err)
			writeError(w, r, http.StatusBadGateway, "answer generation failed")
			return
		}
		resp.Answer = answer
	}
	if !includeMeta {
		for i := range resp.Matches {
			resp.Matches[i].Metadata = nil
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func answerPrompt(query string, matches []models.Match) string {
	var sb strings.Builder
	for _, m := range matches {
		text, _ := m.Metadata["text"].(string)
		if text == "" {
			continue
		}
		if src, ok := m.Metadata["source"].(string); ok && src != "" {
			fmt.Fprintf(&sb, "[%s]\n", src)
		}
		sb.WriteString(text)
		sb.WriteString("\n---\n")
	}
	return fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), query)
}
