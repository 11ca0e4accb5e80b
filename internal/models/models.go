package models

import (
	"time"
)

// PageBlock is a window of extracted text tagged with its 1-based inclusive page range.
type PageBlock struct {
	Text      string `json:"text"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// DocType is the effective structural type a document is chunked as.
type DocType string

const (
	DocTypeFAQQA       DocType = "faq_qa"
	DocTypeFAQGlossary DocType = "faq_glossary"
	DocTypeGlossary    DocType = "glossary"
	DocTypeManual      DocType = "manual"
	DocTypeStandard    DocType = "standard"
)

// Valid reports whether d is one of the effective document types.
func (d DocType) Valid() bool {
	switch d {
	case DocTypeFAQQA, DocTypeFAQGlossary, DocTypeGlossary, DocTypeManual, DocTypeStandard:
		return true
	}
	return false
}

// Lowered is the projection stored in the manifest: faq, glossary, manual or standard.
func (d DocType) Lowered() string {
	switch d {
	case DocTypeFAQQA, DocTypeFAQGlossary:
		return "faq"
	case DocTypeGlossary:
		return "glossary"
	case DocTypeManual:
		return "manual"
	default:
		return "standard"
	}
}

// VectorRecord is one row of the namespaced vector store.
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a query hit returned by the vector store.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentManifestEntry records one fully ingested document within a namespace.
type DocumentManifestEntry struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	ObjectKey    string    `json:"objectKey"`
	CreatedAt    time.Time `json:"createdAt"`
	Namespace    string    `json:"namespace"`
	ContentHash  string    `json:"contentHash"`
	DocumentType string    `json:"documentType"`
	ChunkCount   int       `json:"chunkCount"`
}

// BatchCursor is the resumption state a caller round-trips between invocations.
type BatchCursor struct {
	StartBatchIndex  int     `json:"startBatchIndex"`
	TotalBatches     int     `json:"totalBatches"`
	BatchSize        int     `json:"batchSize"`
	EffectiveDocType DocType `json:"documentType"`
}

func (c BatchCursor) Done() bool {
	return c.StartBatchIndex >= c.TotalBatches
}
