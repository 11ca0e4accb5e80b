package models

// ChunkKind tags the concrete shape behind a Chunk.
type ChunkKind string

const (
	ChunkKindFAQ      ChunkKind = "faq"
	ChunkKindStandard ChunkKind = "standard"
)

// ChunkType is the finer-grained label stored in vector metadata.
type ChunkType string

const (
	ChunkTypeFAQPair     ChunkType = "faq_pair"
	ChunkTypeCompleteFAQ ChunkType = "complete_faq"
	ChunkTypePartialFAQ  ChunkType = "partial_faq"
	ChunkTypeSection     ChunkType = "section"
	ChunkTypeParagraph   ChunkType = "paragraph"
	ChunkTypeList        ChunkType = "list"
	ChunkTypeStandard    ChunkType = "standard"
)

// Chunk is implemented by *FAQChunk and *SmartChunk only. Consumers switch on
// the concrete type; Kind lets them do it without a type assertion.
type Chunk interface {
	Kind() ChunkKind
	Content() string
	// EmbeddingInput is the text submitted to the embedding service.
	EmbeddingInput() string
	// Fingerprint feeds the vector id; empty means the content is used.
	Fingerprint() string
	isChunk()
}

type FAQChunk struct {
	Text             string    `json:"text"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	Links            []string  `json:"links"`
	DetailsLinks     []string  `json:"detailsLinks"`
	ChunkIndex       int       `json:"chunkIndex"`
	ChunkType        ChunkType `json:"chunkType"`
	IsComplete       bool      `json:"isComplete"`
	Keywords         []string  `json:"keywords"`
	PartIndex        *int      `json:"partIndex,omitempty"`
	OriginalQuestion string    `json:"originalQuestion,omitempty"`
}

func (c *FAQChunk) Kind() ChunkKind        { return ChunkKindFAQ }
func (c *FAQChunk) Content() string        { return c.Text }
func (c *FAQChunk) EmbeddingInput() string { return c.Question }
func (c *FAQChunk) Fingerprint() string    { return "" }
func (c *FAQChunk) isChunk()               {}

type SmartChunk struct {
	Text         string    `json:"text"`
	PageStart    int       `json:"pageStart"`
	PageEnd      int       `json:"pageEnd"`
	Hash         string    `json:"hash"`
	ChunkType    ChunkType `json:"chunkType"`
	SectionTitle string    `json:"sectionTitle,omitempty"`
	Links        []string  `json:"links"`
	Keywords     []string  `json:"keywords"`
	HasList      bool      `json:"hasList"`
	HasTable     bool      `json:"hasTable"`
	Term         string    `json:"term,omitempty"`
}

func (c *SmartChunk) Kind() ChunkKind        { return ChunkKindStandard }
func (c *SmartChunk) Content() string        { return c.Text }
func (c *SmartChunk) EmbeddingInput() string { return c.Text }
func (c *SmartChunk) Fingerprint() string    { return c.Hash }
func (c *SmartChunk) isChunk()               {}

var (
	_ Chunk = (*FAQChunk)(nil)
	_ Chunk = (*SmartChunk)(nil)
)
