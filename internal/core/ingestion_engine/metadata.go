package ingestion_engine

import (
	"math"
	"strings"
	"unicode"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Vector-store metadata caps, in characters.
const (
	MaxMetadataText     = 2000
	MaxMetadataQuestion = 500
	MaxMetadataAnswer   = 1500

	maxKeywords = 10
)

var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`about above after again against also although among because been before
		being below between both cannot could does doing down during each either else every from further
		have having here hers herself himself into itself just more most must myself neither only other
		ought ours ourselves over same shall should some such than that their theirs them themselves then
		there these they this those through under until upon very were what when where which while whom
		whose will with within without would your yours yourself yourselves please may might this`) {
		stopWords[w] = true
	}
}

// extractKeywords returns up to ten lowercase tokens longer than three
// characters, stop words removed, in order of first occurrence.
func extractKeywords(text string) []string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	var out []string
	seen := map[string]bool{}
	for _, tok := range strings.Fields(clean) {
		if runeLen(tok) <= 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// RecordContext is the document-level information stamped on every record.
type RecordContext struct {
	Namespace    string
	DocumentName string
	FileKey      string
	ContentHash  string
	DocType      models.DocType
	ChunkIndex   int
	TotalChunks  int
}

// BuildMetadata flattens a chunk into vector-store metadata. Text fields are
// capped to the store's per-record limits.
func BuildMetadata(c models.Chunk, rc RecordContext) map[string]any {
	text := c.Content()
	links := extractLinks(text)
	emails := extractEmails(text)
	phones := extractPhones(text)
	keywords := extractKeywords(text)

	md := map[string]any{
		"text":         truncateAtSentence(text, MaxMetadataText, 0.5),
		"source":       rc.DocumentName,
		"fileKey":      rc.FileKey,
		"namespace":    rc.Namespace,
		"contentHash":  rc.ContentHash,
		"documentType": rc.DocType.Lowered(),
		"strategy":     string(rc.DocType),
		"chunkIndex":   rc.ChunkIndex,
		"totalChunks":  rc.TotalChunks,
		"chunkKind":    string(c.Kind()),
		"links":        nonNil(links),
		"emails":       nonNil(emails),
		"phones":       nonNil(phones),
		"websites":     nonNil(extractWebsites(text, links)),
		"keywords":     nonNil(keywords),
		"hasLinks":     len(links) > 0,
		"hasContact":   len(emails) > 0 || len(phones) > 0,
		"hasList":      hasList(text),
		"hasTable":     hasTable(text),
		"confidence":   Confidence(c),
	}

	switch ch := c.(type) {
	case *models.FAQChunk:
		md["chunkType"] = string(ch.ChunkType)
		md["question"] = truncateAtSentence(ch.Question, MaxMetadataQuestion, 0.5)
		md["answer"] = truncateAtSentence(ch.Answer, MaxMetadataAnswer, 0.5)
		md["detailsLinks"] = nonNil(ch.DetailsLinks)
		md["isComplete"] = ch.IsComplete
		if ch.PartIndex != nil {
			md["partIndex"] = *ch.PartIndex
		}
		if ch.OriginalQuestion != "" {
			md["originalQuestion"] = truncateAtSentence(ch.OriginalQuestion, MaxMetadataQuestion, 0.5)
		}
	case *models.SmartChunk:
		md["chunkType"] = string(ch.ChunkType)
		md["pageStart"] = ch.PageStart
		md["pageEnd"] = ch.PageEnd
		md["hash"] = ch.Hash
		if ch.SectionTitle != "" {
			md["sectionTitle"] = ch.SectionTitle
		}
		if ch.Term != "" {
			md["term"] = ch.Term
		}
	}
	return md
}

// Confidence scores how well a chunk is expected to retrieve. FAQ pairs start
// at 0.8, glossary terms at 0.75 and semantic chunks at 0.7.
func Confidence(c models.Chunk) float64 {
	text := c.Content()
	score := 0.7
	switch ch := c.(type) {
	case *models.FAQChunk:
		score = 0.8
		if ch.IsComplete {
			score += 0.1
		}
	case *models.SmartChunk:
		if ch.Term != "" {
			score = 0.75
		}
		if ch.SectionTitle != "" {
			score += 0.1
		}
	}
	if containsURL(text) {
		score += 0.05
	}
	if len(extractEmails(text)) > 0 || len(extractPhones(text)) > 0 {
		score += 0.05
	}
	if len(extractKeywords(text)) >= 5 {
		score += 0.05
	}
	return math.Round(math.Min(score, 1)*100) / 100
}

// truncateForEmbedding caps input to the embedding budget, cutting at the last
// sentence boundary past 80% of the cap.
func truncateForEmbedding(s string, maxChars int) string {
	return truncateAtSentence(s, maxChars, 0.8)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
