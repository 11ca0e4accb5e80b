package ingestion_engine

import (
	"regexp"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// pairFamily locates question starts and the answer label inside each segment.
type pairFamily struct {
	name     string
	question *regexp.Regexp
	answer   *regexp.Regexp
}

var (
	labelledFamily = pairFamily{
		name:     "labelled",
		question: regexp.MustCompile(`(?im)^[ \t]*(?:\d{1,3}[.)][ \t]*)?question[ \t]*:`),
		answer:   regexp.MustCompile(`(?im)^[ \t]*answer[ \t]*:`),
	}
	shortFamily = pairFamily{
		name:     "short",
		question: regexp.MustCompile(`(?m)^[ \t]*(?:\d{1,3}[.)][ \t]*)?Q[ \t]*(?::|\.[ \t])`),
		answer:   regexp.MustCompile(`(?m)^[ \t]*A[ \t]*(?::|\.[ \t])`),
	}

	delimiterQuestionRe = regexp.MustCompile(`(?i)question[ \t]*:`)
	delimiterAnswerRe   = regexp.MustCompile(`(?i)answer[ \t]*:`)
	detailsLineRe       = regexp.MustCompile(`(?im)^[ \t]*(?:more[ \t]+)?details?[ \t]*:.*$`)
	blankRunRe          = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

type qaPair struct {
	question string
	answer   string
}

// FAQChunker pairs questions with answers. Each pair is one chunk and is
// never split further.
type FAQChunker struct {
	MinTextLen int
}

func NewFAQChunker() *FAQChunker {
	return &FAQChunker{MinTextLen: 10}
}

func (f *FAQChunker) Name() string { return "faq" }

func (f *FAQChunker) Chunk(blocks []models.PageBlock) []models.Chunk {
	pairs := f.extractPairs(joinBlocks(blocks))
	out := make([]models.Chunk, 0, len(pairs))
	for _, p := range pairs {
		text := "Question: " + p.question + "\nAnswer: " + p.answer
		if runeLen(text) < f.MinTextLen {
			continue
		}
		out = append(out, &models.FAQChunk{
			Text:         text,
			Question:     p.question,
			Answer:       p.answer,
			Links:        extractLinks(text),
			DetailsLinks: detailsLinks(p.answer),
			ChunkIndex:   len(out),
			ChunkType:    models.ChunkTypeCompleteFAQ,
			IsComplete:   true,
			Keywords:     extractKeywords(text),
		})
	}
	return out
}

// extractPairs tries the labelled family, then the short family, and falls
// back to splitting on every "Question:" when neither finds more than one pair.
func (f *FAQChunker) extractPairs(text string) []qaPair {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var best []qaPair
	for _, fam := range []pairFamily{labelledFamily, shortFamily} {
		pairs := fam.extract(text)
		if len(pairs) > 1 {
			return pairs
		}
		if len(pairs) > len(best) {
			best = pairs
		}
	}
	if fallback := delimiterPairs(text); len(fallback) > len(best) {
		return fallback
	}
	return best
}

func (fam pairFamily) extract(text string) []qaPair {
	starts := fam.question.FindAllStringIndex(text, -1)
	var out []qaPair
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		segment := text[loc[1]:end]
		a := fam.answer.FindStringIndex(segment)
		if a == nil {
			continue
		}
		if p, ok := newPair(segment[:a[0]], segment[a[1]:]); ok {
			out = append(out, p)
		}
	}
	return out
}

func delimiterPairs(text string) []qaPair {
	pieces := delimiterQuestionRe.Split(text, -1)
	var out []qaPair
	// pieces[0] precedes the first question label.
	for _, piece := range pieces[1:] {
		if a := delimiterAnswerRe.FindStringIndex(piece); a != nil {
			if p, ok := newPair(piece[:a[0]], piece[a[1]:]); ok {
				out = append(out, p)
			}
			continue
		}
		q, rest := splitQuestionLine(piece)
		if p, ok := newPair(q, rest); ok {
			out = append(out, p)
		}
	}
	return out
}

// splitQuestionLine takes text up to the first question mark, else the first line.
func splitQuestionLine(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '?'); i >= 0 && !strings.Contains(s[:i], "\n\n") {
		return s[:i+1], s[i+1:]
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func newPair(q, a string) (qaPair, bool) {
	q = strings.Join(strings.Fields(q), " ")
	a = strings.TrimSpace(blankRunRe.ReplaceAllString(a, "\n\n"))
	if q == "" || a == "" {
		return qaPair{}, false
	}
	return qaPair{question: q, answer: a}, true
}

// detailsLinks returns the links found on "Details:" lines of an answer.
func detailsLinks(answer string) []string {
	var out []string
	for _, line := range detailsLineRe.FindAllString(answer, -1) {
		out = append(out, extractLinks(line)...)
	}
	return uniqueMatches(out)
}
