package ingestion_engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// Hint is an optional caller-supplied document type.
type Hint string

const (
	HintNone     Hint = ""
	HintFAQ      Hint = "faq"
	HintGlossary Hint = "glossary"
	HintManual   Hint = "manual"
)

var faqPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*question[ \t]*:[ \t]*\S`),
	regexp.MustCompile(`(?m)^[ \t]*[Qq][ \t]*:[ \t]*\S`),
	regexp.MustCompile(`(?m)^[ \t]*\d{1,3}[.)][ \t]+[^\n]*\?[ \t]*$`),
	regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+[^\n]*\?[ \t]*$`),
}

// Classifier thresholds. They are heuristics, so they are fields rather than constants.
type Classifier struct {
	FAQMinMatches         int
	GlossaryMinParagraphs int
	GlossaryMaxAvgLen     int
	ManualMinPages        int
}

func NewClassifier() *Classifier {
	return &Classifier{
		FAQMinMatches:         3,
		GlossaryMinParagraphs: 5,
		GlossaryMaxAvgLen:     500,
		ManualMinPages:        100,
	}
}

// Classify returns the effective document type for sample. It is a pure
// function of its arguments.
func (c *Classifier) Classify(sample string, hint Hint, totalPages int) models.DocType {
	switch hint {
	case HintFAQ:
		if c.faqMatches(sample) >= c.FAQMinMatches {
			return models.DocTypeFAQQA
		}
		return models.DocTypeFAQGlossary
	case HintGlossary:
		return models.DocTypeGlossary
	case HintManual:
		return models.DocTypeManual
	}

	if c.faqMatches(sample) >= c.FAQMinMatches {
		return models.DocTypeFAQQA
	}
	if c.looksLikeGlossary(sample) {
		return models.DocTypeGlossary
	}
	if totalPages >= c.ManualMinPages {
		return models.DocTypeManual
	}
	return models.DocTypeStandard
}

func (c *Classifier) faqMatches(sample string) int {
	n := 0
	for _, re := range faqPatterns {
		n += len(re.FindAllStringIndex(sample, -1))
	}
	return n
}

func (c *Classifier) looksLikeGlossary(sample string) bool {
	paras := splitParagraphs(sample)
	if len(paras) < c.GlossaryMinParagraphs {
		return false
	}
	total := 0
	for _, p := range paras {
		total += runeLen(p)
	}
	return total/len(paras) < c.GlossaryMaxAvgLen
}

// resolveDocType turns the request's documentType into an effective type.
// Hints are classified; effective types returned by a previous invocation are
// pinned so every invocation of a run chunks the same way.
func (c *Classifier) resolveDocType(requested, sample string, totalPages int) (models.DocType, error) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	switch Hint(requested) {
	case HintNone, HintFAQ, HintGlossary, HintManual:
		return c.Classify(sample, Hint(requested), totalPages), nil
	}
	if dt := models.DocType(requested); dt.Valid() {
		return dt, nil
	}
	return "", fmt.Errorf("unknown document type %q", requested)
}
