package ingestion_engine

import (
	"strings"
	"unicode"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// GlossaryChunker pairs short heading lines with the paragraphs under them.
type GlossaryChunker struct {
	MaxHeadingLen int
	MinChunkLen   int
}

func NewGlossaryChunker() *GlossaryChunker {
	return &GlossaryChunker{MaxHeadingLen: 80, MinChunkLen: 20}
}

func (g *GlossaryChunker) Name() string { return "glossary" }

type glossaryTerm struct {
	term      string
	body      []string
	pageStart int
	pageEnd   int
}

func (g *GlossaryChunker) Chunk(blocks []models.PageBlock) []models.Chunk {
	var (
		drafts []draft
		cur    *glossaryTerm
	)
	flush := func() {
		if cur == nil {
			return
		}
		text := cur.term
		body := strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(cur.body, "\n"), "\n\n"))
		if body != "" {
			text += "\n" + body
		}
		drafts = append(drafts, draft{
			text:      text,
			pageStart: cur.pageStart,
			pageEnd:   cur.pageEnd,
			title:     cur.term,
			term:      cur.term,
			chunkType: models.ChunkTypeParagraph,
		})
		cur = nil
	}

	for _, blk := range blocks {
		for _, line := range strings.Split(strings.ReplaceAll(blk.Text, "\r\n", "\n"), "\n") {
			line = strings.TrimSpace(line)
			if g.isHeading(line) {
				flush()
				cur = &glossaryTerm{term: line, pageStart: blk.PageStart, pageEnd: blk.PageEnd}
				continue
			}
			// Lines before the first heading are preamble.
			if cur == nil {
				continue
			}
			cur.body = append(cur.body, line)
			if line != "" {
				cur.pageEnd = blk.PageEnd
			}
		}
	}
	flush()

	return finalizeDrafts(mergeShortDrafts(drafts, g.MinChunkLen, 0))
}

func (g *GlossaryChunker) isHeading(line string) bool {
	if line == "" || runeLen(line) >= g.MaxHeadingLen {
		return false
	}
	rs := []rune(line)
	if strings.ContainsRune(".!?,;:", rs[len(rs)-1]) {
		return false
	}
	if strings.HasPrefix(line, "Page ") || strings.HasPrefix(strings.ToLower(line), "http") {
		return false
	}
	if !unicode.IsLetter(rs[0]) && !unicode.IsDigit(rs[0]) {
		return false
	}
	return !containsURL(line) && !listLineRe.MatchString(line)
}
