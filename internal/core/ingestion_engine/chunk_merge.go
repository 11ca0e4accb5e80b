package ingestion_engine

import (
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// standaloneFloor is the shortest text kept when a short chunk has no neighbour.
const standaloneFloor = 10

// draft is a SmartChunk before merging, hashing and deduplication.
type draft struct {
	text      string
	pageStart int
	pageEnd   int
	title     string
	term      string
	chunkType models.ChunkType
}

func joinDrafts(a, b draft) draft {
	out := a
	out.text = strings.TrimSpace(a.text) + "\n\n" + strings.TrimSpace(b.text)
	if b.pageStart < out.pageStart || out.pageStart == 0 {
		out.pageStart = b.pageStart
	}
	if b.pageEnd > out.pageEnd {
		out.pageEnd = b.pageEnd
	}
	if out.title == "" {
		out.title = b.title
	}
	if out.term == "" {
		out.term = b.term
	}
	return out
}

func fitsWith(a, b draft, maxLen int) bool {
	return maxLen <= 0 || runeLen(a.text)+2+runeLen(b.text) <= maxLen
}

// mergeShortDrafts folds chunks shorter than minLen into a neighbour. The
// previous chunk is preferred when the result stays within maxLen, otherwise
// the short chunk is carried into the next one. URL-only fragments always
// join the previous chunk. maxLen <= 0 means unbounded.
func mergeShortDrafts(ds []draft, minLen, maxLen int) []draft {
	out := make([]draft, 0, len(ds))
	var pending *draft
	for _, d := range ds {
		if strings.TrimSpace(d.text) == "" {
			continue
		}
		if pending != nil {
			d = joinDrafts(*pending, d)
			pending = nil
		}
		short := runeLen(strings.TrimSpace(d.text)) < minLen
		if len(out) > 0 {
			last := &out[len(out)-1]
			if isURLOnly(d.text) || (short && fitsWith(*last, d, maxLen)) {
				*last = joinDrafts(*last, d)
				continue
			}
		}
		if short {
			carry := d
			pending = &carry
			continue
		}
		out = append(out, d)
	}
	if pending != nil {
		switch {
		case len(out) > 0:
			out[len(out)-1] = joinDrafts(out[len(out)-1], *pending)
		case runeLen(strings.TrimSpace(pending.text)) >= standaloneFloor:
			out = append(out, *pending)
		}
	}
	return out
}

// finalizeDrafts hashes each draft, drops repeated content and derives the
// per-chunk link, keyword and structure fields.
func finalizeDrafts(ds []draft) []models.Chunk {
	seen := make(map[string]bool, len(ds))
	out := make([]models.Chunk, 0, len(ds))
	for _, d := range ds {
		text := strings.TrimSpace(d.text)
		h := contentHash(text)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, &models.SmartChunk{
			Text:         text,
			PageStart:    d.pageStart,
			PageEnd:      d.pageEnd,
			Hash:         h,
			ChunkType:    d.chunkType,
			SectionTitle: d.title,
			Links:        extractLinks(text),
			Keywords:     extractKeywords(text),
			HasList:      hasList(text),
			HasTable:     hasTable(text),
			Term:         d.term,
		})
	}
	return out
}
