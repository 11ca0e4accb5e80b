package ingestion_engine

import (
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// SemanticParams sizes the semantic chunker, in characters.
type SemanticParams struct {
	MaxChunkSize    int
	TargetChunkSize int
	Overlap         int
	MinChunkSize    int
}

var (
	ManualParams   = SemanticParams{MaxChunkSize: 2000, TargetChunkSize: 1200, Overlap: 150, MinChunkSize: 100}
	StandardParams = SemanticParams{MaxChunkSize: 2500, TargetChunkSize: 1500, Overlap: 200, MinChunkSize: 200}
)

var (
	markdownHeaderRe = regexp.MustCompile(`^#{1,6}[ \t]+\S`)
	labelHeaderRe    = regexp.MustCompile(`(?i)^(?:chapter|section|part|appendix)[ \t]+[\w.]+`)
	numberedHeaderRe = regexp.MustCompile(`^\d{1,2}(?:\.\d{1,2})*\.?[ \t]+\p{Lu}`)
	capsHeaderRe     = regexp.MustCompile(`^\p{Lu}[\p{Lu}\d ,&/()'-]{3,}$`)
)

// minSectionHeaders is the header count at which a block is split into sections.
const minSectionHeaders = 3

type docStructure struct {
	headers int
	lists   int
	table   bool
}

type section struct {
	title string
	text  string
}

// SemanticChunker packs paragraphs into size-bounded chunks, splitting
// header-dense blocks into sections first. manual and standard documents
// share it with different SemanticParams.
type SemanticChunker struct {
	name     string
	params   SemanticParams
	splitter textsplitter.RecursiveCharacter
}

func NewSemanticChunker(name string, p SemanticParams) *SemanticChunker {
	return &SemanticChunker{
		name:   name,
		params: p,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(p.TargetChunkSize),
			textsplitter.WithChunkOverlap(0),
			textsplitter.WithSeparators([]string{"\n", ". ", "; ", " ", ""}),
		),
	}
}

func (s *SemanticChunker) Name() string { return s.name }

func (s *SemanticChunker) Chunk(blocks []models.PageBlock) []models.Chunk {
	var drafts []draft
	for _, blk := range blocks {
		text := strings.ReplaceAll(blk.Text, "\r\n", "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections := []section{{text: text}}
		if detectStructure(text).headers >= minSectionHeaders {
			sections = splitSections(text)
		}
		for _, sec := range sections {
			drafts = append(drafts, s.chunkSection(sec, blk)...)
		}
	}
	return finalizeDrafts(mergeShortDrafts(drafts, s.params.MinChunkSize, s.params.MaxChunkSize))
}

func (s *SemanticChunker) chunkSection(sec section, blk models.PageBlock) []draft {
	text := strings.TrimSpace(sec.text)
	if text == "" {
		return nil
	}
	mk := func(t string, ct models.ChunkType) draft {
		if listDominant(t) {
			ct = models.ChunkTypeList
		}
		return draft{text: t, pageStart: blk.PageStart, pageEnd: blk.PageEnd, title: sec.title, chunkType: ct}
	}
	if runeLen(text) <= s.params.MaxChunkSize {
		ct := models.ChunkTypeStandard
		if sec.title != "" {
			ct = models.ChunkTypeSection
		}
		return []draft{mk(text, ct)}
	}
	pieces := s.packParagraphs(text)
	out := make([]draft, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, mk(p, models.ChunkTypeParagraph))
	}
	return out
}

// packParagraphs groups blank-line paragraphs up to the target size, seeding
// each new chunk with an overlap from the previous one.
func (s *SemanticChunker) packParagraphs(text string) []string {
	p := s.params
	var units []string
	for _, para := range splitParagraphs(text) {
		if runeLen(para) > p.MaxChunkSize {
			units = append(units, s.splitOversized(para)...)
			continue
		}
		units = append(units, para)
	}

	var (
		out    []string
		cur    []string
		curLen int
	)
	for _, u := range units {
		ulen := runeLen(u)
		if len(cur) == 0 {
			cur, curLen = []string{u}, ulen
			continue
		}
		next := curLen + 2 + ulen
		if next <= p.TargetChunkSize || (curLen < p.MinChunkSize && next <= p.MaxChunkSize) {
			cur, curLen = append(cur, u), next
			continue
		}
		out = append(out, strings.Join(cur, "\n\n"))
		if seed := s.overlapSeed(cur); seed != "" && runeLen(seed)+2+ulen <= p.MaxChunkSize {
			cur, curLen = []string{seed, u}, runeLen(seed)+2+ulen
		} else {
			cur, curLen = []string{u}, ulen
		}
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, "\n\n"))
	}
	return out
}

// overlapSeed prefers a short trailing paragraph holding a link, a list or a
// trailing colon. Otherwise it takes the tail of the chunk starting at the
// first sentence boundary inside the overlap window.
func (s *SemanticChunker) overlapSeed(paras []string) string {
	n := s.params.Overlap
	if n <= 0 || len(paras) == 0 {
		return ""
	}
	last := paras[len(paras)-1]
	if runeLen(last) <= n && (containsURL(last) || hasList(last) || strings.HasSuffix(last, ":")) {
		return last
	}
	rs := []rune(strings.Join(paras, "\n\n"))
	if len(rs) <= n {
		return ""
	}
	window := rs[len(rs)-n:]
	start := firstSentenceStart(window)
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(string(window[start:]))
}

// splitOversized breaks a paragraph larger than the max size on line,
// sentence and word boundaries, then hard-cuts whatever is still too long.
func (s *SemanticChunker) splitOversized(para string) []string {
	pieces, err := s.splitter.SplitText(para)
	if err != nil || len(pieces) == 0 {
		pieces = []string{para}
	}
	var out []string
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if runeLen(piece) > s.params.MaxChunkSize {
			out = append(out, hardSplit(piece, s.params.TargetChunkSize)...)
			continue
		}
		out = append(out, piece)
	}
	return out
}

func detectStructure(text string) docStructure {
	st := docStructure{table: hasTable(text)}
	for _, line := range strings.Split(text, "\n") {
		if isSectionHeader(line) {
			st.headers++
		}
	}
	st.lists = len(listLineRe.FindAllStringIndex(text, -1))
	return st
}

func isSectionHeader(line string) bool {
	line = strings.TrimSpace(line)
	n := runeLen(line)
	if n < 3 || n > 100 {
		return false
	}
	switch {
	case markdownHeaderRe.MatchString(line), labelHeaderRe.MatchString(line):
		return true
	case numberedHeaderRe.MatchString(line):
		return !isSentenceEnd([]rune(line)[n-1])
	case capsHeaderRe.MatchString(line):
		return strings.ContainsFunc(line, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	}
	return false
}

func splitSections(text string) []section {
	var (
		out   []section
		title string
		lines []string
	)
	flush := func() {
		if body := strings.TrimSpace(strings.Join(lines, "\n")); body != "" {
			out = append(out, section{title: title, text: body})
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if isSectionHeader(line) {
			flush()
			title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
			lines = []string{line}
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return out
}

func listDominant(text string) bool {
	total := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			total++
		}
	}
	return total > 1 && len(listLineRe.FindAllStringIndex(text, -1))*2 >= total
}
