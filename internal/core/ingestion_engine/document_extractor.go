package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

const (
	mimePDF   = "application/pdf"
	mimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePlain = "text/plain"
)

var _ core.PageExtractor = (*PageBlockExtractor)(nil)

// PageBlockExtractor turns PDF, DOCX and plain text files into page blocks.
// PDF pages are grouped PagesPerBlock at a time; flat formats yield one block.
type PageBlockExtractor struct {
	PagesPerBlock  int
	useReadability bool
}

func NewPageBlockExtractor(pagesPerBlock int, useReadability bool) *PageBlockExtractor {
	if pagesPerBlock <= 0 {
		pagesPerBlock = 5
	}
	return &PageBlockExtractor{PagesPerBlock: pagesPerBlock, useReadability: useReadability}
}

// DetectType sniffs the content and falls back to the file extension when
// the sniffed type is a generic container.
func DetectType(data []byte, fileName string) string {
	m := mimetype.Detect(data)
	for mt := m; mt != nil; mt = mt.Parent() {
		switch {
		case mt.Is(mimePDF):
			return mimePDF
		case mt.Is(mimeDOCX):
			return mimeDOCX
		}
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".txt", ".md":
		return mimePlain
	}
	for mt := m; mt != nil; mt = mt.Parent() {
		if mt.Is(mimePlain) {
			return mimePlain
		}
	}
	return m.String()
}

func (e *PageBlockExtractor) Extract(ctx context.Context, data []byte, fileName string) ([]models.PageBlock, error) {
	log := logger.FromContext(ctx).With("file", fileName)

	var (
		blocks []models.PageBlock
		err    error
	)
	switch kind := DetectType(data, fileName); kind {
	case mimePDF:
		blocks, err = e.extractPDF(data)
		if err != nil || blocksEmpty(blocks) {
			log.Warn("pdf page reader failed, falling back to docconv", "error", err)
			blocks, err = e.convertFlat(data, mimePDF)
		}
	case mimeDOCX:
		var text string
		text, _, err = docconv.ConvertDocx(bytes.NewReader(data))
		blocks = []models.PageBlock{{Text: text, PageStart: 1, PageEnd: 1}}
	case mimePlain:
		blocks = []models.PageBlock{{Text: string(data), PageStart: 1, PageEnd: 1}}
	default:
		return nil, extractionErrorf("unsupported file type %q for %s", kind, fileName)
	}
	if err != nil {
		return nil, extractionErrorf("extract %s: %v", fileName, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := blocks[:0]
	for _, b := range blocks {
		if b.Text = normalizeText(b.Text); b.Text != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, extractionErrorf("no text extracted from %s", fileName)
	}
	log.Debug("document extracted", "blocks", len(out), "pages", out[len(out)-1].PageEnd)
	return out, nil
}

// extractPDF reads pages in order and groups them into fixed windows.
// The pdf library panics on some malformed files, so panics become errors.
func (e *PageBlockExtractor) extractPDF(data []byte) (blocks []models.PageBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			blocks, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	total := r.NumPage()
	for start := 1; start <= total; start += e.PagesPerBlock {
		end := min(start+e.PagesPerBlock-1, total)
		var pages []string
		for i := start; i <= end; i++ {
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			pages = append(pages, pageText(p))
		}
		blocks = append(blocks, models.PageBlock{
			Text:      strings.Join(pages, "\n\n"),
			PageStart: start,
			PageEnd:   end,
		})
	}
	return blocks, nil
}

// pageText rebuilds lines from positioned text runs.
func pageText(p pdf.Page) string {
	var (
		b     strings.Builder
		lastY = math.NaN()
	)
	for _, t := range p.Content().Text {
		if !math.IsNaN(lastY) && math.Abs(t.Y-lastY) > 1 {
			b.WriteByte('\n')
		}
		lastY = t.Y
		b.WriteString(t.S)
	}
	return b.String()
}

func (e *PageBlockExtractor) convertFlat(data []byte, mime string) ([]models.PageBlock, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mime, e.useReadability)
	if err != nil {
		return nil, err
	}
	return []models.PageBlock{{Text: res.Body, PageStart: 1, PageEnd: 1}}, nil
}

func blocksEmpty(blocks []models.PageBlock) bool {
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) != "" {
			return false
		}
	}
	return true
}

// normalizeText unifies line endings and trims trailing spaces per line.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
