package ingestion_engine

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var (
	urlRe       = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)
	wwwRe       = regexp.MustCompile(`(?i)\bwww\.[a-z0-9-]+(?:\.[a-z0-9-]+)+`)
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe     = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{2,4}\)[\s.-]?)?\d{2,4}[\s.-]\d{3,4}(?:[\s.-]\d{3,4})?`)
	paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)
	listLineRe  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*•▪◦]|\d{1,3}[.)]|[a-zA-Z][.)])[ \t]+\S`)
	tableRe     = regexp.MustCompile(`(?m)^[ \t]*\|.*\|[ \t]*$|^.*\S(?: {3,}|\t+)\S.*(?: {3,}|\t+)\S.*$`)
)

const trailingURLPunct = ".,;:!?'\""

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// contentHash returns the first 16 hex characters of the sha256 of the trimmed text.
func contentHash(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:])[:16]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(s string) []string {
	raw := paragraphRe.Split(strings.ReplaceAll(s, "\r\n", "\n"), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func extractLinks(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range urlRe.FindAllString(s, -1) {
		m = strings.TrimRight(m, trailingURLPunct)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func extractEmails(s string) []string {
	return uniqueMatches(emailRe.FindAllString(s, -1))
}

func extractPhones(s string) []string {
	var out []string
	for _, m := range phoneRe.FindAllString(s, -1) {
		digits := 0
		for _, r := range m {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= 7 && digits <= 15 {
			out = append(out, strings.TrimSpace(m))
		}
	}
	return uniqueMatches(out)
}

// extractWebsites returns hosts of the links plus bare www. references.
func extractWebsites(s string, links []string) []string {
	var hosts []string
	for _, l := range links {
		if u, err := url.Parse(l); err == nil && u.Host != "" {
			hosts = append(hosts, strings.ToLower(u.Host))
		}
	}
	for _, m := range wwwRe.FindAllString(s, -1) {
		hosts = append(hosts, strings.ToLower(m))
	}
	return uniqueMatches(hosts)
}

func uniqueMatches(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func containsURL(s string) bool {
	return urlRe.MatchString(s) || wwwRe.MatchString(s)
}

// isURLOnly reports whether s holds nothing but links and an optional short label.
func isURLOnly(s string) bool {
	s = strings.TrimSpace(s)
	if !containsURL(s) {
		return false
	}
	rest := wwwRe.ReplaceAllString(urlRe.ReplaceAllString(s, ""), "")
	rest = strings.TrimSpace(rest)
	return runeLen(rest) <= 40 && !strings.ContainsAny(rest, ".!?")
}

func hasList(s string) bool {
	return listLineRe.MatchString(s)
}

func hasTable(s string) bool {
	return tableRe.MatchString(s)
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// lastSentenceBoundary returns the rune offset just past the last sentence end
// in rs, or -1. A boundary is terminal punctuation followed by whitespace, or a newline.
func lastSentenceBoundary(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == '\n' {
			return i + 1
		}
		if isSentenceEnd(rs[i]) && (i == len(rs)-1 || unicode.IsSpace(rs[i+1])) {
			return i + 1
		}
	}
	return -1
}

// firstSentenceStart returns the offset where the first full sentence inside rs begins, or -1.
func firstSentenceStart(rs []rune) int {
	for i := 0; i < len(rs)-1; i++ {
		if rs[i] == '\n' || (isSentenceEnd(rs[i]) && unicode.IsSpace(rs[i+1])) {
			j := i + 1
			for j < len(rs) && unicode.IsSpace(rs[j]) {
				j++
			}
			if j < len(rs) {
				return j
			}
			return -1
		}
	}
	return -1
}

// truncateAtSentence caps s to limit runes, cutting at the last sentence boundary
// found after minFraction of the limit, else hard.
func truncateAtSentence(s string, limit int, minFraction float64) string {
	if limit <= 0 || runeLen(s) <= limit {
		return s
	}
	rs := []rune(s)[:limit]
	if b := lastSentenceBoundary(rs); b > 0 && float64(b) >= float64(limit)*minFraction {
		return strings.TrimSpace(string(rs[:b]))
	}
	return string(rs)
}

// hardSplit cuts s into pieces of at most size runes, preferring whitespace.
func hardSplit(s string, size int) []string {
	rs := []rune(s)
	var out []string
	for len(rs) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if unicode.IsSpace(rs[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(rs[:cut])); piece != "" {
			out = append(out, piece)
		}
		rs = rs[cut:]
	}
	if piece := strings.TrimSpace(string(rs)); piece != "" {
		out = append(out, piece)
	}
	return out
}

// joinBlocks concatenates block text with blank lines between blocks.
func joinBlocks(blocks []models.PageBlock) string {
	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(blk.Text)
	}
	return b.String()
}

func firstRunes(s string, n int) string {
	if n <= 0 || runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
