// Package textproc holds text utilities for Indonesian legal documents:
// HTML stripping, whitespace normalization, keyword extraction and
// rule-based legal-term query expansion.
package textproc

import (
	"strings"

	"golang.org/x/net/html"
)

// legalTerms maps query words to related legal terminology. Used for
// rule-based query expansion when no language model is available.
var legalTerms = map[string][]string{
	"hak":        {"hak", "hak asasi"},
	"ulayat":     {"ulayat", "hak ulayat", "tanah ulayat", "tanah adat"},
	"tanah":      {"tanah", "pertanahan", "agraria"},
	"adat":       {"adat", "hukum adat", "masyarakat adat"},
	"hukum":      {"hukum", "peraturan", "undang-undang"},
	"undang":     {"undang-undang", "peraturan"},
	"peraturan":  {"peraturan", "regulasi"},
	"pemerintah": {"pemerintah", "pemerintahan"},
	"keputusan":  {"keputusan", "ketetapan"},
	"menteri":    {"menteri", "kementerian"},
	"presiden":   {"presiden", "kepresidenan"},
	"agraria":    {"agraria", "pertanahan"},
	"pertanahan": {"pertanahan", "tanah"},
	"masyarakat": {"masyarakat", "komunitas"},
	"hutan":      {"hutan", "kehutanan"},
	"wilayah":    {"wilayah", "area", "kawasan"},
	"daerah":     {"daerah", "area", "wilayah"},
	"provinsi":   {"provinsi", "daerah"},
	"kabupaten":  {"kabupaten", "daerah"},
	"kota":       {"kota", "perkotaan"},
}

// StripHTML extracts plain text from an HTML fragment, skipping script,
// style, nav, header, footer and aside subtrees. Falls back to the raw
// input with tags removed when parsing fails.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return NormalizeWhitespace(stripTagsRegexFree(s))
	}
	var b strings.Builder
	collectText(doc, &b)
	return NormalizeWhitespace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "aside":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// stripTagsRegexFree removes anything between < and > without parsing.
func stripTagsRegexFree(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeWhitespace collapses runs of whitespace into single spaces
// and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens text to at most max bytes, cutting at the last word
// boundary and appending "..." when something was dropped.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// Keywords extracts up to max keywords from a query: lowercased words
// longer than three characters, first occurrence order, deduplicated.
// max <= 0 means no limit.
func Keywords(query string, max int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// ExpandLegalQuery appends related legal terms for any query word found
// in the legal dictionary. Terms already present in the query are not
// repeated. Expansion order follows the dictionary entry order per
// matched word, so output is deterministic.
func ExpandLegalQuery(query string) string {
	lower := strings.ToLower(query)
	enhanced := query
	added := make(map[string]bool)
	for _, w := range strings.Fields(lower) {
		related, ok := legalTerms[strings.Trim(w, ".,;:!?\"'()[]")]
		if !ok {
			continue
		}
		for _, term := range related {
			if added[term] || strings.Contains(lower, term) {
				continue
			}
			added[term] = true
			enhanced += " " + term
		}
	}
	return enhanced
}

// LexicalOverlap scores how much of the query vocabulary appears in the
// text: matched query words over total query words, in [0, 1]. Words of
// three characters or fewer are ignored on the query side.
func LexicalOverlap(query, text string) float64 {
	qWords := Keywords(query, 0)
	if len(qWords) == 0 {
		return 0
	}
	lowerText := strings.ToLower(text)
	matched := 0
	for _, w := range qWords {
		if strings.Contains(lowerText, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(qWords))
}
