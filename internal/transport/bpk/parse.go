package bpk

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/santara-labs/statuta/internal/textproc"
)

// minContentChars is the minimum detail-page text length accepted as a
// regulation body; anything shorter triggers the PDF fallback.
const minContentChars = 200

// selectorHitChars is the minimum text length for a content selector to
// count as a hit in the cascade.
const selectorHitChars = 100

// paragraphMinChars filters boilerplate out of the paragraph fallback.
const paragraphMinChars = 20

// Listing markup cascades, newest site layout first.
var (
	itemSelectors = []string{
		".card",
		".card-body",
		".search-result",
		".search-result-item",
		".row .col-md-12",
	}
	titleSelectors = []string{
		"h3.fw-bold.text-gray-800.mb-5 a",
		"h3 a",
		".fw-bold.text-gray-800 a",
		`a[href*="/Home/Detail/"]`,
		"a",
	}
	contentSelectors = []string{
		".card-body",
		"main .container",
		".document-content",
		".content",
		"article",
		"#mainContent",
		".detail-content",
	}
)

// listingItem is one entry of a search results page.
type listingItem struct {
	title   string
	href    string
	docType string
	date    string
	preview string
}

// findResultItems locates result entries on a listing page. matched
// reports whether any candidate markup was found at all; pagination
// stops when a page has none.
func findResultItems(doc *goquery.Document) (items []listingItem, matched bool) {
	for _, sel := range itemSelectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		matched = true
		found.Each(func(_ int, s *goquery.Selection) {
			if item, ok := parseItem(s); ok {
				items = append(items, item)
			}
		})
		return items, matched
	}

	// Last resort: treat bare detail links as entries
	links := doc.Find(`a[href*="/Home/Detail/"]`)
	links.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		items = append(items, listingItem{
			title: textproc.NormalizeWhitespace(a.Text()),
			href:  href,
		})
	})
	return items, links.Length() > 0
}

// parseItem extracts title, detail link and metadata from one entry.
func parseItem(s *goquery.Selection) (listingItem, bool) {
	var title, href string
	for _, sel := range titleSelectors {
		s.Find(sel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			h, ok := a.Attr("href")
			if !ok || !isDetailLink(h) {
				return true
			}
			title = textproc.NormalizeWhitespace(a.Text())
			href = h
			return false
		})
		if href != "" {
			break
		}
	}
	if href == "" {
		return listingItem{}, false
	}

	item := listingItem{title: title, href: href}

	meta := s.Find(".text-gray-600 span, .text-muted span, small, .card-text small")
	if meta.Length() == 0 {
		meta = s.Find(".search-result-item-meta span")
	}
	if meta.Length() > 0 {
		item.docType = textproc.NormalizeWhitespace(meta.Eq(0).Text())
	}
	if meta.Length() > 1 {
		item.date = textproc.NormalizeWhitespace(meta.Eq(1).Text())
	}

	preview := s.Find(".card-text").FilterFunction(func(_ int, p *goquery.Selection) bool {
		return p.Find("small").Length() == 0
	}).First()
	if preview.Length() == 0 {
		preview = s.Find(".search-result-item-preview").First()
	}
	item.preview = textproc.NormalizeWhitespace(preview.Text())

	return item, true
}

func isDetailLink(href string) bool {
	return href != "" &&
		(strings.Contains(href, "/Home/Detail/") || strings.Contains(href, "/Details/"))
}

// extractContent pulls the regulation text out of a detail page:
// selector cascade first, then all paragraphs, then the whole body.
func extractContent(doc *goquery.Document) string {
	var content string
	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t := blockText(el); len(t) > selectorHitChars {
			content = t
			break
		}
	}

	if len(content) < minContentChars {
		paras := doc.Find("p")
		if paras.Length() == 0 {
			paras = doc.Find(".card-text")
		}
		if paras.Length() == 0 {
			paras = doc.Find("div > div")
		}
		var parts []string
		paras.Each(func(_ int, p *goquery.Selection) {
			t := textproc.NormalizeWhitespace(p.Text())
			if len(t) > paragraphMinChars {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			content = strings.Join(parts, "\n\n")
		}
	}

	if len(content) < minContentChars {
		content = blockText(doc.Find("body"))
	}

	return content
}

// findPDFLinks collects absolute, deduplicated .pdf hrefs from a page,
// resolved against the page URL.
func findPDFLinks(doc *goquery.Document, pageURL *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageURL.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})

	return links
}

// hasNextPage reports whether the listing links a further page.
func hasNextPage(doc *goquery.Document) bool {
	if doc.Find(".pagination .next:not(.disabled)").Length() > 0 {
		return true
	}
	return doc.Find(".pagination .page-item:not(.active):not(.disabled) .page-link").Length() > 0
}

// Block-level tags that end a text run.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "table": true, "ul": true, "ol": true,
}

// blockText renders a selection to text, one line per block element,
// skipping script and style subtrees.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeNodeText(n, &b)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if ln = textproc.NormalizeWhitespace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

func writeNodeText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(c, b)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteString("\n")
	}
}
