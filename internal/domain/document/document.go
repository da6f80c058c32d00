package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 524288 // 512KB

// ID prefixes by origin. Scraped pages, extracted PDFs and user uploads
// share one store, the prefix tells them apart.
const (
	PrefixScraped  = "doc"
	PrefixPDF      = "pdf"
	PrefixUploaded = "upload"
)

// Document is a legal document aggregate (immutable value object).
// Content holds the full extracted text; the remaining fields carry the
// listing metadata captured at scrape time.
type Document struct {
	id        string
	title     string
	sourceURL string
	docType   string
	date      string
	preview   string
	content   string
	pdfURL    string
	page      int
}

// MakeID derives a content-addressed identifier: prefix, underscore,
// first 16 hex chars of the SHA-256 of the content. Equal content from
// the same origin always maps to the same ID.
func MakeID(prefix, content string) string {
	sum := sha256.Sum256([]byte(content))
	return prefix + "_" + hex.EncodeToString(sum[:])[:16]
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-128 chars. Content: non-empty, max 512KB.
// Title falls back to "Untitled" when blank so listings stay renderable.
func New(id, title, sourceURL, docType, date, preview, content string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 128 {
		return Document{}, fmt.Errorf("document ID too long (max 128)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if title == "" {
		title = "Untitled"
	}
	if docType == "" {
		docType = "Unknown Type"
	}
	if date == "" {
		date = "Unknown Date"
	}

	return Document{
		id:        id,
		title:     title,
		sourceURL: sourceURL,
		docType:   docType,
		date:      date,
		preview:   preview,
		content:   content,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, sourceURL, docType, date, preview, content, pdfURL string, page int,
) Document {
	return Document{
		id: id, title: title, sourceURL: sourceURL, docType: docType,
		date: date, preview: preview, content: content, pdfURL: pdfURL, page: page,
	}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Title returns the document title from the search listing.
func (d Document) Title() string { return d.title }

// SourceURL returns the page or PDF location the content came from.
func (d Document) SourceURL() string { return d.sourceURL }

// DocType returns the regulation type, e.g. "Undang-undang (UU)".
// PDF-sourced documents carry a " (PDF)" suffix.
func (d Document) DocType() string { return d.docType }

// Date returns the issue date as shown on the listing.
func (d Document) Date() string { return d.date }

// Preview returns the listing snippet, may be empty.
func (d Document) Preview() string { return d.preview }

// Content returns the full extracted document text.
func (d Document) Content() string { return d.content }

// PDFURL returns the source PDF location when the content was pulled
// from a PDF, empty otherwise.
func (d Document) PDFURL() string { return d.pdfURL }

// Page returns the 1-based search result page the document was found on,
// 0 for documents that did not come from a listing.
func (d Document) Page() int { return d.page }

// WithPage returns a copy with the search result page set.
func (d Document) WithPage(page int) Document {
	c := d
	c.page = page
	return c
}

// WithPDFSource returns a copy marked as PDF-sourced: the source URL
// points at the PDF and the type gains a " (PDF)" suffix.
func (d Document) WithPDFSource(pdfURL string) Document {
	c := d
	c.pdfURL = pdfURL
	c.sourceURL = pdfURL
	c.docType = d.docType + " (PDF)"
	return c
}

// WithPDFURL returns a copy with the source PDF location set, leaving
// the type untouched.
func (d Document) WithPDFURL(pdfURL string) Document {
	c := d
	c.pdfURL = pdfURL
	return c
}
