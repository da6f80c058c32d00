package statuta

import (
	"context"
	"fmt"
	"time"
)

// Document retrieves a previously scraped, extracted or uploaded
// document by ID. Documents live for the lifetime of the client.
// Returns ErrDocumentNotFound for unknown IDs.
func (c *Client) Document(ctx context.Context, id string) (doc Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("document", start, err) }()

	d, err := c.docSvc.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("document: %w", err)
	}
	return fromDocument(&d), nil
}

// ExtractPDF downloads a PDF and extracts its text into a document.
// title may be empty; the document is then titled after the PDF
// filename from the URL.
func (c *Client) ExtractPDF(ctx context.Context, pdfURL, title string) (doc Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("extract_pdf", start, err) }()

	d, err := c.docSvc.ExtractFromURL(ctx, pdfURL, title)
	if err != nil {
		return Document{}, fmt.Errorf("extract pdf: %w", err)
	}
	return fromDocument(&d), nil
}

// UploadPDF extracts text from caller-provided PDF bytes into a
// document. Returns ErrUnsupportedFormat when data is not a PDF.
func (c *Client) UploadPDF(ctx context.Context, filename, title string, data []byte) (doc Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload_pdf", start, err) }()

	d, err := c.docSvc.Upload(ctx, filename, title, data)
	if err != nil {
		return Document{}, fmt.Errorf("upload pdf: %w", err)
	}
	return fromDocument(&d), nil
}
