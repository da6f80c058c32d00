// Package pdf extracts plain text from PDF payloads, downloaded or
// uploaded. Regulation PDFs on government portals are frequently
// scanner output or carry broken font tables, so extraction is page
// tolerant: unreadable pages are skipped and the whole document fails
// only when no page yields text.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ledongthuc "github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/metrics"
)

// MaxDownloadSize caps remote PDF downloads.
const MaxDownloadSize = 20 << 20

const defaultTimeout = 30 * time.Second

var pdfMagic = []byte("%PDF-")

// Extractor downloads and parses PDF files.
type Extractor struct {
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// New creates an Extractor. userAgent may be empty; downloads then go
// out without a custom agent header.
func New(timeout time.Duration, userAgent string, logger *zap.Logger) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger.Named("pdf"),
	}
}

// WithHTTPClient replaces the download client. The caller owns timeouts.
func (e *Extractor) WithHTTPClient(c *http.Client) *Extractor {
	if c != nil {
		e.http = c
	}
	return e
}

// Extract parses PDF bytes into plain text with page markers.
func (e *Extractor) Extract(data []byte) (string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		metrics.PDFExtractionsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: missing %%PDF header", domain.ErrUnsupportedFormat)
	}

	text, err := extractText(data)
	if err != nil {
		metrics.PDFExtractionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.PDFExtractionsTotal.WithLabelValues("ok").Inc()
	return text, nil
}

// ExtractFromURL downloads a PDF and extracts its text.
func (e *Extractor) ExtractFromURL(ctx context.Context, pdfURL string) (string, error) {
	data, err := e.download(ctx, pdfURL)
	if err != nil {
		metrics.PDFExtractionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	e.logger.Debug("PDF downloaded",
		zap.String("url", pdfURL), zap.Int("bytes", len(data)))
	return e.Extract(data)
}

func (e *Extractor) download(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", domain.ErrExtractionFailed, pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download %s: status %d", domain.ErrExtractionFailed, pdfURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrExtractionFailed, err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("%w: PDF exceeds %d bytes", domain.ErrUnsupportedFormat, MaxDownloadSize)
	}
	return data, nil
}

// extractText walks the document page by page. The parser panics on
// some malformed files, so the whole walk runs under recover.
func extractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed PDF: %v", domain.ErrExtractionFailed, r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	extracted := 0
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)
		b.WriteString(pageText)
		extracted++
	}

	if extracted == 0 {
		return "", fmt.Errorf("%w: no extractable text in %d pages", domain.ErrExtractionFailed, pages)
	}
	return b.String(), nil
}
