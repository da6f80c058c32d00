// Package document handles direct document operations outside the
// search pipeline: session store lookups and PDF extraction from a URL
// or an uploaded payload.
package document

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	domdoc "github.com/santara-labs/statuta/internal/domain/document"
)

// Default titles when the caller provides none.
const (
	defaultPDFTitle    = "PDF Document"
	defaultUploadTitle = "Uploaded PDF Document"
)

// Service handles document retrieval and PDF ingestion.
type Service struct {
	store     Store
	extractor Extractor
	logger    *zap.Logger
}

// New creates a document service.
func New(store Store, extractor Extractor, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		logger:    logger.Named("document"),
	}
}

// Get retrieves a session document by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %q: %w", id, err)
	}
	return doc, nil
}

// ExtractFromURL downloads a PDF, extracts its text and stores the
// result as a session document. The ID is content-addressed, so
// extracting the same PDF twice lands on the same document.
func (s *Service) ExtractFromURL(ctx context.Context, pdfURL, title string) (domdoc.Document, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return domdoc.Document{}, fmt.Errorf("%w: pdf url is required", domain.ErrInvalidQuery)
	}

	content, err := s.extractor.ExtractFromURL(ctx, pdfURL)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("extract %s: %w", pdfURL, err)
	}
	if title == "" {
		title = titleFromURL(pdfURL)
	}

	doc, err := domdoc.New(
		domdoc.MakeID(domdoc.PrefixPDF, content),
		title, pdfURL, "PDF Document", "", "", content,
	)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document: %w", err)
	}
	doc = doc.WithPDFURL(pdfURL)

	s.persist(ctx, doc)
	s.logger.Info("PDF extracted",
		zap.String("id", doc.ID()),
		zap.String("url", pdfURL),
		zap.Int("chars", len(content)),
	)
	return doc, nil
}

// Upload extracts text from an uploaded PDF payload and stores the
// result as a session document.
func (s *Service) Upload(ctx context.Context, filename, title string, data []byte) (domdoc.Document, error) {
	content, err := s.extractor.Extract(data)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("extract upload %q: %w", filename, err)
	}
	if title == "" {
		title = defaultUploadTitle
	}

	doc, err := domdoc.New(
		domdoc.MakeID(domdoc.PrefixUploaded, content),
		title, "uploaded:"+filename, "PDF Document", "", "", content,
	)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document: %w", err)
	}

	s.persist(ctx, doc)
	s.logger.Info("PDF uploaded",
		zap.String("id", doc.ID()),
		zap.String("filename", filename),
		zap.Int("chars", len(content)),
	)
	return doc, nil
}

// persist saves the document best-effort. The extracted content is
// already in hand, a store failure only costs the later lookup.
func (s *Service) persist(ctx context.Context, doc domdoc.Document) {
	if err := s.store.Save(ctx, doc); err != nil {
		s.logger.Warn("Failed to store document",
			zap.String("id", doc.ID()), zap.Error(err))
	}
}

// titleFromURL falls back to the PDF filename from the URL path.
func titleFromURL(pdfURL string) string {
	u, err := url.Parse(pdfURL)
	if err != nil || u.Path == "" {
		return defaultPDFTitle
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return defaultPDFTitle
	}
	return base
}
