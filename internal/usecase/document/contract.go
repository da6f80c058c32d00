package document

import (
	"context"

	"github.com/santara-labs/statuta/internal/domain/document"
)

// Store persists and retrieves session documents.
type Store interface {
	Save(ctx context.Context, doc document.Document) error
	Get(ctx context.Context, id string) (document.Document, error)
}

// Extractor pulls plain text out of PDF payloads.
type Extractor interface {
	Extract(data []byte) (string, error)
	ExtractFromURL(ctx context.Context, pdfURL string) (string, error)
}
