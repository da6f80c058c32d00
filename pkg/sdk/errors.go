package statuta

import "github.com/santara-labs/statuta/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery         = domain.ErrInvalidQuery
	ErrDocumentNotFound     = domain.ErrDocumentNotFound
	ErrSourceUnreachable    = domain.ErrSourceUnreachable
	ErrParseFailed          = domain.ErrParseFailed
	ErrUnsupportedFormat    = domain.ErrUnsupportedFormat
	ErrExtractionFailed     = domain.ErrExtractionFailed
	ErrLLMUnavailable       = domain.ErrLLMUnavailable
	ErrEmbeddingUnavailable = domain.ErrEmbeddingUnavailable
	ErrQuotaExceeded        = domain.ErrQuotaExceeded
)
