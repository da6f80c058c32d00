package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a missing or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSourceUnreachable signals that a scraped site is down or refusing requests.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrParseFailed signals that an upstream page no longer matches the expected layout.
	ErrParseFailed = errors.New("page parse failed")
	// ErrUnsupportedFormat signals a non-PDF or corrupted upload.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtractionFailed signals an unreadable PDF payload.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrLLMUnavailable signals a chat completion provider failure.
	ErrLLMUnavailable = errors.New("llm provider unavailable")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrQuotaExceeded signals an exhausted LLM token budget.
	ErrQuotaExceeded = errors.New("llm token quota exceeded")
)

// SourceError wraps ErrSourceUnreachable with the source name and upstream status.
type SourceError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: source %q returned status %d", ErrSourceUnreachable.Error(), e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: source %q: %v", ErrSourceUnreachable.Error(), e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return ErrSourceUnreachable }

// NewSourceStatusError creates a SourceError for a non-success upstream status.
func NewSourceStatusError(source string, status int) error {
	return &SourceError{Source: source, StatusCode: status}
}

// NewSourceError creates a SourceError for a transport-level failure.
func NewSourceError(source string, err error) error {
	return &SourceError{Source: source, Err: err}
}
