package chi

import (
	"fmt"
	"time"

	domdoc "github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

// Error codes carried in the ErrorResponse body.
const (
	CodeBadRequest        = "bad_request"
	CodeValidationFailed  = "validation_failed"
	CodeUnauthorized      = "unauthorized"
	CodeDocumentNotFound  = "document_not_found"
	CodeUnsupportedFormat = "unsupported_format"
	CodeExtractionFailed  = "extraction_failed"
	CodeSourceUnreachable = "source_unreachable"
	CodeParseFailed       = "parse_failed"
	CodeQuotaExceeded     = "quota_exceeded"
	CodeProviderError     = "provider_error"
	CodeInternalError     = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// PreferencesRequest controls answer synthesis.
type PreferencesRequest struct {
	Verbosity  string `json:"verbosity,omitempty"`
	Format     string `json:"format,omitempty"`
	Citations  *bool  `json:"citations,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// SearchRequest is the POST /search/query and /search/report body.
type SearchRequest struct {
	Query       string              `json:"query"`
	MaxPages    int                 `json:"max_pages,omitempty"`
	MaxResults  int                 `json:"max_results,omitempty"`
	Preferences *PreferencesRequest `json:"preferences,omitempty"`
}

// DocumentResponse is one document in API responses.
type DocumentResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Type    string `json:"type"`
	Date    string `json:"date"`
	Preview string `json:"preview,omitempty"`
	Content string `json:"content"`
	PDFURL  string `json:"pdf_url,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// SearchResultItem is a document with its relevance placement.
type SearchResultItem struct {
	DocumentResponse
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// CitationResponse points a passage of the answer at a document.
type CitationResponse struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Source     string `json:"source"`
}

// SearchResponse is the assembled search payload.
type SearchResponse struct {
	OriginalQuery string             `json:"original_query"`
	EnhancedQuery string             `json:"enhanced_query"`
	Keywords      []string           `json:"keywords"`
	Documents     []SearchResultItem `json:"documents"`
	Response      string             `json:"response"`
	Citations     []CitationResponse `json:"citations,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// ExtractPDFRequest is the POST /documents/extract-pdf body.
type ExtractPDFRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// HealthResponse reports per-component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageMetrics is the consumption section of a usage report.
type UsageMetrics struct {
	ChatRequests      int `json:"chat_requests"`
	EmbeddingRequests int `json:"embedding_requests"`
	Tokens            int `json:"tokens"`
}

// BudgetStatus is the budget section of a usage report.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is the GET /usage payload.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider,omitempty"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// queryFromRequest validates a request body into a domain query.
// max_results inside preferences wins over the top-level field, matching
// clients that send only preferences.
func (s *Server) queryFromRequest(req SearchRequest) (query.Query, error) {
	prefs := query.DefaultPreferences()
	maxResults := req.MaxResults
	if req.Preferences != nil {
		if req.Preferences.Verbosity != "" {
			prefs.Verbosity = req.Preferences.Verbosity
		}
		if req.Preferences.Format != "" {
			prefs.Format = req.Preferences.Format
		}
		if req.Preferences.Citations != nil {
			prefs.Citations = *req.Preferences.Citations
		}
		if req.Preferences.MaxResults > 0 {
			maxResults = req.Preferences.MaxResults
		}
	}

	maxPages, maxResults := s.applyQueryDefaults(req.MaxPages, maxResults)
	q, err := query.New(req.Query, maxPages, maxResults, prefs)
	if err != nil {
		return query.Query{}, fmt.Errorf("build query: %w", err)
	}
	return q, nil
}

func documentToDTO(doc *domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:      doc.ID(),
		Title:   doc.Title(),
		Source:  doc.SourceURL(),
		Type:    doc.DocType(),
		Date:    doc.Date(),
		Preview: doc.Preview(),
		Content: doc.Content(),
		PDFURL:  doc.PDFURL(),
		Page:    doc.Page(),
	}
}

func resultToDTO(r *result.Result) SearchResultItem {
	doc := r.Document()
	return SearchResultItem{
		DocumentResponse: documentToDTO(&doc),
		Score:            r.Score(),
		Rank:             r.Rank(),
	}
}

func searchResponseToDTO(resp *result.Response) SearchResponse {
	results := resp.Results()
	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = resultToDTO(&results[i])
	}

	var citations []CitationResponse
	for _, c := range resp.Citations() {
		citations = append(citations, CitationResponse{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Source:     c.SourceURL,
		})
	}

	keywords := resp.Keywords()
	if keywords == nil {
		keywords = []string{}
	}

	return SearchResponse{
		OriginalQuery: resp.OriginalQuery(),
		EnhancedQuery: resp.EnhancedQuery(),
		Keywords:      keywords,
		Documents:     items,
		Response:      resp.Answer(),
		Citations:     citations,
		Timestamp:     resp.Timestamp(),
	}
}
