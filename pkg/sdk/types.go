package statuta

import (
	"time"

	domdoc "github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

// SearchRequest describes one search. Only Query is required; zero
// values fall back to pipeline defaults (5 listing pages, 10 results,
// detailed simple-text answer with citations).
type SearchRequest struct {
	Query      string
	MaxPages   int
	MaxResults int

	// Answer synthesis preferences.
	Verbosity string // "concise" or "detailed"
	Format    string // "simple" or "technical"
	Citations *bool  // nil keeps the default (on)
}

// Document is a retrieved legal document.
type Document struct {
	ID      string
	Title   string
	Source  string // canonical detail page or PDF URL
	Type    string // "Undang-undang (UU)", "PDF Document", ...
	Date    string
	Preview string
	Content string
	PDFURL  string
	Page    int // listing page the document was found on, 0 for direct PDFs
}

// SearchResult is a document with its relevance placement.
type SearchResult struct {
	Document
	Score float64
	Rank  int
}

// Citation points a passage of the answer at a result document.
type Citation struct {
	DocumentID string
	Title      string
	Source     string
}

// SearchResponse is the assembled outcome of one search.
type SearchResponse struct {
	OriginalQuery string
	EnhancedQuery string
	Keywords      []string
	Documents     []SearchResult
	Answer        string
	Citations     []Citation
	Timestamp     time.Time
}

func toQuery(req SearchRequest) (query.Query, error) {
	prefs := query.DefaultPreferences()
	if req.Verbosity != "" {
		prefs.Verbosity = req.Verbosity
	}
	if req.Format != "" {
		prefs.Format = req.Format
	}
	if req.Citations != nil {
		prefs.Citations = *req.Citations
	}
	return query.New(req.Query, req.MaxPages, req.MaxResults, prefs)
}

func fromDocument(doc *domdoc.Document) Document {
	return Document{
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

func fromResponse(resp *result.Response) SearchResponse {
	results := resp.Results()
	docs := make([]SearchResult, len(results))
	for i := range results {
		doc := results[i].Document()
		docs[i] = SearchResult{
			Document: fromDocument(&doc),
			Score:    results[i].Score(),
			Rank:     results[i].Rank(),
		}
	}

	var citations []Citation
	for _, c := range resp.Citations() {
		citations = append(citations, Citation{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Source:     c.SourceURL,
		})
	}

	return SearchResponse{
		OriginalQuery: resp.OriginalQuery(),
		EnhancedQuery: resp.EnhancedQuery(),
		Keywords:      resp.Keywords(),
		Documents:     docs,
		Answer:        resp.Answer(),
		Citations:     citations,
		Timestamp:     resp.Timestamp(),
	}
}
