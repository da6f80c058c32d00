package result

import (
	"fmt"
	"sort"
	"time"

	"github.com/santara-labs/statuta/internal/domain/document"
)

// Result is a single ranked search hit.
type Result struct {
	doc   document.Document
	score float64
	rank  int
}

// New creates a search result.
func New(doc document.Document, score float64, rank int) Result {
	return Result{doc: doc, score: score, rank: rank}
}

// Document returns the underlying document.
func (r *Result) Document() document.Document { return r.doc }

// Score returns the relevance score in [0, 1].
func (r *Result) Score() float64 { return r.score }

// Rank returns the 1-based rank position.
func (r *Result) Rank() int { return r.rank }

// Citation points a passage of the synthesized answer at a result document.
type Citation struct {
	DocumentID string
	Title      string
	SourceURL  string
}

// Response is the assembled outcome of one search.
type Response struct {
	originalQuery string
	enhancedQuery string
	keywords      []string
	results       []Result
	answer        string
	citations     []Citation
	timestamp     time.Time
}

// NewResponse assembles a search response. Every citation must reference
// a document present in the results.
func NewResponse(
	originalQuery, enhancedQuery string,
	keywords []string,
	results []Result,
	answer string,
	citations []Citation,
) (Response, error) {
	ids := make(map[string]bool, len(results))
	for i := range results {
		ids[results[i].doc.ID()] = true
	}
	for _, c := range citations {
		if !ids[c.DocumentID] {
			return Response{}, fmt.Errorf("citation references unknown document %q", c.DocumentID)
		}
	}

	return Response{
		originalQuery: originalQuery,
		enhancedQuery: enhancedQuery,
		keywords:      keywords,
		results:       results,
		answer:        answer,
		citations:     citations,
		timestamp:     time.Now().UTC(),
	}, nil
}

// ReconstructResponse hydrates a cached response without validation.
func ReconstructResponse(
	originalQuery, enhancedQuery string,
	keywords []string,
	results []Result,
	answer string,
	citations []Citation,
	timestamp time.Time,
) Response {
	return Response{
		originalQuery: originalQuery,
		enhancedQuery: enhancedQuery,
		keywords:      keywords,
		results:       results,
		answer:        answer,
		citations:     citations,
		timestamp:     timestamp,
	}
}

// OriginalQuery returns the query as the user typed it.
func (r *Response) OriginalQuery() string { return r.originalQuery }

// EnhancedQuery returns the query after enhancement, equal to the
// original when enhancement was skipped or failed.
func (r *Response) EnhancedQuery() string { return r.enhancedQuery }

// Keywords returns the keywords extracted from the query.
func (r *Response) Keywords() []string { return r.keywords }

// Results returns the ranked results, best first.
func (r *Response) Results() []Result { return r.results }

// Answer returns the synthesized answer, empty when synthesis was
// skipped or failed.
func (r *Response) Answer() string { return r.answer }

// Citations returns the documents the answer cites.
func (r *Response) Citations() []Citation { return r.citations }

// Timestamp returns when the response was assembled.
func (r *Response) Timestamp() time.Time { return r.timestamp }

// SortByScore orders results by descending score. The sort is stable:
// equal scores keep their existing (scrape) order.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}

// Rerank truncates to at most limit results and assigns ranks 1..n in
// the current order.
func Rerank(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].rank = i + 1
	}
	return results
}
