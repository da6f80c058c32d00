package search

import (
	"context"

	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

// Scraper fetches candidate documents from one upstream source.
type Scraper interface {
	Name() string
	Search(ctx context.Context, query string, maxPages int) ([]document.Document, error)
}

// Enhancer rewrites queries, extracts keywords and synthesizes answers.
// Every method degrades internally and never fails the search.
type Enhancer interface {
	EnhanceQuery(ctx context.Context, text string) string
	Keywords(ctx context.Context, text string) []string
	Synthesize(ctx context.Context, q query.Query, results []result.Result) (string, []result.Citation)
}

// Ranker orders candidates by relevance to the query. degraded reports
// that the lexical fallback ran instead of the embedding model.
type Ranker interface {
	Rank(ctx context.Context, queryText string, docs []document.Document) (results []result.Result, degraded bool)
}

// DocumentStore persists scraped candidates for the documents API.
type DocumentStore interface {
	Save(ctx context.Context, doc document.Document) error
}

// ResponseCache caches assembled search responses.
type ResponseCache interface {
	Get(ctx context.Context, q query.Query) (result.Response, bool)
	Put(ctx context.Context, q query.Query, resp result.Response)
}
