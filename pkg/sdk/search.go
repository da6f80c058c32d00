package statuta

import (
	"context"
	"fmt"
	"time"

	"github.com/santara-labs/statuta/internal/report"
)

// Search runs the full retrieval pipeline for one query: scrape,
// enhance, rank, synthesize. Degradations (LLM down, embedding model
// down, some sources failing) never fail the call; they only reduce
// the response. The call fails when the query is invalid or every
// source is unreachable.
func (c *Client) Search(ctx context.Context, req SearchRequest) (resp SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	q, err := toQuery(req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	r, err := c.searchSvc.Search(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return fromResponse(&r), nil
}

// SearchSimple runs a search with default preferences.
func (c *Client) SearchSimple(ctx context.Context, queryText string) (SearchResponse, error) {
	return c.Search(ctx, SearchRequest{Query: queryText})
}

// Report runs a search and renders the response as a standalone HTML
// report. Returns the document and a download filename derived from
// the query.
func (c *Client) Report(ctx context.Context, req SearchRequest) (html []byte, filename string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("report", start, err) }()

	q, err := toQuery(req)
	if err != nil {
		return nil, "", fmt.Errorf("report: %w", err)
	}

	r, err := c.searchSvc.Search(ctx, q)
	if err != nil {
		return nil, "", fmt.Errorf("report: %w", err)
	}

	html, err = report.Render(&r)
	if err != nil {
		return nil, "", fmt.Errorf("report: %w", err)
	}
	return html, report.Filename(q.Text()), nil
}
