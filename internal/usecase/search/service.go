// Package search runs the search pipeline: enhance the query, scrape
// the enabled sources, rank candidates, synthesize an answer, assemble
// the response. Optional stages (enhancement, semantic ranking,
// synthesis) degrade one by one; the search only fails when every
// source is unreachable and nothing was scraped.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
	"github.com/santara-labs/statuta/internal/metrics"
)

// Service orchestrates one search request end to end.
type Service struct {
	scrapers []Scraper
	enhancer Enhancer
	ranker   Ranker
	store    DocumentStore
	cache    ResponseCache
	logger   *zap.Logger
}

// New creates a search service over the given sources.
func New(
	scrapers []Scraper, enhancer Enhancer, ranker Ranker,
	store DocumentStore, logger *zap.Logger,
) *Service {
	return &Service{
		scrapers: scrapers,
		enhancer: enhancer,
		ranker:   ranker,
		store:    store,
		logger:   logger.Named("search"),
	}
}

// WithCache attaches a response cache.
func (s *Service) WithCache(cache ResponseCache) *Service {
	s.cache = cache
	return s
}

// Search runs the pipeline for one validated query.
//
// The scrape uses the enhanced query for recall; ranking and synthesis
// use the query as the user typed it. At most q.MaxResults() results
// come back, ordered by descending score with stable ties (scrape order
// when ranking degraded).
func (s *Service) Search(ctx context.Context, q query.Query) (result.Response, error) {
	start := time.Now()

	if s.cache != nil {
		if resp, ok := s.cache.Get(ctx, q); ok {
			s.logger.Debug("Serving cached response", zap.String("query", q.Text()))
			s.observe("ok", start)
			return resp, nil
		}
	}

	enhanced := s.enhancer.EnhanceQuery(ctx, q.Text())
	if enhanced != q.Text() {
		s.logger.Info("Query enhanced",
			zap.String("original", q.Text()), zap.String("enhanced", enhanced))
	}
	keywords := s.enhancer.Keywords(ctx, q.Text())

	docs, err := s.scrape(ctx, enhanced, q.MaxPages())
	if err != nil {
		s.observe("error", start)
		return result.Response{}, err
	}

	s.persist(ctx, docs)

	ranked, degraded := s.ranker.Rank(ctx, q.Text(), docs)
	ranked = result.Rerank(ranked, q.MaxResults())

	var answer string
	var citations []result.Citation
	if len(ranked) == 0 {
		answer = fmt.Sprintf("I couldn't find any relevant legal documents for your query: '%s'.", q.Text())
	} else {
		answer, citations = s.enhancer.Synthesize(ctx, q, ranked)
	}

	resp, err := result.NewResponse(q.Text(), enhanced, keywords, ranked, answer, citations)
	if err != nil {
		s.observe("error", start)
		return result.Response{}, fmt.Errorf("assemble response: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, q, resp)
	}

	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	s.observe(outcome, start)
	s.logger.Info("Search complete",
		zap.String("query", q.Text()),
		zap.Int("results", len(ranked)),
		zap.Bool("ranking_degraded", degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// scrape merges candidates from every source in registration order,
// deduplicating by source URL. A failed source is skipped; the scrape
// errors only when a source failed and no candidates came back at all.
func (s *Service) scrape(ctx context.Context, queryText string, maxPages int) ([]document.Document, error) {
	var docs []document.Document
	var errs []error
	seen := make(map[string]bool)

	for _, sc := range s.scrapers {
		out, err := sc.Search(ctx, queryText, maxPages)
		if err != nil {
			s.logger.Warn("Source scrape failed",
				zap.String("source", sc.Name()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		for _, doc := range out {
			if seen[doc.SourceURL()] {
				continue
			}
			seen[doc.SourceURL()] = true
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return docs, nil
}

// persist saves candidates so the documents API can serve them by ID.
// Store failures are logged and skipped, the search result is already
// in hand.
func (s *Service) persist(ctx context.Context, docs []document.Document) {
	for i := range docs {
		if err := s.store.Save(ctx, docs[i]); err != nil {
			s.logger.Warn("Failed to store document",
				zap.String("id", docs[i].ID()), zap.Error(err))
		}
	}
}

func (s *Service) observe(outcome string, start time.Time) {
	metrics.SearchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
