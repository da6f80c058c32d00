// Package searchcache caches complete search responses. A scrape-backed
// search costs tens of seconds and LLM tokens; repeat queries with the
// same preferences are served from the cache instead.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/db"
	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

var cacheKeyPrefix = domain.KeyPrefix + "search_cache:"

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores search responses in a key-value store. Reads and writes
// fail open: a broken cache degrades to a live search, never to an error.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a response cache. ttl <= 0 caches without expiry.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Key derives the cache key from everything that shapes the response:
// the query text, pagination limits and response preferences.
func Key(q query.Query) string {
	prefs := q.Preferences()
	material := fmt.Sprintf("%s|%d|%d|%s|%s|%t",
		q.Text(), q.MaxPages(), q.MaxResults(),
		prefs.Verbosity, prefs.Format, prefs.Citations)
	h := sha256.Sum256([]byte(material))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// Get returns a cached response for the query, if present.
func (c *Cache) Get(ctx context.Context, q query.Query) (result.Response, bool) {
	key := Key(q)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return result.Response{}, false
	}

	resp, err := unmarshalResponse(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return result.Response{}, false
	}

	c.incCache("hit")
	return resp, true
}

// Put stores a response for the query.
func (c *Cache) Put(ctx context.Context, q query.Query, resp result.Response) {
	key := Key(q)

	data, err := marshalResponse(resp)
	if err != nil {
		c.logger.Warn("Failed to marshal response", zap.String("key", key), zap.Error(err))
		return
	}

	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

type docDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url"`
	DocType   string `json:"doc_type"`
	Date      string `json:"date"`
	Preview   string `json:"preview,omitempty"`
	Content   string `json:"content"`
	PDFURL    string `json:"pdf_url,omitempty"`
	Page      int    `json:"page,omitempty"`
}

type resultDTO struct {
	Document docDTO  `json:"document"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

type citationDTO struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
}

type responseDTO struct {
	OriginalQuery string        `json:"original_query"`
	EnhancedQuery string        `json:"enhanced_query,omitempty"`
	Keywords      []string      `json:"keywords,omitempty"`
	Results       []resultDTO   `json:"results"`
	Answer        string        `json:"answer,omitempty"`
	Citations     []citationDTO `json:"citations,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

func marshalResponse(resp result.Response) ([]byte, error) {
	dto := responseDTO{
		OriginalQuery: resp.OriginalQuery(),
		EnhancedQuery: resp.EnhancedQuery(),
		Keywords:      resp.Keywords(),
		Answer:        resp.Answer(),
		Timestamp:     resp.Timestamp(),
	}
	for _, r := range resp.Results() {
		doc := r.Document()
		dto.Results = append(dto.Results, resultDTO{
			Document: docDTO{
				ID:        doc.ID(),
				Title:     doc.Title(),
				SourceURL: doc.SourceURL(),
				DocType:   doc.DocType(),
				Date:      doc.Date(),
				Preview:   doc.Preview(),
				Content:   doc.Content(),
				PDFURL:    doc.PDFURL(),
				Page:      doc.Page(),
			},
			Score: r.Score(),
			Rank:  r.Rank(),
		})
	}
	for _, cit := range resp.Citations() {
		dto.Citations = append(dto.Citations, citationDTO{
			DocumentID: cit.DocumentID,
			Title:      cit.Title,
			SourceURL:  cit.SourceURL,
		})
	}
	return json.Marshal(dto)
}

func unmarshalResponse(data []byte) (result.Response, error) {
	var dto responseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return result.Response{}, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]result.Result, 0, len(dto.Results))
	for _, r := range dto.Results {
		doc := document.Reconstruct(
			r.Document.ID, r.Document.Title, r.Document.SourceURL, r.Document.DocType,
			r.Document.Date, r.Document.Preview, r.Document.Content, r.Document.PDFURL, r.Document.Page,
		)
		results = append(results, result.New(doc, r.Score, r.Rank))
	}

	citations := make([]result.Citation, 0, len(dto.Citations))
	for _, cit := range dto.Citations {
		citations = append(citations, result.Citation{
			DocumentID: cit.DocumentID,
			Title:      cit.Title,
			SourceURL:  cit.SourceURL,
		})
	}

	return result.ReconstructResponse(
		dto.OriginalQuery, dto.EnhancedQuery, dto.Keywords,
		results, dto.Answer, citations, dto.Timestamp,
	), nil
}
