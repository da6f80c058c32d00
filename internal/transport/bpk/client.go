// Package bpk scrapes peraturan.bpk.go.id search listings and document
// pages into domain documents. Listing markup shifts between site
// releases, so every lookup walks a selector cascade and takes the
// first selector that matches.
package bpk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/metrics"
)

// PDFExtractor pulls text out of a PDF at a URL. Implemented by
// internal/pdf; consumed here for listings whose detail pages carry no
// usable text.
type PDFExtractor interface {
	ExtractFromURL(ctx context.Context, url string) (string, error)
}

// Config holds scraper settings for one source.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"Chrome/91.0.4472.124 Safari/537.36"

// Retried upstream statuses.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client scrapes one legal-document source.
type Client struct {
	name    string
	baseURL *url.URL
	http    *http.Client
	cfg     Config
	pdf     PDFExtractor
	logger  *zap.Logger
}

// New creates a scraper client. pdf may be nil; PDF fallback is then
// skipped for thin detail pages.
func New(name string, cfg Config, pdf PDFExtractor, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		name:    name,
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		pdf:     pdf,
		logger:  logger.Named("scraper").With(zap.String("source", name)),
	}, nil
}

// WithHTTPClient replaces the scrape client. The caller owns timeouts.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

// Name returns the source label.
func (c *Client) Name() string { return c.name }

// Search walks search listing pages for the query and returns the
// documents it could extract, in listing order. Listing pages that fail
// are skipped; when every page fails the source is reported unreachable.
func (c *Client) Search(ctx context.Context, query string, maxPages int) ([]document.Document, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var docs []document.Document
	pagesFailed := 0

	for page := 1; page <= maxPages; page++ {
		listing, err := c.fetchHTML(ctx, c.searchURL(query, page), "listing")
		if err != nil {
			c.logger.Warn("listing page fetch failed",
				zap.Int("page", page), zap.Error(err))
			pagesFailed++
			continue
		}

		items, matched := findResultItems(listing)
		if !matched {
			c.logger.Debug("no results on page, stopping pagination", zap.Int("page", page))
			break
		}
		c.logger.Debug("listing page parsed",
			zap.Int("page", page), zap.Int("items", len(items)))

		for _, item := range items {
			doc, ok := c.processItem(ctx, item, page)
			if ok {
				docs = append(docs, doc)
			}
		}

		if !hasNextPage(listing) {
			break
		}
	}

	if pagesFailed > 0 && len(docs) == 0 {
		return nil, domain.NewSourceError(c.name, fmt.Errorf("all %d listing pages failed", pagesFailed))
	}
	c.logger.Info("scrape finished",
		zap.String("query", query), zap.Int("documents", len(docs)))
	return docs, nil
}

// processItem turns one listing entry into a document: resolve the
// detail link, fetch the detail page, extract content, fall back to a
// linked PDF when the page text is too thin to be the regulation body.
func (c *Client) processItem(ctx context.Context, item listingItem, page int) (document.Document, bool) {
	detailURL, err := c.resolve(item.href)
	if err != nil {
		c.logger.Warn("bad detail link", zap.String("href", item.href), zap.Error(err))
		return document.Document{}, false
	}

	detail, err := c.fetchHTML(ctx, detailURL, "detail")
	if err != nil {
		c.logger.Warn("detail page fetch failed",
			zap.String("url", detailURL), zap.Error(err))
		return document.Document{}, false
	}

	content := extractContent(detail)
	if len(content) > minContentChars {
		doc, err := document.New(
			document.MakeID(document.PrefixScraped, content),
			item.title, detailURL, item.docType, item.date, item.preview, content,
		)
		if err != nil {
			c.logger.Warn("document rejected", zap.String("title", item.title), zap.Error(err))
			return document.Document{}, false
		}
		metrics.ScrapeDocumentsTotal.WithLabelValues(c.name, "page").Inc()
		return doc.WithPage(page), true
	}

	return c.pdfFallback(ctx, detail, detailURL, item, page)
}

// pdfFallback extracts the first linked PDF on a thin detail page.
func (c *Client) pdfFallback(ctx context.Context, detail *goquery.Document, detailURL string, item listingItem, page int) (document.Document, bool) {
	if c.pdf == nil {
		return document.Document{}, false
	}

	pageURL, err := url.Parse(detailURL)
	if err != nil {
		return document.Document{}, false
	}
	links := findPDFLinks(detail, pageURL)
	if len(links) == 0 {
		c.logger.Debug("no usable content and no PDF links", zap.String("url", detailURL))
		return document.Document{}, false
	}

	content, err := c.pdf.ExtractFromURL(ctx, links[0])
	if err != nil {
		c.logger.Warn("PDF fallback failed",
			zap.String("url", links[0]), zap.Error(err))
		return document.Document{}, false
	}

	doc, err := document.New(
		document.MakeID(document.PrefixPDF, content),
		item.title, detailURL, item.docType, item.date, item.preview, content,
	)
	if err != nil {
		c.logger.Warn("PDF document rejected", zap.String("title", item.title), zap.Error(err))
		return document.Document{}, false
	}
	metrics.ScrapeDocumentsTotal.WithLabelValues(c.name, "pdf").Inc()
	return doc.WithPDFSource(links[0]).WithPage(page), true
}

// HealthCheck fetches the source root page.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewSourceError(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.NewSourceStatusError(c.name, resp.StatusCode)
	}
	return nil
}

// searchURL builds the listing URL. The site omits the page parameter
// for the first page.
func (c *Client) searchURL(query string, page int) string {
	u := *c.baseURL
	u.Path = "/Search"
	q := url.Values{}
	q.Set("keywords", query)
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// resolve makes href absolute against the source base URL.
func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// fetchHTML GETs a page with retries and parses it.
func (c *Client) fetchHTML(ctx context.Context, pageURL, kind string) (*goquery.Document, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-2))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		doc, retryable, err := c.fetchOnce(ctx, pageURL, kind)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Debug("retrying fetch",
			zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Error(err))
	}

	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, pageURL, kind string) (*goquery.Document, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(c.name, kind, "error").Inc()
		return nil, true, domain.NewSourceError(c.name, err)
	}
	defer resp.Body.Close()

	metrics.ScrapeRequestsTotal.WithLabelValues(c.name, kind, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, retryableStatus[resp.StatusCode], domain.NewSourceStatusError(c.name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", domain.ErrParseFailed, pageURL, err)
	}
	return doc, false, nil
}

// setHeaders applies browser-like headers; the site serves a bot
// interstitial to bare clients.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
