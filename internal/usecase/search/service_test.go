package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

// --- Mocks ---

type mockScraper struct {
	name         string
	docs         []document.Document
	err          error
	calls        int
	lastQuery    string
	lastMaxPages int
}

func (m *mockScraper) Name() string { return m.name }

func (m *mockScraper) Search(_ context.Context, query string, maxPages int) ([]document.Document, error) {
	m.calls++
	m.lastQuery = query
	m.lastMaxPages = maxPages
	return m.docs, m.err
}

type mockEnhancer struct {
	enhanced    string
	keywords    []string
	answer      string
	citations   []result.Citation
	synthCalls  int
	lastResults []result.Result
}

func (m *mockEnhancer) EnhanceQuery(_ context.Context, text string) string {
	if m.enhanced != "" {
		return m.enhanced
	}
	return text
}

func (m *mockEnhancer) Keywords(_ context.Context, text string) []string {
	if m.keywords != nil {
		return m.keywords
	}
	return strings.Fields(text)
}

func (m *mockEnhancer) Synthesize(_ context.Context, _ query.Query, results []result.Result) (string, []result.Citation) {
	m.synthCalls++
	m.lastResults = results
	return m.answer, m.citations
}

type mockRanker struct {
	results  []result.Result
	degraded bool
	lastText string
	lastDocs []document.Document
}

func (m *mockRanker) Rank(_ context.Context, queryText string, docs []document.Document) ([]result.Result, bool) {
	m.lastText = queryText
	m.lastDocs = docs
	if m.results != nil {
		return m.results, m.degraded
	}
	// Default: docs back in scrape order.
	out := make([]result.Result, 0, len(docs))
	for _, d := range docs {
		out = append(out, result.New(d, 0.5, 0))
	}
	return out, m.degraded
}

type mockStore struct {
	saved []document.Document
	err   error
}

func (m *mockStore) Save(_ context.Context, doc document.Document) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, doc)
	return nil
}

type mockCache struct {
	resp     result.Response
	hit      bool
	getCalls int
	putCalls int
	lastPut  result.Response
}

func (m *mockCache) Get(_ context.Context, _ query.Query) (result.Response, bool) {
	m.getCalls++
	return m.resp, m.hit
}

func (m *mockCache) Put(_ context.Context, _ query.Query, resp result.Response) {
	m.putCalls++
	m.lastPut = resp
}

func makeQuery(t *testing.T, text string, maxResults int) query.Query {
	t.Helper()
	q, err := query.New(text, 2, maxResults, query.Preferences{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func makeDoc(t *testing.T, id, title, url string) document.Document {
	t.Helper()
	doc, err := document.New(id, title, url, "Undang-undang (UU)", "2023", "", "isi dokumen "+title)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}

func newTestService(scrapers []Scraper, enh *mockEnhancer, rank *mockRanker, store *mockStore) *Service {
	return New(scrapers, enh, rank, store, zap.NewNop())
}

// --- Tests ---

func TestSearch_HappyPath(t *testing.T) {
	docA := makeDoc(t, "doc_a", "UU Perlindungan Data", "https://example.test/a")
	docB := makeDoc(t, "doc_b", "PP Keamanan Siber", "https://example.test/b")
	sc := &mockScraper{name: "bpk", docs: []document.Document{docA, docB}}
	enh := &mockEnhancer{
		enhanced: "undang-undang perlindungan data pribadi",
		answer:   "Data protection is governed by...",
		citations: []result.Citation{
			{DocumentID: "doc_a", Title: docA.Title(), SourceURL: docA.SourceURL()},
		},
	}
	rank := &mockRanker{}
	store := &mockStore{}
	svc := newTestService([]Scraper{sc}, enh, rank, store)

	q := makeQuery(t, "data protection law", 10)
	resp, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.lastQuery != enh.enhanced {
		t.Errorf("scraper should receive the enhanced query, got %q", sc.lastQuery)
	}
	if sc.lastMaxPages != 2 {
		t.Errorf("expected maxPages=2, got %d", sc.lastMaxPages)
	}
	if rank.lastText != "data protection law" {
		t.Errorf("ranker should receive the original query, got %q", rank.lastText)
	}
	if len(resp.Results()) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results()))
	}
	if resp.OriginalQuery() != "data protection law" {
		t.Errorf("unexpected original query: %q", resp.OriginalQuery())
	}
	if resp.EnhancedQuery() != enh.enhanced {
		t.Errorf("unexpected enhanced query: %q", resp.EnhancedQuery())
	}
	if resp.Answer() != enh.answer {
		t.Errorf("unexpected answer: %q", resp.Answer())
	}
	if len(resp.Citations()) != 1 {
		t.Errorf("expected 1 citation, got %d", len(resp.Citations()))
	}
	if len(store.saved) != 2 {
		t.Errorf("expected 2 documents persisted, got %d", len(store.saved))
	}
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	var docs []document.Document
	for _, id := range []string{"doc_1", "doc_2", "doc_3", "doc_4", "doc_5"} {
		docs = append(docs, makeDoc(t, id, "Doc "+id, "https://example.test/"+id))
	}
	sc := &mockScraper{name: "bpk", docs: docs}
	enh := &mockEnhancer{answer: "answer"}
	rank := &mockRanker{}
	svc := newTestService([]Scraper{sc}, enh, rank, &mockStore{})

	q := makeQuery(t, "pajak", 2)
	resp, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results()) != 2 {
		t.Fatalf("expected 2 results after truncation, got %d", len(resp.Results()))
	}
	for i, r := range resp.Results() {
		if r.Rank() != i+1 {
			t.Errorf("result %d: expected rank %d, got %d", i, i+1, r.Rank())
		}
	}
	if len(enh.lastResults) != 2 {
		t.Errorf("synthesis should see the truncated list, got %d results", len(enh.lastResults))
	}
}

func TestSearch_ResultsCarryTitleAndURL(t *testing.T) {
	var docs []document.Document
	for _, id := range []string{"doc_1", "doc_2", "doc_3", "doc_4", "doc_5", "doc_6", "doc_7"} {
		docs = append(docs, makeDoc(t, id, "Putusan "+id, "https://example.test/"+id))
	}
	sc := &mockScraper{name: "bpk", docs: docs}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{answer: "x"}, &mockRanker{}, &mockStore{})

	resp, err := svc.Search(context.Background(), makeQuery(t, "hak tanah ulayat", 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results()) > 5 {
		t.Fatalf("expected at most 5 results, got %d", len(resp.Results()))
	}
	for i, r := range resp.Results() {
		if r.Document().Title() == "" {
			t.Errorf("result %d: empty title", i)
		}
		if r.Document().SourceURL() == "" {
			t.Errorf("result %d: empty source URL", i)
		}
	}
}

func TestSearch_ResultsOrderedByScore(t *testing.T) {
	docA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	docB := makeDoc(t, "doc_b", "B", "https://example.test/b")
	docC := makeDoc(t, "doc_c", "C", "https://example.test/c")
	sc := &mockScraper{name: "bpk", docs: []document.Document{docA, docB, docC}}
	rank := &mockRanker{results: []result.Result{
		result.New(docB, 0.9, 0),
		result.New(docC, 0.7, 0),
		result.New(docA, 0.2, 0),
	}}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{answer: "x"}, rank, &mockStore{})

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results := resp.Results()
	for i := 1; i < len(results); i++ {
		if results[i].Score() > results[i-1].Score() {
			t.Errorf("results not sorted descending: [%d]=%f > [%d]=%f",
				i, results[i].Score(), i-1, results[i-1].Score())
		}
	}
	if results[0].Document().ID() != "doc_b" {
		t.Errorf("expected doc_b first, got %s", results[0].Document().ID())
	}
}

func TestSearch_MergesSourcesAndDedupes(t *testing.T) {
	shared := makeDoc(t, "doc_shared", "Shared", "https://example.test/shared")
	onlyA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	onlyB := makeDoc(t, "doc_b", "B", "https://example.test/b")
	scA := &mockScraper{name: "bpk", docs: []document.Document{onlyA, shared}}
	scB := &mockScraper{name: "mirror", docs: []document.Document{shared, onlyB}}
	svc := newTestService([]Scraper{scA, scB}, &mockEnhancer{answer: "x"}, &mockRanker{}, &mockStore{})

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results()) != 3 {
		t.Fatalf("expected 3 deduplicated results, got %d", len(resp.Results()))
	}
	if scA.calls != 1 || scB.calls != 1 {
		t.Errorf("expected both sources scraped once, got %d and %d", scA.calls, scB.calls)
	}
}

func TestSearch_FailedSourceSkipped(t *testing.T) {
	docA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	healthy := &mockScraper{name: "bpk", docs: []document.Document{docA}}
	broken := &mockScraper{name: "mirror", err: domain.NewSourceStatusError("mirror", 503)}
	svc := newTestService([]Scraper{broken, healthy}, &mockEnhancer{answer: "x"}, &mockRanker{}, &mockStore{})

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("one healthy source should be enough, got error: %v", err)
	}
	if len(resp.Results()) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results()))
	}
}

func TestSearch_AllSourcesFailed(t *testing.T) {
	scA := &mockScraper{name: "bpk", err: domain.NewSourceStatusError("bpk", 502)}
	scB := &mockScraper{name: "mirror", err: domain.NewSourceError("mirror", errors.New("dial tcp: timeout"))}
	cache := &mockCache{}
	svc := newTestService([]Scraper{scA, scB}, &mockEnhancer{}, &mockRanker{}, &mockStore{}).WithCache(cache)

	_, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err == nil {
		t.Fatal("expected error when every source failed")
	}
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Errorf("expected ErrSourceUnreachable, got %v", err)
	}
	if cache.putCalls != 0 {
		t.Error("failed searches must not be cached")
	}
}

func TestSearch_NoMatches_ReturnsEmptyResponse(t *testing.T) {
	sc := &mockScraper{name: "bpk"}
	enh := &mockEnhancer{answer: "should not be used"}
	svc := newTestService([]Scraper{sc}, enh, &mockRanker{}, &mockStore{})

	q := makeQuery(t, "gibberish query", 10)
	resp, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("empty result set is not an error, got: %v", err)
	}
	if len(resp.Results()) != 0 {
		t.Fatalf("expected no results, got %d", len(resp.Results()))
	}
	want := "I couldn't find any relevant legal documents for your query: 'gibberish query'."
	if resp.Answer() != want {
		t.Errorf("unexpected no-results answer: %q", resp.Answer())
	}
	if enh.synthCalls != 0 {
		t.Error("synthesis should be skipped when there is nothing to cite")
	}
}

func TestSearch_CacheHit_SkipsPipeline(t *testing.T) {
	cached := result.ReconstructResponse("test", "test", nil, nil, "cached answer", nil, time.Now())
	sc := &mockScraper{name: "bpk"}
	cache := &mockCache{resp: cached, hit: true}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{}, &mockRanker{}, &mockStore{}).WithCache(cache)

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer() != "cached answer" {
		t.Errorf("expected cached response, got answer %q", resp.Answer())
	}
	if sc.calls != 0 {
		t.Error("cache hit must not trigger scraping")
	}
	if cache.putCalls != 0 {
		t.Error("cache hit must not re-store the response")
	}
}

func TestSearch_CacheMiss_StoresResponse(t *testing.T) {
	docA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	sc := &mockScraper{name: "bpk", docs: []document.Document{docA}}
	cache := &mockCache{}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{answer: "fresh"}, &mockRanker{}, &mockStore{}).WithCache(cache)

	_, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.getCalls != 1 {
		t.Errorf("expected 1 cache lookup, got %d", cache.getCalls)
	}
	if cache.putCalls != 1 {
		t.Fatalf("expected response to be cached, got %d puts", cache.putCalls)
	}
	if cache.lastPut.Answer() != "fresh" {
		t.Errorf("cached response should carry the answer, got %q", cache.lastPut.Answer())
	}
}

func TestSearch_StoreFailureDoesNotFailSearch(t *testing.T) {
	docA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	sc := &mockScraper{name: "bpk", docs: []document.Document{docA}}
	store := &mockStore{err: errors.New("kv write failed")}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{answer: "x"}, &mockRanker{}, store)

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("store failure must not fail the search, got: %v", err)
	}
	if len(resp.Results()) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results()))
	}
}

func TestSearch_DegradedRanking_StillReturns(t *testing.T) {
	docA := makeDoc(t, "doc_a", "A", "https://example.test/a")
	docB := makeDoc(t, "doc_b", "B", "https://example.test/b")
	sc := &mockScraper{name: "bpk", docs: []document.Document{docA, docB}}
	rank := &mockRanker{degraded: true}
	svc := newTestService([]Scraper{sc}, &mockEnhancer{answer: "x"}, rank, &mockStore{})

	resp, err := svc.Search(context.Background(), makeQuery(t, "test", 10))
	if err != nil {
		t.Fatalf("degraded ranking must not fail the search, got: %v", err)
	}
	if len(resp.Results()) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results()))
	}
	// Деградация сохраняет порядок скрейпа
	if resp.Results()[0].Document().ID() != "doc_a" {
		t.Errorf("expected scrape order preserved, got %s first", resp.Results()[0].Document().ID())
	}
}

func TestScrape_PassesDeduplicatedDocsToRanker(t *testing.T) {
	shared := makeDoc(t, "doc_shared", "Shared", "https://example.test/shared")
	scA := &mockScraper{name: "bpk", docs: []document.Document{shared}}
	scB := &mockScraper{name: "mirror", docs: []document.Document{shared}}
	rank := &mockRanker{}
	svc := newTestService([]Scraper{scA, scB}, &mockEnhancer{answer: "x"}, rank, &mockStore{})

	if _, err := svc.Search(context.Background(), makeQuery(t, "test", 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rank.lastDocs) != 1 {
		t.Errorf("expected 1 deduplicated candidate, got %d", len(rank.lastDocs))
	}
}
