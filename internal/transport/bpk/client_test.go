package bpk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	"github.com/santara-labs/statuta/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

const listingPage = `<html><body><div class="container">
<div class="card">
  <div class="card-body">
    <h3 class="fw-bold text-gray-800 mb-5"><a href="/Home/Detail/271510/uu-no-5-tahun-1960">UU No. 5 Tahun 1960</a></h3>
    <div class="text-gray-600"><span>Undang-undang</span><span>24 September 1960</span></div>
    <p class="card-text">Peraturan Dasar Pokok-Pokok Agraria mengatur hak atas tanah.</p>
  </div>
</div>
<div class="card">
  <div class="card-body">
    <h3 class="fw-bold text-gray-800 mb-5"><a href="/Home/Detail/38768/pp-no-24-tahun-1997">PP No. 24 Tahun 1997</a></h3>
    <div class="text-gray-600"><span>Peraturan Pemerintah</span><span>8 Juli 1997</span></div>
    <p class="card-text">Pendaftaran tanah untuk kepastian hukum hak atas tanah.</p>
  </div>
</div>
</div></body></html>`

// richDetail carries enough body text to pass the content threshold.
const richDetail = `<html><body>
<div class="card-body">
  <h1>UNDANG-UNDANG REPUBLIK INDONESIA</h1>
  <p>Menimbang bahwa di dalam Negara Republik Indonesia yang susunan kehidupan rakyatnya,
  termasuk perekonomiannya, terutama masih bercorak agraris, bumi, air dan ruang angkasa,
  sebagai karunia Tuhan Yang Maha Esa mempunyai fungsi yang amat penting untuk membangun
  masyarakat yang adil dan makmur.</p>
  <p>Mengingat ketentuan dalam pasal-pasal sebelumnya serta peraturan perundang-undangan
  yang berlaku bagi seluruh wilayah Negara Kesatuan Republik Indonesia.</p>
</div>
</body></html>`

// thinDetail has no usable text, only a PDF download link.
const thinDetail = `<html><body>
<div class="card-body">Dokumen tersedia dalam bentuk PDF.</div>
<a href="/Download/271510/uu-no-5-tahun-1960.pdf">Unduh</a>
</body></html>`

type fakePDFExtractor struct {
	calls []string
	text  string
	err   error
}

func (f *fakePDFExtractor) ExtractFromURL(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	return f.text, f.err
}

func newTestClient(t *testing.T, baseURL string, pdf PDFExtractor) *Client {
	t.Helper()
	c, err := New("bpk", Config{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, pdf, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			if r.URL.Query().Get("keywords") != "hak tanah" {
				t.Errorf("unexpected keywords: %q", r.URL.Query().Get("keywords"))
			}
			fmt.Fprint(w, listingPage)
		case strings.HasPrefix(r.URL.Path, "/Home/Detail/"):
			fmt.Fprint(w, richDetail)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "hak tanah", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	first := docs[0]
	if first.Title() != "UU No. 5 Tahun 1960" {
		t.Errorf("title = %q", first.Title())
	}
	if first.DocType() != "Undang-undang" {
		t.Errorf("docType = %q", first.DocType())
	}
	if first.Date() != "24 September 1960" {
		t.Errorf("date = %q", first.Date())
	}
	if !strings.Contains(first.Preview(), "Pokok-Pokok Agraria") {
		t.Errorf("preview = %q", first.Preview())
	}
	if !strings.Contains(first.Content(), "bercorak agraris") {
		t.Errorf("content missing body text: %q", first.Content())
	}
	if !strings.HasPrefix(first.ID(), "doc_") {
		t.Errorf("id = %q, expected doc_ prefix", first.ID())
	}
	if !strings.HasPrefix(first.SourceURL(), server.URL+"/Home/Detail/") {
		t.Errorf("sourceURL = %q", first.SourceURL())
	}
	if first.Page() != 1 {
		t.Errorf("page = %d, expected 1", first.Page())
	}

	if docs[1].Title() != "PP No. 24 Tahun 1997" {
		t.Errorf("second title = %q", docs[1].Title())
	}
}

func TestClient_Search_PDFFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			fmt.Fprint(w, listingPage)
		case strings.HasPrefix(r.URL.Path, "/Home/Detail/"):
			fmt.Fprint(w, thinDetail)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	pdf := &fakePDFExtractor{text: "Pasal 1. Atas dasar ketentuan dalam pasal 33 ayat 3 Undang-Undang Dasar, bumi, air dan ruang angkasa dikuasai oleh Negara."}
	c := newTestClient(t, server.URL, pdf)

	docs, err := c.Search(context.Background(), "agraria", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	doc := docs[0]
	if doc.DocType() != "Undang-undang (PDF)" {
		t.Errorf("docType = %q, expected PDF suffix", doc.DocType())
	}
	if !strings.HasPrefix(doc.ID(), "pdf_") {
		t.Errorf("id = %q, expected pdf_ prefix", doc.ID())
	}
	if !strings.HasSuffix(doc.SourceURL(), ".pdf") {
		t.Errorf("sourceURL = %q, expected the PDF link", doc.SourceURL())
	}
	if doc.Content() != pdf.text {
		t.Errorf("content = %q", doc.Content())
	}

	// PDF-ссылка резолвится относительно detail-страницы, не листинга
	if len(pdf.calls) == 0 || !strings.HasPrefix(pdf.calls[0], server.URL+"/Download/") {
		t.Errorf("extractor calls = %v", pdf.calls)
	}
}

func TestClient_Search_PDFFallbackSkippedWithoutExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			fmt.Fprint(w, listingPage)
		default:
			fmt.Fprint(w, thinDetail)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "agraria", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents without a PDF extractor, got %d", len(docs))
	}
}

func TestClient_Search_PDFExtractionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			fmt.Fprint(w, listingPage)
		default:
			fmt.Fprint(w, thinDetail)
		}
	}))
	defer server.Close()

	pdf := &fakePDFExtractor{err: errors.New("corrupt file")}
	c := newTestClient(t, server.URL, pdf)

	docs, err := c.Search(context.Background(), "agraria", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Extraction failures drop the item, never the whole search
	if len(docs) != 0 {
		t.Errorf("expected 0 documents, got %d", len(docs))
	}
}

func TestClient_Search_LinkOnlyListing(t *testing.T) {
	// No card markup at all, just bare detail links
	const bareLinks = `<html><body>
	<a href="/Home/Detail/99001/permen-atr-no-18-tahun-2019">Permen ATR No. 18 Tahun 2019</a>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			fmt.Fprint(w, bareLinks)
		default:
			fmt.Fprint(w, richDetail)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "masyarakat adat", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title() != "Permen ATR No. 18 Tahun 2019" {
		t.Errorf("title = %q", docs[0].Title())
	}
	if docs[0].DocType() != "Unknown Type" {
		t.Errorf("docType = %q, expected default", docs[0].DocType())
	}
}

func TestClient_Search_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="container"><p>Data tidak ditemukan.</p></div></body></html>`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "zzzz", 3)
	if err != nil {
		t.Fatalf("expected no error for empty results, got %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected 0 documents, got %d", len(docs))
	}
}

func TestClient_Search_Pagination(t *testing.T) {
	paginated := `<div class="pagination"><span class="page-item"><a class="page-link" href="?page=2">2</a></span></div>`

	var pagesServed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			page := r.URL.Query().Get("page")
			pagesServed = append(pagesServed, page)
			if page == "" {
				// Page 1 links a next page
				fmt.Fprint(w, strings.Replace(listingPage, "</body>", paginated+"</body>", 1))
				return
			}
			// Page 2 has results but no pagination block: walk stops here
			fmt.Fprint(w, listingPage)
		default:
			fmt.Fprint(w, richDetail)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "tanah", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(docs) != 4 {
		t.Errorf("expected 4 documents over 2 pages, got %d", len(docs))
	}
	if len(pagesServed) != 2 || pagesServed[0] != "" || pagesServed[1] != "2" {
		t.Errorf("pages served = %v, expected first page without the param then page 2", pagesServed)
	}
	for i, doc := range docs {
		want := 1 + i/2
		if doc.Page() != want {
			t.Errorf("docs[%d].Page() = %d, expected %d", i, doc.Page(), want)
		}
	}
}

func TestClient_Search_StopsAtMaxPages(t *testing.T) {
	paginated := strings.Replace(listingPage, "</body>",
		`<div class="pagination"><a class="next" href="?page=99">Next</a></div></body>`, 1)

	var listingHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			atomic.AddInt32(&listingHits, 1)
			fmt.Fprint(w, paginated)
		default:
			fmt.Fprint(w, richDetail)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "tanah", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got := atomic.LoadInt32(&listingHits); got != 2 {
		t.Errorf("listing fetched %d times, expected 2", got)
	}
	if len(docs) != 4 {
		t.Errorf("expected 4 documents, got %d", len(docs))
	}
}

func TestClient_Search_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search":
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, listingPage)
		default:
			fmt.Fprint(w, richDetail)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	docs, err := c.Search(context.Background(), "tanah", 1)
	if err != nil {
		t.Fatalf("Search failed after retries: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("listing attempts = %d, expected 3", got)
	}
}

func TestClient_Search_DoesNotRetryNotFound(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	_, err := c.Search(context.Background(), "tanah", 1)
	if err == nil {
		t.Fatal("expected error when the only page fails")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("attempts = %d, expected 1 for a non-retryable status", got)
	}
}

func TestClient_Search_AllPagesFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	_, err := c.Search(context.Background(), "tanah", 2)
	if err == nil {
		t.Fatal("expected error when every listing page fails")
	}
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Errorf("error = %v, expected ErrSourceUnreachable", err)
	}

	var srcErr *domain.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error = %v, expected *domain.SourceError", err)
	}
	if srcErr.Source != "bpk" {
		t.Errorf("source = %q", srcErr.Source)
	}
}

func TestClient_Search_BrowserHeaders(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)

	if _, err := c.Search(context.Background(), "tanah", 1); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, expected a browser string", gotUA)
	}
}

func TestClient_SearchURL(t *testing.T) {
	c := newTestClient(t, "https://peraturan.bpk.go.id", nil)

	got := c.searchURL("hak ulayat", 1)
	if got != "https://peraturan.bpk.go.id/Search?keywords=hak+ulayat" {
		t.Errorf("page 1 URL = %q", got)
	}

	got = c.searchURL("hak ulayat", 3)
	if !strings.Contains(got, "page=3") {
		t.Errorf("page 3 URL = %q, expected page param", got)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestClient_HealthCheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, nil)
	err := c.HealthCheck(context.Background())
	if !errors.Is(err, domain.ErrSourceUnreachable) {
		t.Errorf("error = %v, expected ErrSourceUnreachable", err)
	}
}
