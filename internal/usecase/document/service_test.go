package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/domain"
	domdoc "github.com/santara-labs/statuta/internal/domain/document"
)

// --- Mocks ---

type mockStore struct {
	docs    map[string]domdoc.Document
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]domdoc.Document)}
}

func (m *mockStore) Save(_ context.Context, doc domdoc.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[doc.ID()] = doc
	return nil
}

func (m *mockStore) Get(_ context.Context, id string) (domdoc.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

type mockExtractor struct {
	text     string
	err      error
	lastURL  string
	lastData []byte
}

func (m *mockExtractor) Extract(data []byte) (string, error) {
	m.lastData = data
	return m.text, m.err
}

func (m *mockExtractor) ExtractFromURL(_ context.Context, pdfURL string) (string, error) {
	m.lastURL = pdfURL
	return m.text, m.err
}

func newTestService(store *mockStore, ext *mockExtractor) *Service {
	return New(store, ext, zap.NewNop())
}

// --- Tests ---

func TestGet_Found(t *testing.T) {
	store := newMockStore()
	doc, err := domdoc.New("doc_abc", "UU 11/2020", "https://example.test/a", "", "", "", "isi")
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	store.docs[doc.ID()] = doc
	svc := newTestService(store, &mockExtractor{})

	got, err := svc.Get(context.Background(), "doc_abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title() != "UU 11/2020" {
		t.Errorf("unexpected title: %q", got.Title())
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newMockStore(), &mockExtractor{})

	_, err := svc.Get(context.Background(), "doc_missing")
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestExtractFromURL_HappyPath(t *testing.T) {
	store := newMockStore()
	ext := &mockExtractor{text: "\n--- Page 1 ---\nPasal 1 ..."}
	svc := newTestService(store, ext)

	doc, err := svc.ExtractFromURL(context.Background(), "https://example.test/uu-11-2020.pdf", "UU Cipta Kerja")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(doc.ID(), "pdf_") {
		t.Errorf("expected pdf_ ID prefix, got %q", doc.ID())
	}
	if doc.Title() != "UU Cipta Kerja" {
		t.Errorf("unexpected title: %q", doc.Title())
	}
	if doc.SourceURL() != "https://example.test/uu-11-2020.pdf" {
		t.Errorf("unexpected source: %q", doc.SourceURL())
	}
	if doc.PDFURL() != "https://example.test/uu-11-2020.pdf" {
		t.Errorf("unexpected pdf url: %q", doc.PDFURL())
	}
	if ext.lastURL != "https://example.test/uu-11-2020.pdf" {
		t.Errorf("extractor called with %q", ext.lastURL)
	}
	if _, ok := store.docs[doc.ID()]; !ok {
		t.Error("document should be stored for later retrieval")
	}
}

func TestExtractFromURL_TitleDefaultsToFilename(t *testing.T) {
	svc := newTestService(newMockStore(), &mockExtractor{text: "isi"})

	doc, err := svc.ExtractFromURL(context.Background(), "https://example.test/files/pp-5-2021.pdf", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title() != "pp-5-2021.pdf" {
		t.Errorf("expected filename title, got %q", doc.Title())
	}
}

func TestExtractFromURL_EmptyURL(t *testing.T) {
	svc := newTestService(newMockStore(), &mockExtractor{text: "isi"})

	_, err := svc.ExtractFromURL(context.Background(), "  ", "")
	if err == nil {
		t.Fatal("expected error for blank url")
	}
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestExtractFromURL_ExtractionError(t *testing.T) {
	ext := &mockExtractor{err: domain.ErrExtractionFailed}
	svc := newTestService(newMockStore(), ext)

	_, err := svc.ExtractFromURL(context.Background(), "https://example.test/broken.pdf", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractFromURL_SameContentSameID(t *testing.T) {
	svc := newTestService(newMockStore(), &mockExtractor{text: "identical body"})

	first, err := svc.ExtractFromURL(context.Background(), "https://example.test/a.pdf", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.ExtractFromURL(context.Background(), "https://example.test/b.pdf", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID() != second.ID() {
		t.Errorf("equal content should map to one ID, got %q and %q", first.ID(), second.ID())
	}
}

func TestUpload_HappyPath(t *testing.T) {
	store := newMockStore()
	ext := &mockExtractor{text: "\n--- Page 1 ---\nPasal 1 ..."}
	svc := newTestService(store, ext)

	payload := []byte("%PDF-1.7 ...")
	doc, err := svc.Upload(context.Background(), "putusan.pdf", "", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(doc.ID(), "upload_") {
		t.Errorf("expected upload_ ID prefix, got %q", doc.ID())
	}
	if doc.Title() != "Uploaded PDF Document" {
		t.Errorf("unexpected default title: %q", doc.Title())
	}
	if doc.SourceURL() != "uploaded:putusan.pdf" {
		t.Errorf("unexpected source: %q", doc.SourceURL())
	}
	if string(ext.lastData) != string(payload) {
		t.Error("extractor should receive the raw payload")
	}
	if _, ok := store.docs[doc.ID()]; !ok {
		t.Error("document should be stored for later retrieval")
	}
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	ext := &mockExtractor{err: domain.ErrUnsupportedFormat}
	svc := newTestService(newMockStore(), ext)

	_, err := svc.Upload(context.Background(), "not-a-pdf.txt", "", []byte("plain text"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestUpload_StoreFailureStillReturnsDocument(t *testing.T) {
	store := newMockStore()
	store.saveErr = errors.New("kv write failed")
	svc := newTestService(store, &mockExtractor{text: "isi"})

	doc, err := svc.Upload(context.Background(), "a.pdf", "Judul", []byte("%PDF-"))
	if err != nil {
		t.Fatalf("store failure must not fail the upload, got: %v", err)
	}
	if doc.Content() != "isi" {
		t.Errorf("unexpected content: %q", doc.Content())
	}
}
