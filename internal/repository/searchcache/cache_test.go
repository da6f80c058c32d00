package searchcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/santara-labs/statuta/internal/db"
	"github.com/santara-labs/statuta/internal/domain/document"
	"github.com/santara-labs/statuta/internal/domain/search/query"
	"github.com/santara-labs/statuta/internal/domain/search/result"
)

type mockKVStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func mustQuery(t *testing.T, text string) query.Query {
	t.Helper()
	q, err := query.New(text, 0, 0, query.DefaultPreferences())
	if err != nil {
		t.Fatalf("query.New failed: %v", err)
	}
	return q
}

func testResponse(t *testing.T) result.Response {
	t.Helper()
	content := "Pasal 3. Pelaksanaan hak ulayat dan hak-hak yang serupa itu dari " +
		"masyarakat-masyarakat hukum adat harus sedemikian rupa sehingga sesuai " +
		"dengan kepentingan nasional dan Negara."
	doc := document.Reconstruct(
		document.MakeID(document.PrefixScraped, content),
		"UU No. 5 Tahun 1960", "https://peraturan.bpk.go.id/Home/Detail/271510",
		"Undang-undang", "24 September 1960", "", content, "", 1,
	)
	results := []result.Result{result.New(doc, 0.91, 1)}
	resp, err := result.NewResponse(
		"hak ulayat", "hak ulayat masyarakat hukum adat",
		[]string{"ulayat", "masyarakat", "adat"},
		results,
		"Hak ulayat diakui sepanjang kenyataannya masih ada.",
		[]result.Citation{{DocumentID: doc.ID(), Title: doc.Title(), SourceURL: doc.SourceURL()}},
	)
	if err != nil {
		t.Fatalf("NewResponse failed: %v", err)
	}
	return resp
}

func TestCache_PutAndGet(t *testing.T) {
	kv := newMockKVStore()
	c := New(kv, time.Hour, nil, zap.NewNop())
	q := mustQuery(t, "hak ulayat")
	resp := testResponse(t)

	c.Put(context.Background(), q, resp)
	if kv.lastTTL != time.Hour {
		t.Errorf("ttl = %v, expected 1h", kv.lastTTL)
	}

	got, ok := c.Get(context.Background(), q)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.OriginalQuery() != "hak ulayat" {
		t.Errorf("original query = %q", got.OriginalQuery())
	}
	if got.EnhancedQuery() != resp.EnhancedQuery() {
		t.Errorf("enhanced query = %q", got.EnhancedQuery())
	}
	if len(got.Results()) != 1 {
		t.Fatalf("results = %d", len(got.Results()))
	}
	r := got.Results()[0]
	if r.Score() != 0.91 || r.Rank() != 1 {
		t.Errorf("score/rank = %f/%d", r.Score(), r.Rank())
	}
	doc := r.Document()
	if doc.Title() != "UU No. 5 Tahun 1960" || !strings.Contains(doc.Content(), "hak ulayat") {
		t.Errorf("document round trip: %q", doc.Title())
	}
	if len(got.Citations()) != 1 || got.Citations()[0].DocumentID != doc.ID() {
		t.Errorf("citations = %+v", got.Citations())
	}
	if !got.Timestamp().Equal(resp.Timestamp()) {
		t.Errorf("timestamp = %v, expected %v", got.Timestamp(), resp.Timestamp())
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(newMockKVStore(), time.Hour, nil, zap.NewNop())

	_, ok := c.Get(context.Background(), mustQuery(t, "belum pernah dicari"))
	if ok {
		t.Error("expected cache miss")
	}
}

func TestCache_KeyVariesWithPreferences(t *testing.T) {
	base, err := query.New("hak ulayat", 0, 0, query.DefaultPreferences())
	if err != nil {
		t.Fatal(err)
	}
	concise, err := query.New("hak ulayat", 0, 0, query.Preferences{
		Verbosity: query.VerbosityConcise,
		Format:    query.FormatSimple,
		Citations: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	fewer, err := query.New("hak ulayat", 0, 3, query.DefaultPreferences())
	if err != nil {
		t.Fatal(err)
	}

	if Key(base) == Key(concise) {
		t.Error("verbosity change must change the key")
	}
	if Key(base) == Key(fewer) {
		t.Error("max results change must change the key")
	}
	if Key(base) != Key(base) {
		t.Error("key must be deterministic")
	}
}

func TestCache_GetFailsOpen(t *testing.T) {
	kv := newMockKVStore()
	kv.getErr = errors.New("connection reset")
	c := New(kv, time.Hour, nil, zap.NewNop())

	_, ok := c.Get(context.Background(), mustQuery(t, "hak ulayat"))
	if ok {
		t.Error("expected miss on store failure")
	}
}

func TestCache_CorruptEntryDegradesToMiss(t *testing.T) {
	kv := newMockKVStore()
	c := New(kv, time.Hour, nil, zap.NewNop())
	q := mustQuery(t, "hak ulayat")

	kv.data[Key(q)] = []byte("{broken")

	_, ok := c.Get(context.Background(), q)
	if ok {
		t.Error("expected miss for corrupt payload")
	}
}

func TestCache_PutWithoutTTL(t *testing.T) {
	kv := newMockKVStore()
	c := New(kv, 0, nil, zap.NewNop())
	q := mustQuery(t, "hak ulayat")

	c.Put(context.Background(), q, testResponse(t))
	if kv.lastTTL != 0 {
		t.Errorf("ttl = %v, expected plain Set", kv.lastTTL)
	}
	if _, ok := c.Get(context.Background(), q); !ok {
		t.Error("expected hit after put")
	}
}
