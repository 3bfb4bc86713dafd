package vectorsearch

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/WessleyAI/census-search/engine/annindex"
	"github.com/WessleyAI/census-search/engine/chunks"
	"github.com/WessleyAI/census-search/engine/domain"
)

type fakeSearcher struct {
	labels []int64
	err    error
	gotK   int
}

func (f *fakeSearcher) Search(_ context.Context, query []float32, k int) ([]int64, []float32, error) {
	f.gotK = k
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.labels, make([]float32, len(f.labels)), nil
}

type recordingResolver struct {
	got []int64
}

func (r *recordingResolver) Resolve(_ context.Context, labels []int64) []json.RawMessage {
	r.got = labels
	out := make([]json.RawMessage, 0, len(labels))
	for _, l := range labels {
		b, _ := json.Marshal(map[string]int64{"global_id": l})
		out = append(out, b)
	}
	return out
}

func chunkServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chunk_0.json":
			w.Write([]byte(`[{"global_id": 0, "title": "ACS income"}, {"global_id": 1, "title": "ACS poverty"}]`))
		case "/chunk_1.json":
			w.Write([]byte(`[{"global_id": 2, "title": "Decennial housing"}, {"global_id": 4, "title": "CPS employment"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeIndex(t *testing.T, vectors ...[]float32) string {
	t.Helper()
	ix, err := annindex.New(annindex.MetricL2, len(vectors[0]))
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Add(vectors...); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "census_index.faiss")
	if err := ix.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func titles(t *testing.T, records []json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(records))
	for _, rec := range records {
		var v struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(rec, &v); err != nil {
			t.Fatal(err)
		}
		out = append(out, v.Title)
	}
	return out
}

func TestSearch_DropsSentinel(t *testing.T) {
	searcher := &fakeSearcher{labels: []int64{4, annindex.NoLabel}}
	resolver := &recordingResolver{}
	svc := New(searcher, resolver, nil, nil)

	records, err := svc.Search(context.Background(), Request{Embedding: []float32{0.1, 0.2, 0.3}, Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if searcher.gotK != 2 {
		t.Fatalf("expected k=2, got %d", searcher.gotK)
	}
	if len(resolver.got) != 1 || resolver.got[0] != 4 {
		t.Fatalf("expected resolver to see [4], got %v", resolver.got)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	resolver := &recordingResolver{}
	svc := New(&fakeSearcher{labels: []int64{1, 2, 3, 4}}, resolver, nil, nil)

	records, err := svc.Search(context.Background(), Request{Embedding: []float32{1}, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || resolver.got[0] != 1 || resolver.got[1] != 2 {
		t.Fatalf("expected labels [1 2], got %v", resolver.got)
	}
}

func TestSearch_SearcherError(t *testing.T) {
	boom := errors.New("boom")
	svc := New(&fakeSearcher{err: boom}, &recordingResolver{}, nil, nil)

	if _, err := svc.Search(context.Background(), Request{Embedding: []float32{1}, Limit: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestSearch_NeverNil(t *testing.T) {
	svc := New(&fakeSearcher{labels: []int64{annindex.NoLabel}}, &recordingResolver{}, nil, nil)

	records, err := svc.Search(context.Background(), Request{Embedding: []float32{1}, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if records == nil {
		t.Fatal("expected empty, non-nil slice")
	}
	b, _ := json.Marshal(records)
	if string(b) != "[]" {
		t.Fatalf("expected [] encoding, got %s", b)
	}
}

func TestFileSearcher_EndToEnd(t *testing.T) {
	path := writeIndex(t,
		[]float32{0, 0, 0},
		[]float32{1, 1, 1},
		[]float32{0.5, 0.5, 0.5},
		[]float32{9, 9, 9},
		[]float32{0.1, 0.2, 0.3},
	)
	srv := chunkServer(t)
	resolver := &chunks.Resolver{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Map: chunks.Map{
			0: "chunk_0.json",
			1: "chunk_0.json",
			2: "chunk_1.json",
			4: "chunk_1.json",
		},
	}
	svc := New(FileSearcher{Path: path}, resolver, nil, nil)

	records, err := svc.Search(context.Background(), Request{Embedding: []float32{0.1, 0.2, 0.3}, Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := titles(t, records)
	want := []string{"CPS employment", "ACS income", "Decennial housing"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFileSearcher_UnmappedLabelDropped(t *testing.T) {
	path := writeIndex(t, []float32{0, 0}, []float32{1, 1}, []float32{2, 2})
	srv := chunkServer(t)
	resolver := &chunks.Resolver{BaseURL: srv.URL, Client: srv.Client(), Map: chunks.Map{0: "chunk_0.json"}}
	svc := New(FileSearcher{Path: path}, resolver, nil, nil)

	records, err := svc.Search(context.Background(), Request{Embedding: []float32{0, 0}, Limit: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := titles(t, records); len(got) != 1 || got[0] != "ACS income" {
		t.Fatalf("expected only label 0, got %v", got)
	}
}

func TestFileSearcher_MissingIndex(t *testing.T) {
	s := FileSearcher{Path: filepath.Join(t.TempDir(), "missing.faiss")}
	_, _, err := s.Search(context.Background(), []float32{1}, 1)
	if !errors.Is(err, domain.ErrIndexLoad) {
		t.Fatalf("expected ErrIndexLoad, got %v", err)
	}
	if domain.StatusCode(err) != http.StatusInternalServerError {
		t.Fatal("index load failure must map to 500")
	}
}

func TestFileSearcher_DimensionMismatch(t *testing.T) {
	s := FileSearcher{Path: writeIndex(t, []float32{1, 2, 3})}
	_, _, err := s.Search(context.Background(), []float32{1}, 1)
	if !errors.Is(err, domain.ErrIndexSearch) {
		t.Fatalf("expected ErrIndexSearch, got %v", err)
	}
}

func TestFileSearcher_MaxLimitBoundedByIndex(t *testing.T) {
	s := FileSearcher{Path: writeIndex(t, []float32{0.1, 0.2, 0.3})}
	labels, distances, err := s.Search(context.Background(), []float32{0.1, 0.2, 0.3}, math.MaxInt32)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(labels) != 1 || len(distances) != 1 || labels[0] != 0 {
		t.Fatalf("expected a single label 0, got %v", labels)
	}
}
