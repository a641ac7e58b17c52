package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/semhist/semhist/engine"
	"github.com/semhist/semhist/kv"
	"github.com/semhist/semhist/pipeline"
	"github.com/semhist/semhist/rank"
	"github.com/semhist/semhist/store"
)

func init() {
	engine.RegisterVectorFunctions()
}

type staticExtractor struct{}

func (staticExtractor) Extract(_ context.Context, url string) (pipeline.PageContent, error) {
	return pipeline.PageContent{
		Title:     "extracted",
		Text:      strings.Repeat("indexable text ", 20),
		WordCount: 40,
	}, nil
}

func newTestAPI(t *testing.T) (http.Handler, *store.PageStore) {
	t.Helper()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	pages, err := store.Open(ctx, db, 100, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	settings, err := kv.Open(ctx, db)
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}

	searcher := pipeline.NewSearcher(pages, nil, nil, rank.DefaultConfig(), nil)
	processor := pipeline.NewProcessor(pages, staticExtractor{}, nil, nil,
		pipeline.Options{BatchDelay: time.Millisecond}, nil)
	h := NewHandlers(searcher, processor, pages, settings, nil)
	return h.Routes(), pages
}

func seed(t *testing.T, pages *store.PageStore, url, title string, vec []float32) int64 {
	t.Helper()
	id, err := pages.Insert(context.Background(), store.Page{
		URL:       url,
		Title:     title,
		Timestamp: time.Now().UnixMilli(),
		Embedding: vec,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, target, err)
		}
	}
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)
	seed(t, pages, "https://a", "chocolate cake recipe", nil)

	var resp struct {
		Query   string         `json:"query"`
		Results []searchResult `json:"results"`
		Total   int            `json:"total"`
	}
	rec := doJSON(t, h, http.MethodGet, "/api/search?q=cake+recipe", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Total != 1 || resp.Results[0].URL != "https://a" {
		t.Fatalf("resp = %+v", resp)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpointEmptyIndex(t *testing.T) {
	h, _ := newTestAPI(t)

	var resp struct {
		Results []searchResult `json:"results"`
	}
	rec := doJSON(t, h, http.MethodGet, "/api/search?q=anything", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with nothing indexed", rec.Code)
	}
	if resp.Results == nil {
		t.Fatal("results missing from response, want empty array")
	}
}

func TestRecentEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)
	seed(t, pages, "https://a", "a", nil)
	seed(t, pages, "https://b", "b", nil)

	var resp struct {
		Results []store.PageInfo `json:"results"`
		Total   int              `json:"total"`
	}
	rec := doJSON(t, h, http.MethodGet, "/api/recent?limit=1", "", &resp)
	if rec.Code != http.StatusOK || resp.Total != 1 {
		t.Fatalf("status = %d, resp = %+v", rec.Code, resp)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)
	ref := seed(t, pages, "https://ref", "ref", []float32{1, 0})
	seed(t, pages, "https://near", "near", []float32{0.9, 0.1})

	var resp struct {
		Results []store.SimilarPage `json:"results"`
	}
	rec := doJSON(t, h, http.MethodGet, "/api/similar?id="+itoa(ref), "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://near" {
		t.Fatalf("resp = %+v", resp)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/similar?id=99999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing page status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/similar", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)
	seed(t, pages, "https://a", "a", nil)

	var stats pipeline.Stats
	rec := doJSON(t, h, http.MethodGet, "/api/stats", "", &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stats.Pages != 1 || stats.MaxEntries != 100 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReindexEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)

	body := `[{"url":"https://example.com/1","title":"one"},{"url":"https://example.com/1","title":"dup"}]`
	var sum pipeline.Summary
	rec := doJSON(t, h, http.MethodPost, "/api/reindex", body, &sum)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if sum.Succeeded != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if n, _ := pages.Count(context.Background()); n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/reindex", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/reindex", "not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", rec.Code)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	h, _ := newTestAPI(t)

	var empty map[string]any
	rec := doJSON(t, h, http.MethodGet, "/api/settings", "", &empty)
	if rec.Code != http.StatusOK || len(empty) != 0 {
		t.Fatalf("initial settings = %d %v", rec.Code, empty)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/settings", `{"minScore":0.4}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}

	var saved map[string]any
	doJSON(t, h, http.MethodGet, "/api/settings", "", &saved)
	if saved["minScore"] != 0.4 {
		t.Fatalf("saved settings = %v", saved)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/settings", "[]", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-object settings status = %d, want 400", rec.Code)
	}
}

func TestClearEndpoint(t *testing.T) {
	h, pages := newTestAPI(t)
	seed(t, pages, "https://a", "a", nil)

	rec := doJSON(t, h, http.MethodPost, "/api/clear", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n, _ := pages.Count(context.Background()); n != 0 {
		t.Fatalf("Count = %d, want 0", n)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/clear", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
