package store

import (
	"context"
	"errors"
	"testing"

	"github.com/semhist/semhist/engine"
)

func init() {
	engine.RegisterVectorFunctions()
}

func openStore(t *testing.T, maxEntries int) *PageStore {
	t.Helper()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := Open(context.Background(), db, maxEntries, nil)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	return s
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	id, err := s.Insert(ctx, Page{
		URL:       "https://example.com/a",
		Title:     "A page",
		Summary:   "About things.",
		Timestamp: 1000,
		WordCount: 42,
		Embedding: []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("Insert id = %d, want > 0", id)
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p == nil {
		t.Fatal("GetByID returned nil for existing id")
	}
	if p.URL != "https://example.com/a" || p.WordCount != 42 {
		t.Fatalf("GetByID = %+v", p)
	}
	if len(p.Embedding) != 2 || p.Embedding[1] != 0.2 {
		t.Fatalf("embedding roundtrip = %v", p.Embedding)
	}

	missing, err := s.GetByID(ctx, id+999)
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestInsertWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	id, err := s.Insert(ctx, Page{URL: "https://example.com", Timestamp: 1})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Embedding != nil {
		t.Fatalf("embedding = %v, want nil", p.Embedding)
	}
}

func TestPruneOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 3)

	for i := 0; i < 5; i++ {
		if _, err := s.Insert(ctx, Page{
			URL:       "https://example.com",
			Timestamp: int64(100 + i),
		}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	removed, err := s.PruneIfOverCapacity(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed %d, want 2", removed)
	}

	pages, err := s.ScanAll(ctx)
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3", len(pages))
	}
	for _, p := range pages {
		if p.Timestamp < 102 {
			t.Fatalf("old page survived prune: %+v", p)
		}
	}

	// Prune at capacity is a no-op.
	removed, err = s.PruneIfOverCapacity(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("second Prune = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestPruneTiebreakOnID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 1)

	first, err := s.Insert(ctx, Page{URL: "https://a", Timestamp: 100})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	second, err := s.Insert(ctx, Page{URL: "https://b", Timestamp: 100})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := s.PruneIfOverCapacity(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if p, _ := s.GetByID(ctx, first); p != nil {
		t.Fatal("lower-id page survived a same-timestamp prune")
	}
	if p, _ := s.GetByID(ctx, second); p == nil {
		t.Fatal("higher-id page pruned")
	}
}

func TestGetRecent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	for i := 0; i < 4; i++ {
		if _, err := s.Insert(ctx, Page{
			URL:       "https://example.com",
			Title:     "t",
			Timestamp: int64(100 + i),
			Embedding: []float32{1},
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	infos, err := s.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len = %d, want 2", len(infos))
	}
	if infos[0].Timestamp != 103 || infos[1].Timestamp != 102 {
		t.Fatalf("order = %d, %d, want 103, 102", infos[0].Timestamp, infos[1].Timestamp)
	}
}

func TestMostSimilar(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	ref, err := s.Insert(ctx, Page{URL: "https://ref", Timestamp: 1, Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("Insert ref: %v", err)
	}
	near, err := s.Insert(ctx, Page{URL: "https://near", Timestamp: 2, Embedding: []float32{0.9, 0.1}})
	if err != nil {
		t.Fatalf("Insert near: %v", err)
	}
	far, err := s.Insert(ctx, Page{URL: "https://far", Timestamp: 3, Embedding: []float32{0, 1}})
	if err != nil {
		t.Fatalf("Insert far: %v", err)
	}
	if _, err := s.Insert(ctx, Page{URL: "https://noemb", Timestamp: 4}); err != nil {
		t.Fatalf("Insert noemb: %v", err)
	}

	similar, err := s.MostSimilar(ctx, ref, 10)
	if err != nil {
		t.Fatalf("MostSimilar: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("len = %d, want 2 (reference and embedding-less pages excluded)", len(similar))
	}
	if similar[0].ID != near || similar[1].ID != far {
		t.Fatalf("order = %d, %d, want %d, %d", similar[0].ID, similar[1].ID, near, far)
	}
	if similar[0].Score <= similar[1].Score {
		t.Fatalf("scores not descending: %v, %v", similar[0].Score, similar[1].Score)
	}
}

func TestClearKeepsIDSequence(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	id1, err := s.Insert(ctx, Page{URL: "https://a", Timestamp: 1})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count after Clear = (%d, %v), want (0, nil)", n, err)
	}

	id2, err := s.Insert(ctx, Page{URL: "https://b", Timestamp: 2})
	if err != nil {
		t.Fatalf("Insert after Clear: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("id after Clear = %d, want > %d", id2, id1)
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := storageErr("insert", inner)
	if !errors.Is(err, inner) {
		t.Fatal("StorageError does not unwrap to its cause")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "insert" {
		t.Fatalf("errors.As = %+v", se)
	}
}
