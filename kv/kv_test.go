package kv

import (
	"context"
	"testing"

	"github.com/semhist/semhist/engine"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := Open(context.Background(), db)
	if err != nil {
		t.Fatalf("kv.Open failed: %v", err)
	}
	return s
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	got, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if got != nil {
		t.Fatalf("Get missing = %v, want nil", got)
	}

	if err := s.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("Get = %q, want v2", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	got, err = s.Get(ctx, "k")
	if err != nil || got != nil {
		t.Fatalf("Get after delete = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestJSONRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	type settings struct {
		MinScore   float64 `json:"minScore"`
		MaxResults int     `json:"maxResults"`
	}

	var out settings
	ok, err := s.GetJSON(ctx, "settings", &out)
	if err != nil {
		t.Fatalf("GetJSON missing: %v", err)
	}
	if ok {
		t.Fatal("GetJSON missing reported ok")
	}

	in := settings{MinScore: 0.35, MaxResults: 20}
	if err := s.PutJSON(ctx, "settings", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	ok, err = s.GetJSON(ctx, "settings", &out)
	if err != nil || !ok {
		t.Fatalf("GetJSON = (%v, %v), want (true, nil)", ok, err)
	}
	if out != in {
		t.Fatalf("GetJSON = %+v, want %+v", out, in)
	}
}
