package qcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/semhist/semhist/engine"
	"github.com/semhist/semhist/kv"
)

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	c := New()

	if _, ok := c.Get(ctx, "q"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}
	c.Put(ctx, "q", []float32{1, 2, 3})
	vec, ok := c.Get(ctx, "q")
	if !ok || len(vec) != 3 {
		t.Fatalf("Get = (%v, %v), want cached vector", vec, ok)
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	ctx := context.Background()
	c := New(WithMaxEntries(3))

	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		i := i
		c.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		c.Put(ctx, fmt.Sprintf("q%d", i), []float32{float32(i)})
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	c.now = func() time.Time { return base.Add(4 * time.Second) }
	if _, ok := c.Get(ctx, "q0"); ok {
		t.Fatal("oldest entry q0 survived eviction")
	}
	for _, key := range []string{"q1", "q2", "q3"} {
		if _, ok := c.Get(ctx, key); !ok {
			t.Fatalf("entry %s was evicted, want kept", key)
		}
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(WithTTL(time.Hour))

	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }
	c.Put(ctx, "q", []float32{1})

	c.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := c.Get(ctx, "q"); !ok {
		t.Fatal("entry expired before TTL")
	}

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := c.Get(ctx, "q"); ok {
		t.Fatal("entry survived past TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("Len after expiry = %d, want 0", c.Len())
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	c := New(WithTTL(time.Hour))

	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }
	c.Put(ctx, "old", []float32{1})
	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	c.Put(ctx, "fresh", []float32{2})

	c.now = func() time.Time { return base.Add(90 * time.Minute) }
	if removed := c.Cleanup(ctx); removed != 1 {
		t.Fatalf("Cleanup removed %d, want 1", removed)
	}
	if _, ok := c.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh entry removed by cleanup")
	}
}

func TestPersistenceRoundtrip(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	store, err := kv.Open(ctx, db)
	if err != nil {
		t.Fatalf("kv.Open failed: %v", err)
	}

	c1 := New(WithStore(store))
	c1.Put(ctx, "q", []float32{0.5, -0.25})

	c2 := New(WithStore(store))
	c2.Load(ctx)
	vec, ok := c2.Get(ctx, "q")
	if !ok {
		t.Fatal("restored cache missed persisted entry")
	}
	if vec[0] != 0.5 || vec[1] != -0.25 {
		t.Fatalf("restored vector = %v", vec)
	}
}

func TestLoadWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	store, err := kv.Open(ctx, db)
	if err != nil {
		t.Fatalf("kv.Open failed: %v", err)
	}

	c := New(WithStore(store))
	c.Load(ctx)
	if c.Len() != 0 {
		t.Fatalf("Len after empty Load = %d, want 0", c.Len())
	}
}
