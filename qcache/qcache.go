// Package qcache caches query embeddings so repeated searches for the same
// text skip the external embedding call. Entries are capped and evicted
// oldest-inserted-first, and expire after a TTL. The cache writes through to
// a kv.Store so it survives restarts.
package qcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/semhist/semhist/kv"
)

const (
	// DefaultMaxEntries bounds how many query embeddings are kept.
	DefaultMaxEntries = 50
	// DefaultTTL is how long an entry stays valid after insertion.
	DefaultTTL = 24 * time.Hour

	storageKey = "query_embedding_cache"
)

// Entry is one cached query embedding. InsertedAt is a unix-millisecond
// timestamp and orders eviction.
type Entry struct {
	Vector     []float32 `json:"vector"`
	InsertedAt int64     `json:"insertedAt"`
}

// Cache is an in-memory query-embedding cache with optional kv persistence.
// Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	maxEntries int
	ttl        time.Duration
	store      *kv.Store
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries overrides the entry cap. Values < 1 are ignored.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n >= 1 {
			c.maxEntries = n
		}
	}
}

// WithTTL overrides the entry lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStore enables write-through persistence. Persistence failures are
// logged, not returned: a broken snapshot must never fail a search.
func WithStore(store *kv.Store) Option {
	return func(c *Cache) { c.store = store }
}

// WithLogger overrides the logger used for persistence warnings.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New returns an empty cache with the default cap and TTL.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    map[string]Entry{},
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores the persisted snapshot, if any. A missing or unreadable
// snapshot leaves the cache empty; the error is logged and swallowed because
// the cache is rebuilt on use anyway.
func (c *Cache) Load(ctx context.Context) {
	if c.store == nil {
		return
	}
	var snapshot map[string]Entry
	ok, err := c.store.GetJSON(ctx, storageKey, &snapshot)
	if err != nil {
		c.log.Warn("query cache snapshot unreadable, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range snapshot {
		if len(e.Vector) == 0 {
			continue
		}
		c.entries[key] = e
	}
	c.evictLocked()
}

// Get returns the embedding cached for key, or (nil, false) when absent or
// expired. Expired entries are removed on access.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expiredLocked(e) {
		delete(c.entries, key)
		c.persistLocked(ctx)
		return nil, false
	}
	return e.Vector, true
}

// Put stores an embedding for key, evicting the oldest entries when over
// capacity, and persists the new snapshot.
func (c *Cache) Put(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Vector: vec, InsertedAt: c.now().UnixMilli()}
	c.evictLocked()
	c.persistLocked(ctx)
}

// Cleanup drops expired entries and persists the result. Returns how many
// entries were removed.
func (c *Cache) Cleanup(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expiredLocked(e) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked(ctx)
	}
	return removed
}

// Len reports how many entries are currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expiredLocked(e Entry) bool {
	return c.now().UnixMilli()-e.InsertedAt > c.ttl.Milliseconds()
}

// evictLocked removes oldest-inserted entries until the cache fits the cap.
// Ties break on key so eviction is deterministic.
func (c *Cache) evictLocked() {
	over := len(c.entries) - c.maxEntries
	if over <= 0 {
		return
	}
	type aged struct {
		key        string
		insertedAt int64
	}
	all := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, aged{key, e.InsertedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].insertedAt != all[j].insertedAt {
			return all[i].insertedAt < all[j].insertedAt
		}
		return all[i].key < all[j].key
	})
	for _, a := range all[:over] {
		delete(c.entries, a.key)
	}
}

func (c *Cache) persistLocked(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.PutJSON(ctx, storageKey, c.entries); err != nil {
		c.log.Warn("query cache snapshot write failed", "error", err)
	}
}
