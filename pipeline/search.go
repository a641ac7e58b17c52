package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/semhist/semhist/intent"
	"github.com/semhist/semhist/qcache"
	"github.com/semhist/semhist/rank"
	"github.com/semhist/semhist/store"
)

// Searcher answers queries over the page store. It degrades in layers: a
// cached query embedding avoids the external call, a failed embedding call
// falls back to text-only ranking, and a failed store read yields an empty
// result list. Search never returns an error.
type Searcher struct {
	store    *store.PageStore
	embedder Embedder
	cache    *qcache.Cache
	engine   *rank.Engine
	analyzer *intent.Analyzer
	log      *slog.Logger
}

// NewSearcher wires a Searcher. embedder may be nil, forcing text-only
// ranking; cache may be nil to disable query-embedding caching.
func NewSearcher(st *store.PageStore, embedder Embedder, cache *qcache.Cache,
	cfg rank.Config, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	defs := intent.Defaults()
	return &Searcher{
		store:    st,
		embedder: embedder,
		cache:    cache,
		engine:   rank.NewEngine(cfg, defs),
		analyzer: intent.NewAnalyzer(defs),
		log:      log,
	}
}

// Search ranks stored pages against query. The result is never nil on
// success paths and never accompanied by an error; an empty slice means
// nothing matched or nothing could be read.
func (s *Searcher) Search(ctx context.Context, query string) []rank.Result {
	original := strings.TrimSpace(query)
	if original == "" {
		return []rank.Result{}
	}
	normalized := strings.ToLower(original)
	analysis := s.analyzer.Analyze(normalized, original)

	pages, err := s.store.ScanAll(ctx)
	if err != nil {
		s.log.Error("search could not read page store", "error", err)
		return []rank.Result{}
	}
	items := toRankItems(pages)

	embedding := s.queryEmbedding(ctx, normalized)
	if embedding == nil {
		results := s.engine.RankFallback(normalized, items)
		if results == nil {
			results = []rank.Result{}
		}
		return results
	}
	results := s.engine.Rank(normalized, items, embedding, analysis)
	if results == nil {
		results = []rank.Result{}
	}
	return results
}

// queryEmbedding returns the embedding for a normalized query, from cache
// when possible. Returns nil when no embedder is configured or the call
// failed; the caller falls back to text ranking.
func (s *Searcher) queryEmbedding(ctx context.Context, normalized string) []float32 {
	if s.embedder == nil {
		return nil
	}
	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, normalized); ok {
			return vec
		}
	}
	vec, err := s.embedder.EmbedQuery(ctx, normalized)
	if err != nil {
		s.log.Warn("query embedding failed, using text-only ranking", "error", err)
		return nil
	}
	if s.cache != nil {
		s.cache.Put(ctx, normalized, vec)
	}
	return vec
}

// Similar returns pages most similar to the page with the given id.
func (s *Searcher) Similar(ctx context.Context, id int64, limit int) ([]store.SimilarPage, error) {
	page, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("pipeline: page %d not found", id)
	}
	if page.Embedding == nil {
		return []store.SimilarPage{}, nil
	}
	similar, err := s.store.MostSimilar(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if similar == nil {
		similar = []store.SimilarPage{}
	}
	return similar, nil
}

// Stats describes the state of the index.
type Stats struct {
	Pages           int   `json:"pages"`
	MaxEntries      int   `json:"maxEntries"`
	NewestTimestamp int64 `json:"newestTimestamp"`
	CachedQuery     int   `json:"cachedQueryEmbeddings"`
}

// Stats reports index size against capacity, the newest capture time, and
// the query-cache fill.
func (s *Searcher) Stats(ctx context.Context) (Stats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Pages: n, MaxEntries: s.store.MaxEntries()}
	if newest, err := s.store.GetRecent(ctx, 1); err == nil && len(newest) > 0 {
		st.NewestTimestamp = newest[0].Timestamp
	}
	if s.cache != nil {
		st.CachedQuery = s.cache.Len()
	}
	return st, nil
}

func toRankItems(pages []store.Page) []rank.Item {
	items := make([]rank.Item, len(pages))
	for i, p := range pages {
		items[i] = rank.Item{
			ID:        p.ID,
			URL:       p.URL,
			Title:     p.Title,
			Summary:   p.Summary,
			Timestamp: p.Timestamp,
			Embedding: p.Embedding,
		}
	}
	return items
}
