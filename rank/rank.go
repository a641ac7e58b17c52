package rank

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/semhist/semhist/intent"
	"github.com/semhist/semhist/vector"
)

// Item is one candidate page presented to the engine. Summary may be empty;
// Embedding may be nil when embedding generation failed at capture time.
type Item struct {
	ID        int64
	URL       string
	Title     string
	Summary   string
	Timestamp int64 // milliseconds since epoch
	Embedding []float32
}

// Result pairs an item with its final score in [0, 1].
type Result struct {
	Item  Item
	Score float64
}

// Config tunes filtering and truncation. Two defaults circulated historically
// (0.3/10 for the baseline scorer, 0.35/20 for the richer one); both are
// plain configuration here.
type Config struct {
	// MinScore drops primary-mode results scoring below it.
	MinScore float64
	// MaxResults truncates the result list. Zero means DefaultConfig's cap.
	MaxResults int
}

// DefaultConfig returns the richer engine's defaults.
func DefaultConfig() Config {
	return Config{MinScore: 0.35, MaxResults: 20}
}

const (
	vectorWeight = 0.6

	titleMatchBonus    = 0.35
	summaryMatchBonus  = 0.25
	entityTitleBonus   = 0.15
	entitySummaryBonus = 0.10
	domainTokenBonus   = 0.30
	temporalBonus      = 0.15

	recencyMax  = 0.15
	recencyDays = 30

	fallbackTitleBonus    = 0.7
	fallbackSummaryBonus  = 0.5
	fallbackCategoryBonus = 0.4
	fallbackRecencyMax    = 0.2
	fallbackRecencyDays   = 7
)

// Engine ranks candidates for queries. It is safe for concurrent use.
type Engine struct {
	cfg     Config
	intents map[string]intent.Definition
	now     func() time.Time
}

// NewEngine builds an Engine over the given intent table.
func NewEngine(cfg Config, defs []intent.Definition) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	byName := make(map[string]intent.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	return &Engine{cfg: cfg, intents: byName, now: time.Now}
}

// Rank scores items in primary mode. query must be lower-cased and trimmed;
// queryEmbedding may be nil, in which case the vector term contributes zero
// for every candidate (the remaining heuristic terms still apply). An empty
// query or candidate list yields an empty result.
func (e *Engine) Rank(query string, items []Item, queryEmbedding []float32, analysis intent.Analysis) []Result {
	if query == "" || len(items) == 0 {
		return nil
	}

	now := e.now()
	results := make([]Result, 0, len(items))
	for _, it := range items {
		score := 0.0

		// Vector term. Skipped per candidate when either side has no
		// embedding or the dimensions disagree; UnitCosine returns 0 then.
		if queryEmbedding != nil && it.Embedding != nil {
			score += vector.UnitCosine(queryEmbedding, it.Embedding) * vectorWeight
		}

		score += e.intentBoost(it, analysis)
		score += e.textMatch(it, query, analysis)
		score += recencyBonus(now, it.Timestamp, recencyMax, recencyDays)

		if score > 1 {
			score = 1
		}
		if score >= e.cfg.MinScore {
			results = append(results, Result{Item: it, Score: score})
		}
	}

	return e.finish(results)
}

// RankFallback scores items without any vector math: literal text matches, a
// few hardcoded category heuristics, and a steeper 7-day recency curve. Any
// positive score qualifies; the usual cap still applies.
func (e *Engine) RankFallback(query string, items []Item) []Result {
	if query == "" || len(items) == 0 {
		return nil
	}

	now := e.now()
	results := make([]Result, 0, len(items))
	for _, it := range items {
		title := strings.ToLower(it.Title)
		summary := strings.ToLower(it.Summary)

		score := 0.0
		if strings.Contains(title, query) {
			score += fallbackTitleBonus
		}
		if summary != "" && strings.Contains(summary, query) {
			score += fallbackSummaryBonus
		}
		if matchesCategoryHeuristic(query, title, summary, strings.ToLower(it.URL)) {
			score += fallbackCategoryBonus
		}
		score += recencyBonus(now, it.Timestamp, fallbackRecencyMax, fallbackRecencyDays)

		if score > 1 {
			score = 1
		}
		if score > 0 {
			results = append(results, Result{Item: it, Score: score})
		}
	}

	return e.finish(results)
}

// finish orders results by score descending (stable, so input order breaks
// ties) and truncates to the configured cap.
func (e *Engine) finish(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > e.cfg.MaxResults {
		results = results[:e.cfg.MaxResults]
	}
	return results
}

// intentBoost accumulates, for every detected intent, a domain boost when the
// candidate's hostname contains one of the intent's domains, plus smaller
// boosts when any intent keyword appears in the title or summary. Intents
// accumulate independently; the final clamp bounds the total.
func (e *Engine) intentBoost(it Item, analysis intent.Analysis) float64 {
	if len(analysis.Intents) == 0 {
		return 0
	}

	host := hostname(it.URL)
	title := strings.ToLower(it.Title)
	summary := strings.ToLower(it.Summary)

	boost := 0.0
	for _, det := range analysis.Intents {
		def, ok := e.intents[det.Name]
		if !ok {
			continue
		}
		for _, d := range def.Domains {
			if host != "" && strings.Contains(host, d) {
				boost += def.Boost * det.Strength
				break
			}
		}
		if containsAny(title, def.Keywords) {
			boost += def.Boost * 0.5 * det.Strength
		}
		if summary != "" && containsAny(summary, def.Keywords) {
			boost += def.Boost * 0.3 * det.Strength
		}
	}
	return boost
}

// textMatch scores literal occurrences of the query and its extracted
// entities. A full-query title match and summary match are mutually
// exclusive; entity bonuses are additive across entities.
func (e *Engine) textMatch(it Item, query string, analysis intent.Analysis) float64 {
	title := strings.ToLower(it.Title)
	summary := strings.ToLower(it.Summary)
	rawURL := strings.ToLower(it.URL)

	score := 0.0
	if strings.Contains(title, query) {
		score += titleMatchBonus
	} else if summary != "" && strings.Contains(summary, query) {
		score += summaryMatchBonus
	}

	for _, entity := range analysis.Entities {
		entity = strings.ToLower(entity)
		if strings.Contains(title, entity) {
			score += entityTitleBonus
		} else if summary != "" && strings.Contains(summary, entity) {
			score += entitySummaryBonus
		}
	}

	for _, tok := range strings.Fields(query) {
		if hasDomainSuffix(tok) && strings.Contains(rawURL, tok) {
			score += domainTokenBonus
		}
	}

	// Flat bonus for recent-sounding queries. This intentionally stacks with
	// the recency decay term; see the tuning note in DESIGN.md.
	if containsAny(query, []string{"today", "yesterday", "recent"}) {
		score += temporalBonus
	}

	return score
}

// recencyBonus decays linearly from max at age zero to nothing at cutoffDays.
func recencyBonus(now time.Time, timestampMS int64, max float64, cutoffDays float64) float64 {
	if timestampMS <= 0 {
		return 0
	}
	age := now.Sub(time.UnixMilli(timestampMS))
	days := age.Hours() / 24
	if days < 0 {
		days = 0
	}
	if days >= cutoffDays {
		return 0
	}
	return max * (1 - days/cutoffDays)
}

// matchesCategoryHeuristic implements the fallback path's special cases:
// entertainment, recipes, and tech queries matched against well-known field
// keywords and hosts, independent of the full intent table.
func matchesCategoryHeuristic(query, title, summary, rawURL string) bool {
	if containsAny(query, []string{"funny", "comedy", "laugh"}) {
		if containsAny(title, []string{"funny", "comedy"}) ||
			containsAny(summary, []string{"laugh", "humor", "joke"}) ||
			containsAny(rawURL, []string{"youtube.com", "tiktok.com", "reddit.com"}) {
			return true
		}
	}
	if containsAny(query, []string{"recipe", "food", "cook"}) {
		if containsAny(title, []string{"recipe", "food", "cook"}) ||
			strings.Contains(summary, "ingredient") ||
			containsAny(rawURL, []string{"allrecipes.com", "food", "recipe"}) {
			return true
		}
	}
	if containsAny(query, []string{"tech", "code", "program"}) {
		if containsAny(title, []string{"tech", "code", "program"}) ||
			containsAny(rawURL, []string{"github.com", "stackoverflow.com"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasDomainSuffix(tok string) bool {
	return strings.HasSuffix(tok, ".com") || strings.HasSuffix(tok, ".org") || strings.HasSuffix(tok, ".net")
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
