// Package rank scores candidate pages against a query and returns a
// thresholded, capped, descending-ordered result list. Scores are built up
// additively from vector similarity, intent/domain boosts, literal text
// matches, and a recency bonus, then clamped to [0, 1].
//
// Two modes exist. The primary mode blends vector similarity (when the query
// and candidate both carry embeddings) with the heuristic terms. The fallback
// mode is used when no query embedding could be obtained; it scores on text
// matches, a small set of category heuristics, and a steeper recency curve,
// and never touches vector math.
package rank
