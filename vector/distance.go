package vector

import (
	"math"

	"github.com/viant/vec/search"
)

// Cosine computes the cosine similarity between a and b in [-1, 1].
//
// Unlike the usual contract, invalid input is not an error: vectors of
// different (or zero) length and zero-magnitude vectors yield 0. Scoring
// treats such pairs as "no evidence", which must not abort a search over
// thousands of candidates.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	va := search.Float32s(a)
	vb := search.Float32s(b)
	ma := va.Magnitude()
	mb := vb.Magnitude()
	if ma == 0 || mb == 0 {
		return 0
	}
	// viant/vec exposes cosine distance (1 - similarity). On non-arm64 the
	// magnitude-taking variant is exported as CosineDistanceWithMagnitudesNeon.
	return 1 - float64(va.CosineDistanceWithMagnitudesNeon(b, ma, mb))
}

// UnitCosine remaps cosine similarity to [0, 1] via (cos+1)/2, for blended
// scores where every term must lie in the unit interval. Invalid input yields
// 0 (not 0.5): an absent or mismatched embedding contributes nothing.
func UnitCosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	va := search.Float32s(a)
	ma := va.Magnitude()
	mb := search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 0
	}
	return (1 - float64(va.CosineDistanceWithMagnitudesNeon(b, ma, mb)) + 1) / 2
}

// Euclidean computes the L2 distance between a and b. Mismatched or empty
// vectors are infinitely far apart.
func Euclidean(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	return float64(search.Float32s(a).EuclideanDistance(b))
}
