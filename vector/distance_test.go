package vector

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5}
	neg := []float32{-0.3, 1.2, -4.5}

	if got := Cosine(v, v); math.Abs(got-1) > 1e-6 {
		t.Fatalf("Cosine(v, v) = %v, want 1", got)
	}
	if got := Cosine(v, neg); math.Abs(got+1) > 1e-6 {
		t.Fatalf("Cosine(v, -v) = %v, want -1", got)
	}

	// Orthogonal vectors.
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("Cosine(e1, e2) = %v, want 0", got)
	}
}

func TestCosine_InvalidInput(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Fatalf("Cosine with mismatched lengths = %v, want 0", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("Cosine(nil, nil) = %v, want 0", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Fatalf("Cosine with zero-magnitude vector = %v, want 0", got)
	}
}

func TestUnitCosine(t *testing.T) {
	a := []float32{1, 0}

	if got := UnitCosine(a, a); math.Abs(got-1) > 1e-6 {
		t.Fatalf("UnitCosine(a, a) = %v, want 1", got)
	}
	if got := UnitCosine(a, []float32{-1, 0}); math.Abs(got) > 1e-6 {
		t.Fatalf("UnitCosine(a, -a) = %v, want 0", got)
	}
	if got := UnitCosine(a, []float32{0, 1}); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("UnitCosine(e1, e2) = %v, want 0.5", got)
	}

	// Invalid input must contribute nothing, not the midpoint.
	if got := UnitCosine(a, nil); got != 0 {
		t.Fatalf("UnitCosine(a, nil) = %v, want 0", got)
	}
}

func TestEuclidean(t *testing.T) {
	d := Euclidean([]float32{0, 0}, []float32{3, 4})
	if math.Abs(d-5) > 1e-6 {
		t.Fatalf("Euclidean((0,0),(3,4)) = %v, want 5", d)
	}
	if d := Euclidean([]float32{1}, []float32{1, 2}); !math.IsInf(d, 1) {
		t.Fatalf("Euclidean with mismatched lengths = %v, want +Inf", d)
	}
}
