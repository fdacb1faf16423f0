package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireMatrixNearlyEqual fails t if the matrices differ in shape or if any
// element pair exceeds eps (absolute tolerance).
func RequireMatrixNearlyEqual(t *testing.T, got, want mat.Matrix, eps float64) {
	t.Helper()
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Fatalf("shape mismatch: got (%d, %d), want (%d, %d)", gr, gc, wr, wc)
	}
	for i := range gr {
		for j := range gc {
			diff := math.Abs(got.At(i, j) - want.At(i, j))
			if diff > eps {
				t.Fatalf("(%d, %d): got %v, want %v (diff %v > eps %v)", i, j, got.At(i, j), want.At(i, j), diff, eps)
			}
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// Projector returns the orthogonal projector onto the column space of a,
// a(aᵀa)⁻¹aᵀ. It is invariant to column signs and to any invertible
// recombination of the columns, which makes it the right object to compare
// eigenvector bases.
func Projector(a mat.Matrix) (*mat.Dense, error) {
	var gram mat.Dense
	gram.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&gram); err != nil {
		return nil, err
	}
	var p mat.Dense
	p.Product(a, &inv, a.T())
	return &p, nil
}

// RequireSameSubspace fails t if the column spaces of a and b differ by more
// than eps in any element of their projectors.
func RequireSameSubspace(t *testing.T, a, b mat.Matrix, eps float64) {
	t.Helper()
	pa, err := Projector(a)
	if err != nil {
		t.Fatalf("projector of a: %v", err)
	}
	pb, err := Projector(b)
	if err != nil {
		t.Fatalf("projector of b: %v", err)
	}
	RequireMatrixNearlyEqual(t, pa, pb, eps)
}
