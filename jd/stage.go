package jd

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Stage is one reduction stage (P, N, Q):
//
//	P  input → keep1 rotation onto the leading eigenvectors of XᵀX
//	N  keep1 × keep1 whitening, diag(1/sqrt(D))
//	Q  keep1 → keep2 rotation onto the leading eigenvectors of the
//	   bias-filtered covariance of the whitened data
type Stage struct {
	P *mat.Dense
	N *mat.DiagDense
	Q *mat.Dense

	// Power holds the retained eigenvalues D of XᵀX, descending.
	Power []float64
	// BiasPower holds the retained eigenvalues of the bias-filtered,
	// whitened covariance, descending. Since the whitened data has unit
	// total power per direction, these are biased-to-total power ratios.
	BiasPower []float64
}

// Unmixing returns P·N·Q.
func (s *Stage) Unmixing() *mat.Dense {
	var u mat.Dense
	u.Product(s.P, s.N, s.Q)
	return &u
}

// Mixing returns Qᵀ·N⁻¹·Pᵀ, the reduced-rank inverse of Unmixing.
func (s *Stage) Mixing() *mat.Dense {
	k := s.N.SymmetricDim()
	inv := make([]float64, k)
	for i := range inv {
		inv[i] = 1 / s.N.At(i, i)
	}
	var m mat.Dense
	m.Product(s.Q.T(), mat.NewDiagDense(k, inv), s.P.T())
	return &m
}

// Transform computes one reduction stage for x, a (trials·samples, inputs)
// matrix, and the bias filter l:
//
//  1. C0 = xᵀx, keep the keep1 leading eigenpairs (D, P)
//  2. N = diag(1/sqrt(D)), Z = x·P·N
//  3. Zbar = l·Z
//  4. C1 = Zbarᵀ·Zbar, keep the keep2 leading eigenvectors Q
//
// keep1 must be in [1, inputs] and keep2 in [1, keep1]. Retained eigenvalues
// of C0 must be positive, otherwise whitening is undefined and
// ErrNonPositiveEigenvalue is returned.
func Transform(x mat.Matrix, l BiasFilter, keep1, keep2 int) (*Stage, error) {
	rows, inputs := x.Dims()
	if _, c := l.Dims(); c != rows {
		return nil, fmt.Errorf("%w: bias filter spans %d rows, data has %d", ErrDimensionMismatch, c, rows)
	}
	if keep1 < 1 || keep1 > inputs {
		return nil, fmt.Errorf("%w: keep1 = %d with %d inputs", ErrRank, keep1, inputs)
	}
	if keep2 < 1 || keep2 > keep1 {
		return nil, fmt.Errorf("%w: keep2 = %d with keep1 = %d", ErrRank, keep2, keep1)
	}

	var c0 mat.SymDense
	c0.SymOuterK(1, x.T())
	d, p, err := leadingEigen(&c0, keep1)
	if err != nil {
		return nil, err
	}
	tol := float64(inputs) * eps * math.Max(floats.Max(d), 0)
	for i, v := range d {
		if v <= tol {
			return nil, fmt.Errorf("%w: eigenvalue %d of %d is %g", ErrNonPositiveEigenvalue, i+1, keep1, v)
		}
	}

	scale := make([]float64, keep1)
	for i, v := range d {
		scale[i] = 1 / math.Sqrt(v)
	}
	n := mat.NewDiagDense(keep1, scale)

	var z mat.Dense
	z.Product(x, p, n)
	zbar, err := l.Apply(&z)
	if err != nil {
		return nil, err
	}

	var c1 mat.SymDense
	c1.SymOuterK(1, zbar.T())
	dz, q, err := leadingEigen(&c1, keep2)
	if err != nil {
		return nil, err
	}

	return &Stage{P: p, N: n, Q: q, Power: d, BiasPower: dz}, nil
}

var eps = math.Nextafter(1, 2) - 1

// leadingEigen returns the keep largest eigenvalues of a and their
// eigenvectors as columns. Equal eigenvalues keep the solver's order.
func leadingEigen(a *mat.SymDense, keep int) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if !eig.Factorize(a, true) {
		return nil, nil, ErrFactorization
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return values[order[i]] > values[order[j]]
	})

	n := a.SymmetricDim()
	out := mat.NewDense(n, keep, nil)
	col := make([]float64, n)
	kept := make([]float64, keep)
	for j, idx := range order[:keep] {
		mat.Col(col, idx, &vectors)
		out.SetCol(j, col)
		kept[j] = values[idx]
	}
	return kept, out, nil
}
