package jd

import (
	"fmt"
	"slices"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

// BiasFilter is the block matrix L = [w₀·I, w₁·I, …, wₙ₋₁·I] made of one
// samples×samples identity block per trial, each scaled by a trial weight.
// Applied to flattened (trial·sample, k) data it sums the trials sample by
// sample, so LᵀL-weighted covariances measure the power of the (signed)
// trial sum.
//
// The matrix is kept in structured form; Dense materializes it.
type BiasFilter struct {
	samples int
	weights []float64
}

// NewBiasFilter returns a filter with one identity block of size samples per
// weight.
func NewBiasFilter(samples int, weights []float64) (BiasFilter, error) {
	if samples <= 0 || len(weights) == 0 {
		return BiasFilter{}, fmt.Errorf("%w: bias filter needs samples > 0 and at least one trial", ErrDimensionMismatch)
	}
	return BiasFilter{samples: samples, weights: slices.Clone(weights)}, nil
}

// EvokedFilter tiles an unweighted identity block once per trial.
func EvokedFilter(trials, samples int) BiasFilter {
	w := make([]float64, trials)
	for i := range w {
		w[i] = 1
	}
	return BiasFilter{samples: samples, weights: w}
}

// DifferenceFilter weights the first trialsA trials by +1 and the following
// trialsB trials by -1.
func DifferenceFilter(trialsA, trialsB, samples int) BiasFilter {
	w := make([]float64, trialsA+trialsB)
	for i := range w {
		if i < trialsA {
			w[i] = 1
		} else {
			w[i] = -1
		}
	}
	return BiasFilter{samples: samples, weights: w}
}

// Dims returns the shape of L: (samples, trials·samples).
func (f BiasFilter) Dims() (r, c int) {
	return f.samples, f.samples * len(f.weights)
}

// Trials returns the number of identity blocks.
func (f BiasFilter) Trials() int { return len(f.weights) }

// Dense materializes L.
func (f BiasFilter) Dense() *mat.Dense {
	r, c := f.Dims()
	out := mat.NewDense(r, c, nil)
	for trial, w := range f.weights {
		for s := range f.samples {
			out.Set(s, trial*f.samples+s, w)
		}
	}
	return out
}

// Apply returns L·z for z of shape (trials·samples, k), i.e. the weighted
// sum of the per-trial row blocks of z.
func (f BiasFilter) Apply(z mat.Matrix) (*mat.Dense, error) {
	rows, k := z.Dims()
	_, c := f.Dims()
	if rows != c {
		return nil, fmt.Errorf("%w: bias filter spans %d rows, data has %d", ErrDimensionMismatch, c, rows)
	}

	zd, ok := z.(*mat.Dense)
	if !ok || zd.RawMatrix().Stride != k {
		zd = mat.DenseCopyOf(z)
	}
	raw := zd.RawMatrix()
	block := f.samples * k
	acc := make([]float64, block)
	scratch := make([]float64, block)
	for trial, w := range f.weights {
		src := raw.Data[trial*block : (trial+1)*block]
		switch w {
		case 0:
		case 1:
			vecmath.AddBlockInPlace(acc, src)
		default:
			vecmath.ScaleBlock(scratch, src, w)
			vecmath.AddBlockInPlace(acc, scratch)
		}
	}
	return mat.NewDense(f.samples, k, acc), nil
}
