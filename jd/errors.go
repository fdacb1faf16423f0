package jd

import "errors"

var (
	// Configuration errors.
	ErrInvalidKind         = errors.New(`jd: kind must be either "evoked" or "difference"`)
	ErrAmbiguousConditions = errors.New("jd: difference mode needs exactly two conditions")
	ErrInvalidOption       = errors.New("jd: invalid option")

	// Precondition errors.
	ErrNotFitted = errors.New("jd: model not fitted")

	// Numerical errors.
	ErrRank                  = errors.New("jd: requested components exceed available rank")
	ErrNonPositiveEigenvalue = errors.New("jd: non-positive eigenvalue, covariance is rank deficient")
	ErrDimensionMismatch     = errors.New("jd: dimension mismatch")
	ErrFactorization         = errors.New("jd: eigendecomposition did not converge")

	ErrUnsupportedKind = errors.New("jd: operation not supported for this kind")
)
