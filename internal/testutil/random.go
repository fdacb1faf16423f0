package testutil

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DeterministicMatrix returns a rows×cols matrix of standard normal values
// drawn from a fixed seed.
func DeterministicMatrix(seed int64, rows, cols int) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}
