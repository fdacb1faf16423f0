package epochs

import "gonum.org/v1/gonum/stat"

// Detrended returns a copy with the least-squares line removed from every
// (trial, channel) time series.
func (e *Epochs) Detrended() *Epochs {
	out := e.Clone()
	x := make([]float64, e.samples)
	for i := range x {
		x[i] = float64(i)
	}
	for off := 0; off < len(out.data); off += e.samples {
		detrendLinear(out.data[off:off+e.samples], x)
	}
	return out
}

// detrendLinear removes the least-squares line through (x, y) from y in place.
func detrendLinear(y, x []float64) {
	if len(y) < 2 {
		for i := range y {
			y[i] = 0
		}
		return
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	for i := range y {
		y[i] -= alpha + beta*x[i]
	}
}
