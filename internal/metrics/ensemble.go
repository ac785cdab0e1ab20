// Package metrics computes ensemble diagnostics for assimilation runs:
// per-row statistics of nstate x nsamples ensembles and running summaries
// accumulated across cycles.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Means returns the per-row sample mean of an ensemble matrix.
func Means(x *mat.Dense) []float64 {
	rows, _ := x.Dims()
	means := make([]float64, rows)
	for i := 0; i < rows; i++ {
		means[i] = stat.Mean(x.RawRowView(i), nil)
	}
	return means
}

// Spreads returns the per-row sample standard deviation. A one-member
// ensemble has no spread; every row reports 0.
func Spreads(x *mat.Dense) []float64 {
	rows, cols := x.Dims()
	spreads := make([]float64, rows)
	if cols < 2 {
		return spreads
	}
	for i := 0; i < rows; i++ {
		spreads[i] = stat.StdDev(x.RawRowView(i), nil)
	}
	return spreads
}

// RMSE is the root mean square error between an estimate and a reference of
// equal length.
func RMSE(est, ref []float64) float64 {
	if len(est) != len(ref) || len(est) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range est {
		d := est[i] - ref[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(est)))
}
