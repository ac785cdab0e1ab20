package analysis

import (
	"math"
	"math/cmplx"
)

// PowerSpectrum returns the magnitude spectrum of a scalar series, zero-padded
// to the next power of two; only the positive-frequency half comes back. A
// chaotic trajectory shows a broadband spectrum with no dominant line.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}

	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, data)

	spec := fft(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// fft is a recursive radix-2 transform; len(data) must be a power of two.
func fft(data []float64) []complex128 {
	n := len(data)
	if n == 1 {
		return []complex128{complex(data[0], 0)}
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	fe := fft(even)
	fo := fft(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		out[k] = fe[k] + w*fo[k]
		out[k+n/2] = fe[k] - w*fo[k]
	}
	return out
}
