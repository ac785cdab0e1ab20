package assim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ObservationSource serves reference observation vectors by assimilation
// step; the obsrec package provides the file-backed implementation.
type ObservationSource interface {
	At(step int) ([]float64, error)
}

// ObservationGenerator synthesizes noisy observations with a diagonal error
// covariance scaled to the reference signal.
type ObservationGenerator struct {
	src        ObservationSource
	daInterval float64
	relStd     float64
	floor      float64
	nsamples   int
	rng        rand.Source
}

func NewObservationGenerator(src ObservationSource, daInterval, relStd, floor float64, nsamples int, rng rand.Source) *ObservationGenerator {
	return &ObservationGenerator{
		src:        src,
		daInterval: daInterval,
		relStd:     relStd,
		floor:      floor,
		nsamples:   nsamples,
		rng:        rng,
	}
}

// Observe builds the observation set for the window ending at nextEndTime:
// the noisy observation matrix, the perturbation of those observations from
// the reference, and the diagonal error covariance. One noise vector is drawn
// per window and tiled across members, so every column of the observation
// matrix is identical. The standard deviation per component is
// relStd*|ref| + floor.
func (g *ObservationGenerator) Observe(nextEndTime float64) (*mat.Dense, *mat.Dense, *mat.SymDense, error) {
	if g.src == nil {
		return nil, nil, nil, fmt.Errorf("assim: no observation source wired")
	}
	if g.daInterval <= 0 {
		return nil, nil, nil, fmt.Errorf("assim: da_interval = %v, cannot index observations", g.daInterval)
	}

	step := int(math.Round(nextEndTime / g.daInterval))
	ref, err := g.src.At(step)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("assim: observations for t=%.4f: %w", nextEndTime, err)
	}
	if len(ref) != ObsDim {
		return nil, nil, nil, fmt.Errorf("assim: observation record carries %d values per row, want %d", len(ref), ObsDim)
	}

	cov := mat.NewSymDense(ObsDim, nil)
	for i, v := range ref {
		std := g.relStd*math.Abs(v) + g.floor
		cov.SetSym(i, i, std*std)
	}

	dist, ok := distmv.NewNormal(make([]float64, ObsDim), cov, g.rng)
	if !ok {
		return nil, nil, nil, fmt.Errorf("assim: observation covariance at t=%.4f is not positive definite", nextEndTime)
	}
	eps := dist.Rand(nil)

	obs := mat.NewDense(ObsDim, g.nsamples, nil)
	perturb := mat.NewDense(ObsDim, g.nsamples, nil)
	for i := 0; i < ObsDim; i++ {
		noisy := ref[i] + eps[i]
		for j := 0; j < g.nsamples; j++ {
			obs.Set(i, j, noisy)
			perturb.Set(i, j, eps[i])
		}
	}
	return obs, perturb, cov, nil
}
