package assim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/ensda/internal/dynamo"
)

// EnsembleInitializer draws initial ensembles around a reference state.
type EnsembleInitializer struct {
	ref      dynamo.State
	relStd   float64
	nsamples int
	noise    distuv.Normal
}

// NewEnsembleInitializer configures sampling around ref: row i receives
// independent zero-mean Gaussian noise with standard deviation relStd*ref[i]
// per member. Rows where ref is zero stay exact across the ensemble, and a
// negative component only flips the sign of the deviate.
func NewEnsembleInitializer(ref dynamo.State, relStd float64, nsamples int, src rand.Source) *EnsembleInitializer {
	return &EnsembleInitializer{
		ref:      ref.Clone(),
		relStd:   relStd,
		nsamples: nsamples,
		noise:    distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Generate draws a fresh nstate x nsamples ensemble.
func (g *EnsembleInitializer) Generate() *mat.Dense {
	states := mat.NewDense(len(g.ref), g.nsamples, nil)
	for i, v := range g.ref {
		std := g.relStd * v
		for j := 0; j < g.nsamples; j++ {
			states.Set(i, j, v+std*g.noise.Rand())
		}
	}
	return states
}
