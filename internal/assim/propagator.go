package assim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ensda/internal/dynamo"
	"github.com/san-kum/ensda/internal/integrators"
)

// Propagator integrates every ensemble member across one assimilation window.
// Members are propagated one after another; each gets a fresh solver, so no
// step-size memory carries between members or calls. The loop is
// embarrassingly parallel across members if a caller ever needs it; ordering
// never affects the result.
type Propagator struct {
	sys        dynamo.System
	dtInterval float64
	daInterval float64
	tol        float64
	newSolver  func() dynamo.AdaptiveIntegrator
}

func NewPropagator(sys dynamo.System, dtInterval, daInterval, tol float64) *Propagator {
	return &Propagator{
		sys:        sys,
		dtInterval: dtInterval,
		daInterval: daInterval,
		tol:        tol,
		newSolver:  func() dynamo.AdaptiveIntegrator { return integrators.NewRK45() },
	}
}

// SetSolverFactory overrides the per-member solver constructor.
func (p *Propagator) SetSolverFactory(f func() dynamo.AdaptiveIntegrator) {
	if f != nil {
		p.newSolver = f
	}
}

// ForecastToTime advances the ensemble to nextEndTime. The window starts at
// nextEndTime - daInterval; each member is driven through the save grid one
// at a time and the forecast is the ensemble at the final grid point. The
// input matrix is left untouched.
func (p *Propagator) ForecastToTime(states *mat.Dense, nextEndTime float64) (*mat.Dense, error) {
	nstate, nsamples := states.Dims()
	if nstate != p.sys.StateDim() {
		return nil, fmt.Errorf("assim: ensemble has %d rows, system wants %d: %w",
			nstate, p.sys.StateDim(), dynamo.ErrDimensionMismatch)
	}

	start := nextEndTime - p.daInterval
	grid := p.grid(start, nextEndTime)

	forecast := mat.NewDense(nstate, nsamples, nil)
	for j := 0; j < nsamples; j++ {
		x := make(dynamo.State, nstate)
		mat.Col(x, j, states)

		solver := p.newSolver()
		t := start
		dt := p.dtInterval
		for _, target := range grid {
			var err error
			x, dt, err = solver.AdvanceTo(p.sys, x, t, target, dt, p.tol)
			if err != nil {
				return nil, fmt.Errorf("assim: member %d: %w", j, err)
			}
			t = target
		}
		forecast.SetCol(j, x)
	}
	return forecast, nil
}

// grid lists the save points start+dt, start+2dt, ..., with the last point
// forced exactly onto end so window boundaries never drift.
func (p *Propagator) grid(start, end float64) []float64 {
	if end <= start {
		return nil
	}
	n := int(math.Round((end - start) / p.dtInterval))
	if n < 1 {
		n = 1
	}
	pts := make([]float64, n)
	for i := 1; i <= n; i++ {
		pts[i-1] = start + float64(i)*p.dtInterval
	}
	pts[n-1] = end
	return pts
}
