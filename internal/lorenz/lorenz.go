package lorenz

import (
	"fmt"

	"github.com/san-kum/ensda/internal/dynamo"
)

// Classic chaotic regime coefficients.
const (
	DefaultRho   = 28.0
	DefaultBeta  = 8.0 / 3.0
	DefaultSigma = 10.0
)

// Parameter identifies one of the three Lorenz 63 coefficients.
type Parameter uint8

const (
	Rho Parameter = iota
	Beta
	Sigma
)

func (p Parameter) String() string {
	switch p {
	case Rho:
		return "rho"
	case Beta:
		return "beta"
	case Sigma:
		return "sigma"
	}
	return fmt.Sprintf("Parameter(%d)", uint8(p))
}

// ParameterSet fixes the reference initial condition and coefficients of the
// Lorenz 63 system, and flags which coefficients the ensemble estimates.
type ParameterSet struct {
	X, Y, Z          float64
	Rho, Beta, Sigma float64

	PerturbRho   bool
	PerturbBeta  bool
	PerturbSigma bool
}

func (p ParameterSet) Layout() Layout {
	return NewLayout(p.PerturbRho, p.PerturbBeta, p.PerturbSigma)
}

// Value returns the reference value of a coefficient.
func (p ParameterSet) Value(param Parameter) float64 {
	switch param {
	case Rho:
		return p.Rho
	case Beta:
		return p.Beta
	case Sigma:
		return p.Sigma
	}
	panic(fmt.Sprintf("lorenz: unknown parameter %d", uint8(param)))
}

// InitialState builds the augmented reference state: the physical position
// first, then the estimated coefficients in layout order.
func (p ParameterSet) InitialState() dynamo.State {
	l := p.Layout()
	x := make(dynamo.State, l.StateDim())
	x[0], x[1], x[2] = p.X, p.Y, p.Z
	for _, s := range l.Slots() {
		x[s.Index] = p.Value(s.Param)
	}
	return x
}

// System is the Lorenz 63 vector field over the augmented state. Estimated
// coefficients are read from their state slots, fixed ones from the reference
// set; augmented rows get zero derivative.
type System struct {
	params ParameterSet
	layout Layout
}

func NewSystem(params ParameterSet) *System {
	return &System{params: params, layout: params.Layout()}
}

func (s *System) StateDim() int { return s.layout.StateDim() }

func (s *System) Layout() Layout { return s.layout }

func (s *System) Params() ParameterSet { return s.params }

func (s *System) Derive(x dynamo.State, _ float64) dynamo.State {
	rho := s.coeff(Rho, x)
	beta := s.coeff(Beta, x)
	sigma := s.coeff(Sigma, x)

	dx := make(dynamo.State, s.layout.StateDim())
	dx[0] = sigma * (x[1] - x[0])
	dx[1] = rho*x[0] - x[1] - x[0]*x[2]
	dx[2] = x[0]*x[1] - beta*x[2]
	return dx
}

func (s *System) coeff(p Parameter, x dynamo.State) float64 {
	if i, ok := s.layout.SlotOf(p); ok {
		return x[i]
	}
	return s.params.Value(p)
}
