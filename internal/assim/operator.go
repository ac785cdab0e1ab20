package assim

import "gonum.org/v1/gonum/mat"

// ObsDim is the number of observed components: the physical (x, y, z) rows.
const ObsDim = 3

// ObservationOperator maps augmented model states to observation space by
// selecting the leading physical rows.
type ObservationOperator struct {
	h *mat.Dense
}

// NewObservationOperator builds the ObsDim x stateDim selection matrix H.
// Augmented parameter rows map to nothing: parameters are never observed
// directly.
func NewObservationOperator(stateDim int) *ObservationOperator {
	if stateDim < ObsDim {
		panic("assim: state dimension smaller than observation dimension")
	}
	h := mat.NewDense(ObsDim, stateDim, nil)
	for i := 0; i < ObsDim; i++ {
		h.Set(i, i, 1)
	}
	return &ObservationOperator{h: h}
}

// Matrix exposes H itself.
func (o *ObservationOperator) Matrix() *mat.Dense { return o.h }

// Apply maps an nstate x nsamples ensemble to its ObsDim x nsamples
// observation counterpart HX.
func (o *ObservationOperator) Apply(states *mat.Dense) *mat.Dense {
	_, nsamples := states.Dims()
	out := mat.NewDense(ObsDim, nsamples, nil)
	out.Mul(o.h, states)
	return out
}
