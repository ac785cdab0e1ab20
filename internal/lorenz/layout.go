package lorenz

// PhysicalDim is the number of physical rows (x, y, z) leading every state
// vector; augmented parameter rows follow.
const PhysicalDim = 3

// Slot binds an estimated coefficient to its row in the augmented state.
type Slot struct {
	Param Parameter
	Index int
}

// Layout describes how estimated coefficients extend the physical state.
// Slots are assigned in fixed rho, beta, sigma order, so a given set of flags
// always produces the same augmented vector.
type Layout struct {
	slots []Slot
	rows  [3]int
}

func NewLayout(perturbRho, perturbBeta, perturbSigma bool) Layout {
	l := Layout{rows: [3]int{-1, -1, -1}}
	next := PhysicalDim
	for _, c := range []struct {
		param Parameter
		on    bool
	}{
		{Rho, perturbRho},
		{Beta, perturbBeta},
		{Sigma, perturbSigma},
	} {
		if !c.on {
			continue
		}
		l.slots = append(l.slots, Slot{Param: c.param, Index: next})
		l.rows[c.param] = next
		next++
	}
	return l
}

// StateDim is the augmented state length: the physical rows plus one row per
// estimated coefficient.
func (l Layout) StateDim() int { return PhysicalDim + len(l.slots) }

func (l Layout) NumParams() int { return len(l.slots) }

// Slots lists the estimated coefficients in state order.
func (l Layout) Slots() []Slot { return l.slots }

// SlotOf reports the state row holding an estimated coefficient, or false
// when the coefficient is fixed.
func (l Layout) SlotOf(p Parameter) (int, bool) {
	if int(p) >= len(l.rows) || l.rows[p] < 0 {
		return 0, false
	}
	return l.rows[p], true
}

// Names lists the estimated coefficients, for logs and run metadata.
func (l Layout) Names() []string {
	names := make([]string, len(l.slots))
	for i, s := range l.slots {
		names[i] = s.Param.String()
	}
	return names
}
