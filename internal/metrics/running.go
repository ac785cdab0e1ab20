package metrics

// Running accumulates a scalar diagnostic across assimilation cycles.
type Running struct {
	name    string
	sum     float64
	max     float64
	samples int
}

func NewRunning(name string) *Running {
	return &Running{name: name}
}

func (r *Running) Name() string { return r.name }

func (r *Running) Observe(v float64) {
	r.sum += v
	if r.samples == 0 || v > r.max {
		r.max = v
	}
	r.samples++
}

// Value is the mean of the observed samples.
func (r *Running) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

func (r *Running) Max() float64 {
	return r.max
}

func (r *Running) Count() int { return r.samples }

func (r *Running) Reset() {
	r.sum = 0
	r.max = 0
	r.samples = 0
}
