package analysis

import (
	"math"

	"github.com/san-kum/ensda/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent by the trajectory
// separation method: integrate the system alongside a copy offset by d0,
// accumulate the log-growth of their separation each step, and pull the copy
// back to distance d0 so the separation stays in the linear regime. A
// positive value indicates chaos.
func LyapunovExponent(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, dt, duration, d0 float64) float64 {
	if len(x0) == 0 || dt <= 0 || duration <= 0 || d0 <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += d0

	t := 0.0
	sumLog := 0.0
	count := 0

	for t < duration {
		x = integ.Step(sys, x, t, dt)
		xp = integ.Step(sys, xp, t, dt)
		t += dt

		sep := xp.Sub(x).Norm()
		if sep <= 0 {
			continue
		}

		sumLog += math.Log(sep / d0)
		count++

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * dt)
}
