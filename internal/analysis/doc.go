// Package analysis characterizes the configured dynamical system before
// assimilation experiments run against it.
//
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [PowerSpectrum]: FFT magnitude spectrum of a scalar trajectory
//   - [TracePortrait]: 2D projection of a trajectory, with ASCII rendering
//
// A positive largest Lyapunov exponent indicates chaos:
//
//	lambda := analysis.LyapunovExponent(sys, integ, x0, dt, duration, 1e-8)
//	if lambda > 0 {
//	    // forecasts diverge; assimilating observations has work to do
//	}
package analysis
