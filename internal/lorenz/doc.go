// Package lorenz implements the Lorenz 63 system with optional parameter
// augmentation for ensemble estimation.
//
// The physical state is (x, y, z):
//
//	dx/dt = sigma*(y - x)
//	dy/dt = rho*x - y - x*z
//	dz/dt = x*y - beta*z
//
// Coefficients flagged for estimation are appended to the state vector in
// rho, beta, sigma order and carry zero derivative, so they stay constant
// within an assimilation window and only an update step between windows can
// move them.
package lorenz
