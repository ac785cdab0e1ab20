// Package dynamo defines the contracts shared by dynamical models and their
// numerical integrators.
//
//   - [State]: dense vector of state variables
//   - [System]: ODE system dX/dt = f(X, t)
//   - [Integrator]: fixed-step one-step method
//   - [AdaptiveIntegrator]: embedded-error method with step size control
//
// Systems that estimate parameters fold them into the state vector as extra
// rows with zero time derivative; see the lorenz package for the augmented
// Lorenz 63 system consumed by the ensemble model.
package dynamo
