// Package assim implements the ensemble forward model consumed by a data
// assimilation driver: initial ensemble sampling, windowed propagation of
// every member through the augmented Lorenz 63 dynamics, mapping to
// observation space, and synthetic observations with a diagonal error
// covariance.
//
// Ensembles are nstate x nsamples matrices whose columns are the members.
// The package covers the forecast side only; the analysis update between
// windows belongs to the driver.
package assim
