package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model propagation.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive step size shrank below the minimum.
	ErrStepTooSmall = errors.New("dynamo: adaptive step size below minimum")

	// ErrTooManySteps indicates the step budget ran out before the target time.
	ErrTooManySteps = errors.New("dynamo: step budget exhausted before reaching target time")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// IntegrationError records where an adaptive integration gave up.
type IntegrationError struct {
	Time    float64
	Steps   int
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration stalled at t=%.6f after %d steps: %v", e.Time, e.Steps, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
