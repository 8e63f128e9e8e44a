package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a physical or numerical parameter outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrNumericDegeneracy indicates the acceleration denominator collapsed toward zero.
	ErrNumericDegeneracy = errors.New("dynamo: numeric degeneracy (acceleration denominator near zero)")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrUnknown indicates a lookup by name found nothing.
	ErrUnknown = errors.New("dynamo: unknown name")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// InvalidParameter returns ErrInvalidParameter annotated with the field and value.
func InvalidParameter(name string, value float64) error {
	return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidParameter, name, value)
}
