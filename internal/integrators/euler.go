package integrators

import "github.com/san-kum/pendsim/internal/dynamo"

// Euler is the explicit first-order scheme. Positions advance with the
// velocity from the start of the step, so energy grows without bound on
// oscillators; it is kept for comparison runs.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	dx := sys.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
