package integrators

import "github.com/san-kum/pendsim/internal/dynamo"

// SemiImplicit is velocity-first Euler for second-order systems laid out
// as [q..., v...]. It is symplectic only when v is the canonical momentum.
// Velocities are updated first and positions then move with
// the updated velocities.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Name() string { return "semi_implicit" }

func (s *SemiImplicit) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	half := n / 2

	dx := sys.Derive(x, t)
	result := make(dynamo.State, n)

	for i := 0; i < half; i++ {
		v := x[half+i] + dx[half+i]*dt
		result[half+i] = v
		result[i] = x[i] + v*dt
	}
	// odd trailing component, if any, gets a plain Euler update
	for i := 2 * half; i < n; i++ {
		result[i] = x[i] + dx[i]*dt
	}

	return result
}
