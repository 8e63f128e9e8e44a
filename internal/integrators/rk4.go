package integrators

import "github.com/san-kum/pendsim/internal/dynamo"

type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// stage fills r.scratch with x + h*k and returns it.
func (r *RK4) stage(x, k dynamo.State, h float64) dynamo.State {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	return r.scratch
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)
	half := dt * 0.5

	copy(r.k1, sys.Derive(x, t))
	copy(r.k2, sys.Derive(r.stage(x, r.k1, half), t+half))
	copy(r.k3, sys.Derive(r.stage(x, r.k2, half), t+half))
	copy(r.k4, sys.Derive(r.stage(x, r.k3, dt), t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}
