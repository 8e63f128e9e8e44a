package integrators

import "github.com/san-kum/pendsim/internal/dynamo"

// Damped wraps a stepper for [q..., v...] layouts and multiplies the
// velocity half by Retain after every step, the same per-step damping the
// pendulum simulator applies.
type Damped struct {
	Inner  dynamo.Integrator
	Retain float64
}

func NewDamped(inner dynamo.Integrator, retain float64) *Damped {
	return &Damped{Inner: inner, Retain: retain}
}

func (d *Damped) Name() string { return d.Inner.Name() + "+damped" }

func (d *Damped) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next := d.Inner.Step(sys, x, t, dt)
	if d.Retain == 1 {
		return next
	}
	for i := len(next) / 2; i < 2*(len(next)/2); i++ {
		next[i] *= d.Retain
	}
	return next
}
