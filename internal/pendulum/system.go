package pendulum

import "github.com/san-kum/pendsim/internal/dynamo"

// System exposes the pendulum to the generic integrators as
// [θ1, θ2, ω1, ω2]. Derive cannot report errors, so a degenerate
// denominator is always saturated here.
type System struct {
	base, end Rod
	Gravity   float64
}

func NewSystem(s *State, gravity float64) *System {
	return &System{base: s.Base, end: s.End, Gravity: gravity}
}

func (p *System) StateDim() int { return 4 }

func (p *System) rods(x dynamo.State) (Rod, Rod) {
	base, end := p.base, p.end
	base.Angle, end.Angle = x[0], x[1]
	base.AngularVelocity, end.AngularVelocity = x[2], x[3]
	return base, end
}

func (p *System) Derive(x dynamo.State, t float64) dynamo.State {
	base, end := p.rods(x)
	a1, a2, _ := accelerations(base, end, p.Gravity, PolicySaturate)
	return dynamo.State{x[2], x[3], a1, a2}
}

func (p *System) Energy(x dynamo.State) float64 {
	base, end := p.rods(x)
	return energy(base, end, p.Gravity)
}
