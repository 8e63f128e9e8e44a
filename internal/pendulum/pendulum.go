package pendulum

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pendsim/internal/dynamo"
)

const (
	DefaultLength  = 200.0
	DefaultMass    = 20.0
	DefaultAngle   = math.Pi / 2
	DefaultGravity = 1.0

	// DegenerateTolerance bounds the shared mass term 2m1+m2-m2·cos(2θ1-2θ2)
	// relative to m1+m2. Below it the accelerations are not trusted.
	DegenerateTolerance = 1e-12
)

// Policy selects what a step does when the acceleration denominator
// collapses.
type Policy int

const (
	// PolicyReport fails the step with ErrNumericDegeneracy and leaves the state alone.
	PolicyReport Policy = iota
	// PolicySaturate clamps the denominator to the tolerance and keeps going.
	PolicySaturate
)

func (p Policy) String() string {
	switch p {
	case PolicyReport:
		return "report"
	case PolicySaturate:
		return "saturate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "report":
		return PolicyReport, nil
	case "saturate", "clamp":
		return PolicySaturate, nil
	}
	return PolicyReport, fmt.Errorf("%w: policy %q", dynamo.ErrUnknown, name)
}

// State is the complete pendulum: a base rod hanging from the origin and an
// end rod hanging from the base rod's tip.
type State struct {
	Base Rod
	End  Rod
}

// Initialize builds both rods at initialAngle with zero angular velocity.
// It rejects non-positive lengths and masses and returns no state.
func Initialize(baseLength, baseMass, endLength, endMass, initialAngle float64) (*State, error) {
	s := &State{
		Base: Rod{Length: baseLength, Mass: baseMass, Angle: initialAngle},
		End:  Rod{Length: endLength, Mass: endMass, Angle: initialAngle},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDefault returns the classic demo setup: two 200-long, 20-mass rods
// held horizontally.
func NewDefault() *State {
	s, _ := Initialize(DefaultLength, DefaultMass, DefaultLength, DefaultMass, DefaultAngle)
	return s
}

// Validate checks the physical parameters and that the angular state is finite.
func (s *State) Validate() error {
	if err := s.Base.validate("base"); err != nil {
		return err
	}
	if err := s.End.validate("end"); err != nil {
		return err
	}
	if !finite(s.Base.Angle, s.End.Angle, s.Base.AngularVelocity, s.End.AngularVelocity) {
		return fmt.Errorf("%w: angles and velocities must be finite", dynamo.ErrInvalidParameter)
	}
	return nil
}

func (s *State) Clone() *State {
	c := *s
	return &c
}

// Vector returns the state as [θ1, θ2, ω1, ω2].
func (s *State) Vector() dynamo.State {
	return dynamo.State{s.Base.Angle, s.End.Angle, s.Base.AngularVelocity, s.End.AngularVelocity}
}

// SetVector loads [θ1, θ2, ω1, ω2] back into the rods.
func (s *State) SetVector(x dynamo.State) error {
	if len(x) != 4 {
		return fmt.Errorf("%w: want 4 components, got %d", dynamo.ErrInvalidState, len(x))
	}
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	s.Base.Angle, s.End.Angle = x[0], x[1]
	s.Base.AngularVelocity, s.End.AngularVelocity = x[2], x[3]
	return nil
}

// Positions returns the base pivot, the base tip and the end tip.
func Positions(s *State) (basePivot, baseTip, endTip dynamo.Vec2) {
	baseTip = s.Base.Tip(basePivot)
	endTip = s.End.Tip(baseTip)
	return basePivot, baseTip, endTip
}

// Accelerations evaluates the closed-form angular accelerations of both rods.
func Accelerations(s *State, gravity float64) (a1, a2 float64, err error) {
	return accelerations(s.Base, s.End, gravity, PolicyReport)
}

func accelerations(base, end Rod, g float64, policy Policy) (a1, a2 float64, err error) {
	t1, t2 := base.Angle, end.Angle
	w1, w2 := base.AngularVelocity, end.AngularVelocity
	l1, l2 := base.Length, end.Length
	m1, m2 := base.Mass, end.Mass

	delta := t1 - t2
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	massTerm := 2*m1 + m2 - m2*math.Cos(2*t1-2*t2)
	if limit := DegenerateTolerance * (m1 + m2); math.Abs(massTerm) < limit || massTerm == 0 {
		if policy != PolicySaturate {
			return 0, 0, fmt.Errorf("%w: mass term %.3g", dynamo.ErrNumericDegeneracy, massTerm)
		}
		if limit == 0 {
			limit = DegenerateTolerance
		}
		if massTerm < 0 {
			massTerm = -limit
		} else {
			massTerm = limit
		}
	}

	num1 := -g*(2*m1+m2)*math.Sin(t1) - m2*g*math.Sin(t1-2*t2) -
		2*sinD*m2*(w2*w2*l2+w1*w1*l1*cosD)
	num2 := 2 * sinD * (w1*w1*l1*(m1+m2) + g*(m1+m2)*math.Cos(t1) + w2*w2*l2*m2*cosD)

	return num1 / (l1 * massTerm), num2 / (l2 * massTerm), nil
}

// Step advances the pendulum by one unit step under gravity.
func Step(s *State, gravity float64) error {
	return Advance(s, gravity, 1)
}

// Advance advances the pendulum by dt with semi-implicit Euler. On error
// the state is unchanged.
func Advance(s *State, gravity, dt float64) error {
	return advance(s, gravity, dt, PolicyReport)
}

func advance(s *State, g, dt float64, policy Policy) error {
	if !positive(dt) {
		return dynamo.InvalidParameter("dt", dt)
	}

	a1, a2, err := accelerations(s.Base, s.End, g, policy)
	if err != nil {
		return err
	}

	w1 := s.Base.AngularVelocity + a1*dt
	w2 := s.End.AngularVelocity + a2*dt
	t1 := s.Base.Angle + w1*dt
	t2 := s.End.Angle + w2*dt

	if !finite(w1, w2, t1, t2) {
		return fmt.Errorf("%w: step produced non-finite angles", dynamo.ErrInvalidState)
	}

	s.Base.AngularVelocity, s.End.AngularVelocity = w1, w2
	s.Base.Angle, s.End.Angle = t1, t2
	return nil
}

// Energy is the total mechanical energy of two point masses at the rod tips,
// with potential measured from the pivot height.
func Energy(s *State, gravity float64) float64 {
	return energy(s.Base, s.End, gravity)
}

func energy(base, end Rod, g float64) float64 {
	t1, t2 := base.Angle, end.Angle
	w1, w2 := base.AngularVelocity, end.AngularVelocity
	l1, l2 := base.Length, end.Length
	m1, m2 := base.Mass, end.Mass

	v1sq := l1 * l1 * w1 * w1
	v2sq := v1sq + l2*l2*w2*w2 + 2*l1*l2*w1*w2*math.Cos(t1-t2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq
	y1 := -l1 * math.Cos(t1)
	y2 := y1 - l2*math.Cos(t2)
	pe := m1*g*y1 + m2*g*y2

	return ke + pe
}

// EnergyScale is the depth of the potential well, used to normalise drift.
func EnergyScale(s *State, gravity float64) float64 {
	return math.Abs(gravity) * ((s.Base.Mass+s.End.Mass)*s.Base.Length + s.End.Mass*s.End.Length)
}
