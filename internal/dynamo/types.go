package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Sub returns s - other over the shorter of the two lengths; extra entries of s are kept.
func (s State) Sub(other State) State {
	result := s.Clone()
	for i := range result {
		if i < len(other) {
			result[i] -= other[i]
		}
	}
	return result
}

// Vec2 is a point in the simulation plane. The pivot sits at the origin,
// x grows to the right and y grows upward.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(w Vec2) Vec2      { return Vec2{v.X + w.X, v.Y + w.Y} }
func (v Vec2) Sub(w Vec2) Vec2      { return Vec2{v.X - w.X, v.Y - w.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(w Vec2) float64  { return v.Sub(w).Len() }

// System is an ODE dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian is implemented by systems with a conserved total energy.
type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Name() string
	Step(sys System, x State, t, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Errors      []error
}
