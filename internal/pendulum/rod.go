package pendulum

import (
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// Rod is one rigid segment of the chain. Length and Mass are fixed for the
// life of the simulation; Angle and AngularVelocity change every step.
type Rod struct {
	Length          float64
	Mass            float64
	Angle           float64
	AngularVelocity float64
}

// Tip returns the free end of the rod when it hangs from pivot.
func (r Rod) Tip(pivot dynamo.Vec2) dynamo.Vec2 {
	return dynamo.Vec2{
		X: pivot.X + r.Length*math.Sin(r.Angle),
		Y: pivot.Y - r.Length*math.Cos(r.Angle),
	}
}

func (r Rod) validate(name string) error {
	if !positive(r.Length) {
		return dynamo.InvalidParameter(name+" length", r.Length)
	}
	if !positive(r.Mass) {
		return dynamo.InvalidParameter(name+" mass", r.Mass)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
