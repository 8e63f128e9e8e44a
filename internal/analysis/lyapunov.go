package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method:
//
//  1. Run a reference trajectory and one displaced by perturbation in x[0]
//  2. After every step measure their separation d
//  3. Accumulate ln(d/d0) and pull the shadow back to distance d0
//
// The estimate is the accumulated log divided by the simulated time.
func LyapunovExponent(
	sys dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt float64,
	steps int,
	perturbation float64,
) (float64, error) {
	if len(x0) == 0 || steps <= 0 {
		return 0, nil
	}
	if !(dt > 0) || !(perturbation > 0) {
		return 0, fmt.Errorf("%w: dt and perturbation must be positive", dynamo.ErrInvalidParameter)
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation
	d0 := perturbation

	sumLog := 0.0
	t := 0.0
	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, t, dt)
		xp = integ.Step(sys, xp, t, dt)
		t += dt

		if !x.IsValid() || !xp.IsValid() {
			return 0, &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		sep := xp.Sub(x).Norm()
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for j := range xp {
			xp[j] = x[j] + (xp[j]-x[j])*scale
		}
	}

	return sumLog / t, nil
}
