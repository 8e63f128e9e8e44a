// Package analysis characterises recorded or simulated pendulum motion.
//
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [PowerSpectrum], [DominantFrequency]: spectrum of an angle time series
//   - [NewPhasePortrait]: 2D phase space view of a recorded run
//   - [NewPoincareSection]: points where a recorded run crosses a threshold
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(sys, integ, x0, dt, steps, 1e-8)
//	if err == nil && lambda > 0 {
//	    // sensitive to initial conditions
//	}
package analysis
