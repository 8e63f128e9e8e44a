// Package pendulum implements a planar double pendulum made of two rigid
// rods and the host-facing simulator that advances it.
//
// The base rod pivots at the origin and the end rod pivots at the base
// rod's tip. Angles are measured from the downward vertical, positive
// toward +x, and positions use a y-up plane:
//
//	tip = pivot + (L·sin θ, -L·cos θ)
//
// One step applies the closed-form equations of motion for two point
// masses at the rod tips, then integrates with semi-implicit Euler:
// angular velocity first, then angle from the updated velocity. With
// dt = 1 this is the classic per-frame demo update.
//
// # Thread Safety
//
// A State and the Simulator that owns it are not safe for concurrent use.
// Independent pendulums share nothing, so [RunEnsemble] runs them on
// separate goroutines without locking.
package pendulum
