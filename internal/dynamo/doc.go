// Package dynamo provides the shared primitives used across the pendulum
// simulator.
//
// The package defines the vocabulary that the numerical packages agree on:
//
//   - [State]: flat vector form of a system state
//   - [Vec2]: Cartesian point in the simulation plane (x right, y up)
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper over a [System]
//   - [Metric] and [Observer]: per-step hooks used by the host loop
//
// # Errors
//
// Failures are reported through the sentinel errors in errors.go, usually
// wrapped in a [SimulationError] that records where the run stopped.
// Callers match them with errors.Is.
package dynamo
