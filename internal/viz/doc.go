// Package viz provides the terminal telemetry view for a running pendulum.
//
// [Model] is a Bubble Tea program that owns a [pendulum.Simulator] and
// feeds it wall-clock time on every frame, so the physics runs at the
// simulator's fixed tick rate whatever the terminal refresh rate is. It
// shows angles, velocities, tip positions and an energy graph. Drawing the
// rods is left to graphical hosts.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	.     - Single step while paused
//	R     - Reset to initial state
//	?     - Show help overlay
//	Q     - Quit
package viz
