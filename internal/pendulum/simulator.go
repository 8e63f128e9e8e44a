package pendulum

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/integrators"
)

// NativeIntegrator names the built-in semi-implicit update with
// degeneracy reporting. Any other name is looked up in integrators.
const NativeIntegrator = "symplectic"

type SimConfig struct {
	Gravity     float64
	Dt          float64 // simulated units per fixed step
	TickRate    float64 // fixed steps per wall-clock second
	MaxSubsteps int     // cap on fixed steps per Advance call
	Damping     float64 // velocity retained per step, 1 disables
	Policy      Policy
	Integrator  string
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		Gravity:     DefaultGravity,
		Dt:          1,
		TickRate:    60,
		MaxSubsteps: 8,
		Damping:     1,
		Policy:      PolicyReport,
		Integrator:  NativeIntegrator,
	}
}

func (c SimConfig) Validate() error {
	if !positive(c.Dt) {
		return dynamo.InvalidParameter("dt", c.Dt)
	}
	if !positive(c.TickRate) {
		return dynamo.InvalidParameter("tick rate", c.TickRate)
	}
	if c.MaxSubsteps < 1 {
		return dynamo.InvalidParameter("max substeps", float64(c.MaxSubsteps))
	}
	if !(c.Damping > 0 && c.Damping <= 1) {
		return fmt.Errorf("%w: damping must be in (0, 1], got %v", dynamo.ErrInvalidParameter, c.Damping)
	}
	if !finite(c.Gravity) {
		return fmt.Errorf("%w: gravity must be finite, got %v", dynamo.ErrInvalidParameter, c.Gravity)
	}
	return nil
}

// Stepper returns a generic integrator that advances a System the way a
// Simulator with this config advances its pendulum, damping included. The
// native scheme maps to semi-implicit Euler. Degenerate steps are always
// saturated, since System cannot report them.
func (c SimConfig) Stepper() (dynamo.Integrator, error) {
	name := c.Integrator
	if name == "" || name == NativeIntegrator {
		name = "semi_implicit"
	}
	integ, err := integrators.New(name)
	if err != nil {
		return nil, err
	}
	if c.Damping != 1 {
		integ = integrators.NewDamped(integ, c.Damping)
	}
	return integ, nil
}

// Simulator owns one pendulum and advances it for a host. The host either
// calls Tick once per frame (fixed unit steps, frame-rate dependent) or
// Advance with the frame's elapsed time (fixed steps from an accumulator).
type Simulator struct {
	cfg     SimConfig
	initial State
	state   State

	integ dynamo.Integrator
	sys   *System

	// accumulator is wall time fed to Advance since the last backlog drop;
	// consumed is how many fixed steps have been run out of it.
	accumulator time.Duration
	consumed    int
	t           float64
	steps       int

	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

// NewSimulator copies s and validates both the pendulum and the config.
func NewSimulator(s *State, cfg SimConfig) (*Simulator, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", dynamo.ErrInvalidParameter)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		cfg:     cfg,
		initial: *s,
		state:   *s,
	}

	if cfg.Integrator != "" && cfg.Integrator != NativeIntegrator {
		integ, err := integrators.New(cfg.Integrator)
		if err != nil {
			return nil, err
		}
		sim.integ = integ
		sim.sys = NewSystem(s, cfg.Gravity)
	}

	return sim, nil
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() SimConfig { return s.cfg }
func (s *Simulator) State() *State     { return s.state.Clone() }
func (s *Simulator) Time() float64     { return s.t }
func (s *Simulator) Steps() int        { return s.steps }

func (s *Simulator) Positions() (basePivot, baseTip, endTip dynamo.Vec2) {
	return Positions(&s.state)
}

func (s *Simulator) Energy() float64 {
	return Energy(&s.state, s.cfg.Gravity)
}

// Alpha is the fraction of a fixed step left in the accumulator, for
// interpolating between the last two states when drawing.
func (s *Simulator) Alpha() float64 {
	return s.ticks(s.accumulator) - float64(s.consumed)
}

// ticks converts wall time into fixed steps at the configured rate.
func (s *Simulator) ticks(d time.Duration) float64 {
	return float64(d) * s.cfg.TickRate / float64(time.Second)
}

// Reset restores the initial pendulum and clears time and the accumulator.
func (s *Simulator) Reset() {
	s.state = s.initial
	s.t = 0
	s.steps = 0
	s.accumulator = 0
	s.consumed = 0
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Tick advances exactly one fixed step. On error the state is unchanged
// and the error is a *dynamo.SimulationError.
func (s *Simulator) Tick() error {
	if err := s.step(); err != nil {
		return &dynamo.SimulationError{
			Step:    s.steps,
			Time:    s.t,
			State:   s.state.Vector(),
			Wrapped: err,
		}
	}

	if d := s.cfg.Damping; d != 1 {
		s.state.Base.AngularVelocity *= d
		s.state.End.AngularVelocity *= d
	}

	s.t += s.cfg.Dt
	s.steps++

	x := s.state.Vector()
	for _, m := range s.metrics {
		m.Observe(x, s.t)
	}
	for _, o := range s.observers {
		o.OnStep(x, s.t)
	}
	return nil
}

func (s *Simulator) step() error {
	if s.integ == nil {
		return advance(&s.state, s.cfg.Gravity, s.cfg.Dt, s.cfg.Policy)
	}
	x := s.integ.Step(s.sys, s.state.Vector(), s.t, s.cfg.Dt)
	return s.state.SetVector(x)
}

// Advance feeds elapsed wall time into the accumulator and runs as many
// fixed steps as it covers, at most MaxSubsteps. After n calls the step
// count is floor(total elapsed · TickRate) unless the cap was hit; time
// beyond the cap is dropped so a slow host cannot fall further behind.
func (s *Simulator) Advance(elapsed time.Duration) (int, error) {
	if elapsed < 0 {
		return 0, dynamo.InvalidParameter("elapsed", elapsed.Seconds())
	}

	s.accumulator += elapsed
	covered := s.ticks(s.accumulator)
	due := int(math.Floor(covered)) - s.consumed

	n := 0
	for ; n < due; n++ {
		if n == s.cfg.MaxSubsteps {
			frac := covered - math.Floor(covered)
			s.accumulator = time.Duration(frac * float64(time.Second) / s.cfg.TickRate)
			s.consumed = 0
			break
		}
		if err := s.Tick(); err != nil {
			return n, err
		}
		s.consumed++
	}
	return n, nil
}

// Run steps the pendulum headlessly and records every state. It stops early
// on cancellation or on the first failed step, returning what it recorded.
func (s *Simulator) Run(ctx context.Context, steps int) (*dynamo.Result, error) {
	if steps < 0 {
		return nil, dynamo.InvalidParameter("steps", float64(steps))
	}

	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	x0 := s.state.Vector()
	for _, m := range s.metrics {
		m.Reset()
		m.Observe(x0, s.t)
	}
	result.States = append(result.States, x0)
	result.Times = append(result.Times, s.t)

	initialEnergy := s.Energy()
	scale := math.Max(math.Abs(initialEnergy), EnergyScale(&s.state, s.cfg.Gravity))

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
			break
		}
		if err := s.Tick(); err != nil {
			result.Errors = append(result.Errors, err)
			runErr = err
			break
		}
		result.StepsTaken++
		result.States = append(result.States, s.state.Vector())
		result.Times = append(result.Times, s.t)
	}

	if scale > 0 {
		result.EnergyDrift = math.Abs(s.Energy()-initialEnergy) / scale
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}
