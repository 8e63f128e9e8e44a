package pendulum

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// EnsembleMember is one pendulum of an ensemble after its run.
type EnsembleMember struct {
	Index   int
	Initial State
	Final   State

	// Divergence is the distance between this member's end tip and
	// member 0's end tip after the run.
	Divergence float64

	// PhaseDistance is the norm of the [θ1, θ2, ω1, ω2] difference to member 0.
	PhaseDistance float64
}

// RunEnsemble runs n copies of base, member i with its base angle offset by
// i*perturb, each on its own goroutine for the given number of steps.
func RunEnsemble(ctx context.Context, base *State, cfg SimConfig, n int, perturb float64, steps int) ([]EnsembleMember, error) {
	if n < 1 {
		return nil, dynamo.InvalidParameter("ensemble size", float64(n))
	}
	if steps < 0 {
		return nil, dynamo.InvalidParameter("steps", float64(steps))
	}

	starts := make([]*State, n)
	sims := make([]*Simulator, n)
	for i := range sims {
		starts[i] = base.Clone()
		starts[i].Base.Angle += float64(i) * perturb

		sim, err := NewSimulator(starts[i], cfg)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		sims[i] = sim
	}

	members := make([]EnsembleMember, n)
	g, ctx := errgroup.WithContext(ctx)

	for i, sim := range sims {
		g.Go(func() error {
			for step := 0; step < steps; step++ {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
				}
				if err := sim.Tick(); err != nil {
					return fmt.Errorf("member %d: %w", i, err)
				}
			}
			members[i] = EnsembleMember{Index: i, Initial: *starts[i], Final: sim.state}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, _, ref := Positions(&members[0].Final)
	refVec := members[0].Final.Vector()
	for i := range members {
		_, _, tip := Positions(&members[i].Final)
		members[i].Divergence = tip.Dist(ref)
		members[i].PhaseDistance = members[i].Final.Vector().Sub(refVec).Norm()
	}

	return members, nil
}
