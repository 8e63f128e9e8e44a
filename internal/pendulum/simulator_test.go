package pendulum_test

import (
	"context"
	"errors"
	"math"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/metrics"
	"github.com/san-kum/pendsim/internal/pendulum"
)

type recorder struct {
	times []float64
}

func (r *recorder) OnStep(x dynamo.State, t float64) { r.times = append(r.times, t) }

func gentle() *pendulum.State {
	s, err := pendulum.Initialize(200, 20, 200, 20, 0.5)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func degenerate() *pendulum.State {
	return &pendulum.State{
		Base: pendulum.Rod{Length: 200, Mass: 1e-300, Angle: 0.3},
		End:  pendulum.Rod{Length: 200, Mass: 20, Angle: 0.3},
	}
}

var _ = Describe("Simulator", func() {
	var cfg pendulum.SimConfig

	BeforeEach(func() {
		cfg = pendulum.DefaultSimConfig()
	})

	Describe("construction", func() {
		It("copies the state it is given", func() {
			s := pendulum.NewDefault()
			sim, err := pendulum.NewSimulator(s, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(sim.Tick()).To(Succeed())
			Expect(s.Base.AngularVelocity).To(BeZero())
			Expect(sim.State().Base.AngularVelocity).To(BeNumerically("~", -0.005, 1e-12))
		})

		DescribeTable("rejects invalid configuration",
			func(mutate func(*pendulum.SimConfig)) {
				mutate(&cfg)
				_, err := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
				Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue(), "got %v", err)
			},
			Entry("zero dt", func(c *pendulum.SimConfig) { c.Dt = 0 }),
			Entry("negative tick rate", func(c *pendulum.SimConfig) { c.TickRate = -60 }),
			Entry("no substeps", func(c *pendulum.SimConfig) { c.MaxSubsteps = 0 }),
			Entry("damping above one", func(c *pendulum.SimConfig) { c.Damping = 1.5 }),
			Entry("zero damping", func(c *pendulum.SimConfig) { c.Damping = 0 }),
			Entry("NaN gravity", func(c *pendulum.SimConfig) { c.Gravity = math.NaN() }),
		)

		It("rejects a nil or invalid pendulum", func() {
			_, err := pendulum.NewSimulator(nil, cfg)
			Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())

			bad := pendulum.NewDefault()
			bad.End.Length = -1
			_, err = pendulum.NewSimulator(bad, cfg)
			Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
		})

		It("rejects unknown integrators", func() {
			cfg.Integrator = "leapfrog"
			_, err := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			Expect(errors.Is(err, dynamo.ErrUnknown)).To(BeTrue())
		})
	})

	Describe("Tick", func() {
		It("matches the bare step function", func() {
			sim, err := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			Expect(err).NotTo(HaveOccurred())
			ref := pendulum.NewDefault()

			for i := 0; i < 300; i++ {
				Expect(sim.Tick()).To(Succeed())
				Expect(pendulum.Step(ref, 1)).To(Succeed())
			}

			Expect(*sim.State()).To(Equal(*ref))
			Expect(sim.Steps()).To(Equal(300))
			Expect(sim.Time()).To(Equal(300.0))
		})

		It("notifies observers after every step", func() {
			sim, _ := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			rec := &recorder{}
			sim.AddObserver(rec)

			for i := 0; i < 3; i++ {
				Expect(sim.Tick()).To(Succeed())
			}
			Expect(rec.times).To(Equal([]float64{1, 2, 3}))
		})

		It("reports degeneracy without touching the state", func() {
			sim, err := pendulum.NewSimulator(degenerate(), cfg)
			Expect(err).NotTo(HaveOccurred())

			err = sim.Tick()
			Expect(errors.Is(err, dynamo.ErrNumericDegeneracy)).To(BeTrue(), "got %v", err)

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(0))
			Expect(sim.Steps()).To(Equal(0))
			Expect(*sim.State()).To(Equal(*degenerate()))
		})

		It("keeps going under the saturate policy", func() {
			cfg.Policy = pendulum.PolicySaturate
			sim, err := pendulum.NewSimulator(degenerate(), cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(sim.Tick()).To(Succeed())
			Expect(sim.State().Vector().IsValid()).To(BeTrue())
		})

		It("bleeds energy when damped", func() {
			free, _ := pendulum.NewSimulator(gentle(), cfg)
			cfg.Damping = 0.999
			damped, _ := pendulum.NewSimulator(gentle(), cfg)

			for i := 0; i < 2000; i++ {
				Expect(free.Tick()).To(Succeed())
				Expect(damped.Tick()).To(Succeed())
			}
			Expect(damped.Energy()).To(BeNumerically("<", free.Energy()-500))
		})

		It("can step through a generic integrator", func() {
			cfg.Integrator = "rk4"
			sim, err := pendulum.NewSimulator(gentle(), cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 100; i++ {
				Expect(sim.Tick()).To(Succeed())
			}
			Expect(sim.State().Vector().IsValid()).To(BeTrue())
			Expect(*sim.State()).NotTo(Equal(*gentle()))
		})
	})

	Describe("Stepper", func() {
		It("reproduces a damped simulator through the generic System", func() {
			cfg.Damping = 0.999
			sim, err := pendulum.NewSimulator(gentle(), cfg)
			Expect(err).NotTo(HaveOccurred())

			integ, err := cfg.Stepper()
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.Name()).To(Equal("semi_implicit+damped"))

			s := gentle()
			sys := pendulum.NewSystem(s, cfg.Gravity)
			x := s.Vector()
			for i := 0; i < 500; i++ {
				Expect(sim.Tick()).To(Succeed())
				x = integ.Step(sys, x, float64(i)*cfg.Dt, cfg.Dt)
			}
			Expect(x).To(Equal(sim.State().Vector()))
		})

		It("uses the configured integrator undamped", func() {
			cfg.Integrator = "rk4"
			integ, err := cfg.Stepper()
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.Name()).To(Equal("rk4"))

			cfg.Integrator = "nope"
			_, err = cfg.Stepper()
			Expect(errors.Is(err, dynamo.ErrUnknown)).To(BeTrue())
		})
	})

	Describe("Advance", func() {
		var sim *pendulum.Simulator

		BeforeEach(func() {
			cfg.MaxSubsteps = 1000
			var err error
			sim, err = pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs one fixed step per tick period", func() {
			n, err := sim.Advance(time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(60))
		})

		It("carries leftover time between frames", func() {
			n, _ := sim.Advance(10 * time.Millisecond)
			Expect(n).To(Equal(0))
			Expect(sim.Alpha()).To(BeNumerically("~", 0.6, 1e-6))

			n, _ = sim.Advance(10 * time.Millisecond)
			Expect(n).To(Equal(1))
			Expect(sim.Alpha()).To(BeNumerically("<", 1))
		})

		It("gives the same physics at different frame rates", func() {
			slow, _ := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			fast, _ := pendulum.NewSimulator(pendulum.NewDefault(), cfg)

			for i := 0; i < 50; i++ {
				_, err := slow.Advance(40 * time.Millisecond)
				Expect(err).NotTo(HaveOccurred())
			}
			for i := 0; i < 200; i++ {
				_, err := fast.Advance(10 * time.Millisecond)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(slow.Steps()).To(Equal(120))
			Expect(fast.Steps()).To(Equal(120))
			Expect(*slow.State()).To(Equal(*fast.State()))
		})

		It("counts steps from the total elapsed time, not a rounded period", func() {
			// 600 frames of time.Second/60 fall 400ns short of ten seconds
			for i := 0; i < 600; i++ {
				_, err := sim.Advance(time.Second / 60)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(sim.Steps()).To(Equal(599))
			Expect(sim.Alpha()).To(BeNumerically("~", 1, 1e-4))

			n, _ := sim.Advance(time.Microsecond)
			Expect(n).To(Equal(1))
			Expect(sim.Steps()).To(Equal(600))
		})

		It("runs 60 steps per second at 60Hz over long runs", func() {
			for i := 0; i < 100; i++ {
				_, err := sim.Advance(time.Second)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(sim.Steps()).To(Equal(6000))
			Expect(sim.Alpha()).To(BeZero())
		})

		It("caps substeps and drops the backlog", func() {
			cfg.MaxSubsteps = 8
			capped, _ := pendulum.NewSimulator(pendulum.NewDefault(), cfg)

			n, err := capped.Advance(time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(8))
			Expect(capped.Alpha()).To(BeNumerically("<", 1))

			n, _ = capped.Advance(0)
			Expect(n).To(Equal(0))
		})

		It("rejects negative elapsed time", func() {
			_, err := sim.Advance(-time.Millisecond)
			Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
		})

		It("resets to the initial pendulum", func() {
			_, _ = sim.Advance(time.Second)
			sim.Reset()
			Expect(sim.Steps()).To(BeZero())
			Expect(sim.Time()).To(BeZero())
			Expect(sim.Alpha()).To(BeZero())
			Expect(*sim.State()).To(Equal(*pendulum.NewDefault()))
		})
	})

	Describe("Run", func() {
		It("records every state and reports metrics", func() {
			s := gentle()
			sim, _ := pendulum.NewSimulator(s, cfg)
			sim.AddMetric(metrics.NewEnergyDrift(pendulum.NewSystem(s, cfg.Gravity), pendulum.EnergyScale(s, cfg.Gravity)))

			result, err := sim.Run(context.Background(), 1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.States).To(HaveLen(1001))
			Expect(result.Times).To(HaveLen(1001))
			Expect(result.StepsTaken).To(Equal(1000))
			Expect(result.Times[1000]).To(Equal(1000.0))
			Expect(result.Metrics).To(HaveKey("energy_drift"))
			Expect(result.Metrics["energy_drift"]).To(BeNumerically("<", 0.1))
			Expect(result.EnergyDrift).To(BeNumerically("<=", result.Metrics["energy_drift"]+1e-12))
		})

		It("stops on cancellation with what it has", func() {
			sim, _ := pendulum.NewSimulator(pendulum.NewDefault(), cfg)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := sim.Run(ctx, 100)
			Expect(errors.Is(err, dynamo.ErrContextCanceled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(result.States).To(HaveLen(1))
		})

		It("stops at the first failed step", func() {
			sim, _ := pendulum.NewSimulator(degenerate(), cfg)
			result, err := sim.Run(context.Background(), 10)
			Expect(errors.Is(err, dynamo.ErrNumericDegeneracy)).To(BeTrue())
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.StepsTaken).To(BeZero())
		})
	})
})

var _ = Describe("RunEnsemble", func() {
	cfg := pendulum.DefaultSimConfig()

	It("runs identical members identically", func() {
		members, err := pendulum.RunEnsemble(context.Background(), pendulum.NewDefault(), cfg, 4, 0, 500)
		Expect(err).NotTo(HaveOccurred())
		Expect(members).To(HaveLen(4))
		for _, m := range members {
			Expect(m.Divergence).To(BeZero())
			Expect(m.Final).To(Equal(members[0].Final))
		}
	})

	It("offsets each member's base angle", func() {
		members, err := pendulum.RunEnsemble(context.Background(), pendulum.NewDefault(), cfg, 3, 1e-3, 2000)
		Expect(err).NotTo(HaveOccurred())
		for i, m := range members {
			Expect(m.Index).To(Equal(i))
			Expect(m.Initial.Base.Angle).To(BeNumerically("~", math.Pi/2+float64(i)*1e-3, 1e-12))
		}
		Expect(members[0].Divergence).To(BeZero())
		Expect(members[1].Divergence).To(BeNumerically(">", 0))
		Expect(members[2].PhaseDistance).To(BeNumerically(">", 0))
	})

	It("validates its arguments", func() {
		_, err := pendulum.RunEnsemble(context.Background(), pendulum.NewDefault(), cfg, 0, 0, 10)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
	})

	It("starts no member when another cannot be built", func() {
		before := runtime.NumGoroutine()

		// the third member's base angle overflows to +Inf
		_, err := pendulum.RunEnsemble(context.Background(), pendulum.NewDefault(), cfg, 3, 1e308, 2_000_000_000)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
		Consistently(runtime.NumGoroutine, 100*time.Millisecond).Should(BeNumerically("<=", before))
	})

	It("fails when a member fails", func() {
		_, err := pendulum.RunEnsemble(context.Background(), degenerate(), cfg, 2, 0, 10)
		Expect(err).To(HaveOccurred())
	})
})
