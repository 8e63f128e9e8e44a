package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendsim/internal/analysis"
	"github.com/san-kum/pendsim/internal/config"
	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/integrators"
	"github.com/san-kum/pendsim/internal/metrics"
	"github.com/san-kum/pendsim/internal/pendulum"
	"github.com/san-kum/pendsim/internal/storage"
	"github.com/san-kum/pendsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	steps       int
	dt          float64
	gravity     float64
	damping     float64
	policy      string
	integrator  string
	angle       float64
	endAngle    float64
	baseLength  float64
	baseMass    float64
	endLength   float64
	endMass     float64
	tickRate    float64
	maxSubsteps int

	// watch
	frameRate float64

	// plot / analyze
	phase          bool
	lyapunovSteps  int
	lyapunovOffset float64

	// ensemble
	members int
	perturb float64
)

func main() {
	log.SetFlags(0)

	rootCmd := &cobra.Command{
		Use:           "pendsim",
		Short:         "double pendulum simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run a simulation live in the terminal",
		Args:  cobra.NoArgs,
		RunE:  watchSimulation,
	}
	addConfigFlags(watchCmd)
	watchCmd.Flags().Float64Var(&frameRate, "fps", 30, "terminal refresh rate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot angles and energy of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&phase, "phase", false, "draw phase portraits and a poincare section instead")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and chaos analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&lyapunovSteps, "lyapunov-steps", 20000, "steps for the lyapunov estimate, 0 skips it")
	analyzeCmd.Flags().Float64Var(&lyapunovOffset, "lyapunov-offset", 1e-8, "initial separation for the lyapunov estimate")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators on one configuration",
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run perturbed copies concurrently and report divergence",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&members, "members", 8, "number of pendulums")
	ensembleCmd.Flags().Float64Var(&perturb, "perturb", 1e-6, "base angle offset between members")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0], os.Stdout)
		},
	}

	rootCmd.AddCommand(runCmd, watchCmd, listCmd, plotCmd, analyzeCmd, compareCmd, ensembleCmd, presetsCmd, exportCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of fixed steps")
	f.Float64Var(&dt, "dt", 1, "simulated time per step")
	f.Float64Var(&gravity, "gravity", pendulum.DefaultGravity, "gravitational acceleration")
	f.Float64Var(&damping, "damping", 1, "velocity retained per step (1 = none)")
	f.StringVar(&policy, "policy", "report", "degenerate denominator policy: report or saturate")
	f.StringVar(&integrator, "integrator", pendulum.NativeIntegrator, "integrator: symplectic, "+strings.Join(integrators.Names(), ", "))
	f.Float64Var(&angle, "angle", pendulum.DefaultAngle, "initial angle of both rods (rad)")
	f.Float64Var(&endAngle, "end-angle", pendulum.DefaultAngle, "initial angle of the end rod (rad)")
	f.Float64Var(&baseLength, "base-length", pendulum.DefaultLength, "base rod length")
	f.Float64Var(&baseMass, "base-mass", pendulum.DefaultMass, "base rod mass")
	f.Float64Var(&endLength, "end-length", pendulum.DefaultLength, "end rod length")
	f.Float64Var(&endMass, "end-mass", pendulum.DefaultMass, "end rod mass")
	f.Float64Var(&tickRate, "tick-rate", config.DefaultTickRate, "fixed steps per second in watch")
	f.IntVar(&maxSubsteps, "max-substeps", config.DefaultMaxSubsteps, "cap on steps per frame in watch")
}

// loadConfig layers the preset, then the config file, then any flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "reference"

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, "", fmt.Errorf("%w: preset %q (have %s)", dynamo.ErrUnknown, preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg, name = p, preset
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			log.Printf("pendsim: --config %s replaces preset %s", configFile, preset)
		}
		cfg, name = fileCfg, "custom"
	}

	flags := cmd.Flags()
	p, s := &cfg.Pendulum, &cfg.Sim
	if flags.Changed("angle") {
		p.Angle = angle
	}
	if flags.Changed("end-angle") {
		a := endAngle
		p.EndAngle = &a
	}
	if flags.Changed("base-length") {
		p.BaseLength = baseLength
	}
	if flags.Changed("base-mass") {
		p.BaseMass = baseMass
	}
	if flags.Changed("end-length") {
		p.EndLength = endLength
	}
	if flags.Changed("end-mass") {
		p.EndMass = endMass
	}
	if flags.Changed("steps") {
		s.Steps = steps
	}
	if flags.Changed("dt") {
		s.Dt = dt
	}
	if flags.Changed("gravity") {
		s.Gravity = gravity
	}
	if flags.Changed("damping") {
		s.Damping = damping
	}
	if flags.Changed("policy") {
		s.Policy = policy
	}
	if flags.Changed("integrator") {
		s.Integrator = integrator
	}
	if flags.Changed("tick-rate") {
		s.TickRate = tickRate
	}
	if flags.Changed("max-substeps") {
		s.MaxSubsteps = maxSubsteps
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func newSimulator(cfg *config.Config) (*pendulum.Simulator, error) {
	s, err := cfg.State()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.SimConfig()
	if err != nil {
		return nil, err
	}
	return pendulum.NewSimulator(s, sc)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	start := sim.State()
	sys := pendulum.NewSystem(start, cfg.Sim.Gravity)
	sim.AddMetric(metrics.NewEnergyDrift(sys, pendulum.EnergyScale(start, cfg.Sim.Gravity)))
	sim.AddMetric(metrics.NewEnergyEnvelope(sys))

	fmt.Printf("running %s for %d steps...\n", name, cfg.Sim.Steps)
	began := time.Now()
	result, runErr := sim.Run(cmd.Context(), cfg.Sim.Steps)
	elapsed := time.Since(began)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		log.Printf("pendsim: run stopped after %d of %d steps: %v", result.StepsTaken, cfg.Sim.Steps, runErr)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(name, cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	if runErr != nil && !errors.Is(runErr, dynamo.ErrContextCanceled) {
		return runErr
	}
	return nil
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim, err := newSimulator(cfg)
	if err != nil {
		return err
	}
	return viz.Run(sim, name, frameRate)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tSTEPS\tDT\tINTEG\tPOLICY\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%s\t%.2e\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Sim.Dt,
			run.Sim.Integrator,
			run.Sim.Policy,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.State, []float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, nil, fmt.Errorf("run %s has no data", runID)
	}
	return meta, states, times, nil
}

func column(states []dynamo.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, x := range states {
		out[i] = x[idx]
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, states, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(states))

	if phase {
		for _, axes := range []struct {
			x, y  int
			title string
		}{
			{0, 2, "base rod: theta vs omega"},
			{1, 3, "end rod: theta vs omega"},
		} {
			p, err := analysis.NewPhasePortrait(states, axes.x, axes.y)
			if err != nil {
				return err
			}
			fmt.Println(axes.title)
			fmt.Println(p.ASCII(80, 24))
		}

		section, err := analysis.NewPoincareSection(states, 0, 0, 1, 3)
		if err != nil {
			return err
		}
		fmt.Printf("poincare section (theta1 rising through 0): %d points\n", len(section.Points))
		if len(section.Points) > 0 {
			fmt.Println(section.ASCII(80, 24))
		}
		return nil
	}

	p := meta.Params
	gravity := meta.Sim.Gravity
	s, err := pendulum.Initialize(p.BaseLength, p.BaseMass, p.EndLength, p.EndMass, p.Angle)
	if err != nil {
		return err
	}
	energy := make([]float64, len(states))
	for i, x := range states {
		if err := s.SetVector(x); err != nil {
			return err
		}
		energy[i] = pendulum.Energy(s, gravity)
	}

	for _, series := range []struct {
		data    []float64
		caption string
	}{
		{column(states, 0), "theta1 (base angle)"},
		{column(states, 1), "theta2 (end angle)"},
		{energy, "total energy"},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, states, times, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n\n", meta.ID)

	sampleDt := meta.Sim.Dt
	if len(times) > 1 {
		sampleDt = times[1] - times[0]
	}

	theta1 := column(states, 0)
	ps := analysis.PowerSpectrum(theta1)
	if len(ps) > 8 {
		graph := asciigraph.Plot(ps[:len(ps)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (theta1)"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	for i, label := range []string{"theta1", "theta2"} {
		freq, _ := analysis.DominantFrequency(column(states, i), sampleDt)
		fmt.Printf("%s dominant frequency: %.5f per unit time", label, freq)
		if freq > 0 {
			fmt.Printf(" (period %.1f)", 1/freq)
		}
		fmt.Println()
	}

	if lyapunovSteps <= 0 {
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.Pendulum, cfg.Sim = meta.Params, meta.Sim
	s, err := cfg.State()
	if err != nil {
		return err
	}
	sc, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	integ, err := sc.Stepper()
	if err != nil {
		return err
	}
	if len(meta.Errors) > 0 {
		log.Printf("pendsim: run %s stopped with %q; the estimate saturates degenerate steps and continues", meta.ID, meta.Errors[0])
	}

	lambda, err := analysis.LyapunovExponent(pendulum.NewSystem(s, meta.Sim.Gravity), integ, s.Vector(), meta.Sim.Dt, lyapunovSteps, lyapunovOffset)
	if err != nil {
		log.Printf("pendsim: lyapunov estimate failed: %v", err)
		return nil
	}
	verdict := "regular"
	if lambda > 1e-4 {
		verdict = "chaotic"
	}
	fmt.Printf("largest lyapunov exponent: %.3e (%s, %s", lambda, verdict, integ.Name())
	if sc.Damping != 1 {
		fmt.Printf(", damping %g", sc.Damping)
	}
	fmt.Println(")")
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = append([]string{pendulum.NativeIntegrator}, integrators.Names()...)
	}

	fmt.Printf("comparing integrators for %s (dt=%g, steps=%d)\n\n", name, cfg.Sim.Dt, cfg.Sim.Steps)
	fmt.Printf("%-14s  %-12s  %-12s  %-12s\n", "integrator", "final_theta1", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 56))

	for _, intName := range names {
		c := cfg.Clone()
		c.Sim.Integrator = intName

		sim, err := newSimulator(c)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", intName, err)
			continue
		}

		start := time.Now()
		result, err := sim.Run(cmd.Context(), c.Sim.Steps)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-14s  error after %d steps: %v\n", intName, result.StepsTaken, err)
			continue
		}

		final := result.States[len(result.States)-1]
		fmt.Printf("%-14s  %12.6f  %12.2e  %12.2f\n", intName, final[0], result.EnergyDrift, float64(elapsed.Microseconds())/1000)
	}

	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.State()
	if err != nil {
		return err
	}
	sc, err := cfg.SimConfig()
	if err != nil {
		return err
	}

	fmt.Printf("ensemble of %d %s pendulums, offset %g rad, %d steps\n\n", members, name, perturb, cfg.Sim.Steps)
	start := time.Now()
	result, err := pendulum.RunEnsemble(cmd.Context(), s, sc, members, perturb, cfg.Sim.Steps)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tTHETA1_0\tTHETA1\tTHETA2\tTIP_DIVERGENCE\tPHASE_DISTANCE")
	for _, m := range result {
		fmt.Fprintf(w, "%d\t%.8f\t%.4f\t%.4f\t%.3e\t%.3e\n",
			m.Index, m.Initial.Base.Angle, m.Final.Base.Angle, m.Final.End.Angle, m.Divergence, m.PhaseDistance)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", time.Since(start))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tANGLE\tEND_ANGLE\tMASSES\tDT\tDAMPING\tPOLICY")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name)
		end := c.Pendulum.Angle
		if c.Pendulum.EndAngle != nil {
			end = *c.Pendulum.EndAngle
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%g/%g\t%g\t%g\t%s\n",
			name, c.Pendulum.Angle, end, c.Pendulum.BaseMass, c.Pendulum.EndMass,
			c.Sim.Dt, c.Sim.Damping, c.Sim.Policy)
	}
	return w.Flush()
}
