package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/integrators"
	"github.com/san-kum/pendsim/internal/pendulum"
)

func lyapunovFrom(t *testing.T, angle float64) float64 {
	t.Helper()
	s, err := pendulum.Initialize(200, 20, 200, 20, angle)
	if err != nil {
		t.Fatal(err)
	}
	lambda, err := LyapunovExponent(pendulum.NewSystem(s, 1), integrators.NewSemiImplicit(), s.Vector(), 1, 20000, 1e-8)
	if err != nil {
		t.Fatalf("angle %v: %v", angle, err)
	}
	return lambda
}

func TestLyapunovSeparatesRegimes(t *testing.T) {
	gentle := lyapunovFrom(t, 0.1)
	chaotic := lyapunovFrom(t, math.Pi/2)

	if chaotic <= 0 {
		t.Errorf("chaotic exponent = %v, want > 0", chaotic)
	}
	if chaotic < 10*math.Abs(gentle) {
		t.Errorf("chaotic %v not well above gentle %v", chaotic, gentle)
	}
}

func TestLyapunovParameters(t *testing.T) {
	s := pendulum.NewDefault()
	sys := pendulum.NewSystem(s, 1)
	integ := integrators.NewSemiImplicit()

	if l, err := LyapunovExponent(sys, integ, s.Vector(), 1, 0, 1e-8); err != nil || l != 0 {
		t.Errorf("zero steps = %v, %v", l, err)
	}
	if _, err := LyapunovExponent(sys, integ, s.Vector(), 0, 10, 1e-8); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("dt=0 err = %v", err)
	}
	if _, err := LyapunovExponent(sys, integ, s.Vector(), 1, 10, -1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("negative perturbation err = %v", err)
	}
}

func TestDominantFrequency(t *testing.T) {
	const n = 1000
	data := make([]float64, n)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*0.05*float64(i))
	}

	freq, power := DominantFrequency(data, 1)
	if math.Abs(freq-0.05) > 1e-9 {
		t.Errorf("freq = %v, want 0.05", freq)
	}
	// a unit sine puts n/2 into its bin
	if math.Abs(power-n/2) > 1e-6 {
		t.Errorf("power = %v, want %v", power, n/2)
	}

	freq, _ = DominantFrequency(data, 0.5)
	if math.Abs(freq-0.1) > 1e-9 {
		t.Errorf("freq at dt=0.5 = %v, want 0.1", freq)
	}
}

func TestPowerSpectrumShort(t *testing.T) {
	if ps := PowerSpectrum([]float64{1}); ps != nil {
		t.Errorf("got %v for a single sample", ps)
	}
	if f, p := DominantFrequency(nil, 1); f != 0 || p != 0 {
		t.Errorf("got %v, %v for no data", f, p)
	}
}

func TestPhasePortrait(t *testing.T) {
	states := []dynamo.State{
		{-1, 0, 0, 1},
		{0, 0, 1, 0},
		{1, 0, 0, -1},
		{0, 0, -1, 0},
	}

	p, err := NewPhasePortrait(states, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 4 || p.Points[1] != (Point{0, 1}) {
		t.Fatalf("points = %v", p.Points)
	}

	art := p.ASCII(21, 11)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d rows", len(lines))
	}
	if strings.Count(art, "•") != 4 {
		t.Errorf("expected 4 points in\n%s", art)
	}
	if !strings.Contains(art, "│") {
		t.Errorf("missing vertical axis in\n%s", art)
	}

	if _, err := NewPhasePortrait(states, 0, 7); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("out of range err = %v", err)
	}
	if (&PhasePortrait{}).ASCII(10, 10) != "" {
		t.Error("empty portrait should render nothing")
	}
}

func TestPoincareSection(t *testing.T) {
	var states []dynamo.State
	for i := 0; i < 400; i++ {
		th := float64(i) * 0.1
		states = append(states, dynamo.State{math.Sin(th), float64(i), math.Cos(th), 0})
	}

	section, err := NewPoincareSection(states, 0, 0, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	// sin crosses zero upward once per 2π ≈ 62.8 samples
	if n := len(section.Points); n < 6 || n > 7 {
		t.Fatalf("got %d crossings", n)
	}
	for _, pt := range section.Points {
		if pt.Y < 0.9 {
			t.Errorf("crossing at cos = %v, want near 1", pt.Y)
		}
	}
}
