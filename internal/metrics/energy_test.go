package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// spring is a unit harmonic oscillator, E = (q² + v²)/2.
type spring struct{}

func (spring) Energy(x dynamo.State) float64 { return 0.5 * (x[0]*x[0] + x[1]*x[1]) }

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(spring{}, 0)

	m.Observe(dynamo.State{1, 0}, 0)
	if m.Value() != 0 {
		t.Errorf("expected zero drift after one sample, got %f", m.Value())
	}

	m.Observe(dynamo.State{0, 1.1}, 1)
	m.Observe(dynamo.State{1, 0}, 2)

	// max |0.605 - 0.5| / 0.5
	if math.Abs(m.Value()-0.21) > 1e-9 {
		t.Errorf("expected drift 0.21, got %f", m.Value())
	}
	if m.Current() != 0.5 {
		t.Errorf("expected current energy 0.5, got %f", m.Current())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyDriftScale(t *testing.T) {
	m := NewEnergyDrift(spring{}, 10)
	m.Observe(dynamo.State{1, 0}, 0)
	m.Observe(dynamo.State{2, 0}, 1)

	if math.Abs(m.Value()-0.15) > 1e-12 {
		t.Errorf("expected scaled drift 0.15, got %f", m.Value())
	}
}

func TestEnergyEnvelope(t *testing.T) {
	m := NewEnergyEnvelope(spring{})
	if m.Value() != 0 {
		t.Error("expected empty envelope")
	}

	for _, x := range []dynamo.State{{1, 0}, {0, 2}, {0.5, 0}} {
		m.Observe(x, 0)
	}

	if m.Min != 0.125 || m.Max != 2 {
		t.Errorf("envelope = [%f, %f], want [0.125, 2]", m.Min, m.Max)
	}
	if m.Value() != 1.875 {
		t.Errorf("expected width 1.875, got %f", m.Value())
	}
}
