package metrics

import (
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// EnergyDrift tracks the largest deviation of total energy from the first
// observed sample. Value is normalised by scale, or by |E0| when scale is
// not positive.
type EnergyDrift struct {
	name          string
	sys           dynamo.Hamiltonian
	scale         float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(sys dynamo.Hamiltonian, scale float64) *EnergyDrift {
	return &EnergyDrift{
		name:  "energy_drift",
		sys:   sys,
		scale: scale,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.sys.Energy(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.currentEnergy = energy
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initialEnergy))
}

func (e *EnergyDrift) Value() float64 {
	scale := e.scale
	if scale <= 0 {
		scale = math.Abs(e.initialEnergy)
	}
	if scale == 0 {
		return e.maxDrift
	}
	return e.maxDrift / scale
}

// Current returns the last observed energy.
func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// EnergyEnvelope records the lowest and highest energy seen; Value is the
// width of the envelope.
type EnergyEnvelope struct {
	sys      dynamo.Hamiltonian
	Min, Max float64
	samples  int
}

func NewEnergyEnvelope(sys dynamo.Hamiltonian) *EnergyEnvelope {
	return &EnergyEnvelope{sys: sys}
}

func (e *EnergyEnvelope) Name() string { return "energy_envelope" }

func (e *EnergyEnvelope) Observe(x dynamo.State, t float64) {
	energy := e.sys.Energy(x)
	if e.samples == 0 {
		e.Min, e.Max = energy, energy
	}
	e.Min = math.Min(e.Min, energy)
	e.Max = math.Max(e.Max, energy)
	e.samples++
}

func (e *EnergyEnvelope) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.Max - e.Min
}

func (e *EnergyEnvelope) Reset() {
	e.Min, e.Max = 0, 0
	e.samples = 0
}
