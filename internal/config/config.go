package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/pendulum"
)

const (
	DefaultTickRate    = 60.0
	DefaultMaxSubsteps = 8
	DefaultSteps       = 3600
)

type Config struct {
	Pendulum PendulumConfig `yaml:"pendulum" json:"pendulum"`
	Sim      SimConfig      `yaml:"sim" json:"sim"`
}

type PendulumConfig struct {
	BaseLength float64 `yaml:"base_length" json:"base_length"`
	BaseMass   float64 `yaml:"base_mass" json:"base_mass"`
	EndLength  float64 `yaml:"end_length" json:"end_length"`
	EndMass    float64 `yaml:"end_mass" json:"end_mass"`
	Angle      float64 `yaml:"angle" json:"angle"`

	// EndAngle overrides the end rod's starting angle. Unset means both
	// rods start at Angle.
	EndAngle  *float64 `yaml:"end_angle,omitempty" json:"end_angle,omitempty"`
	BaseOmega float64  `yaml:"base_omega" json:"base_omega"`
	EndOmega  float64  `yaml:"end_omega" json:"end_omega"`
}

type SimConfig struct {
	Gravity     float64 `yaml:"gravity" json:"gravity"`
	Dt          float64 `yaml:"dt" json:"dt"`
	TickRate    float64 `yaml:"tick_rate" json:"tick_rate"`
	MaxSubsteps int     `yaml:"max_substeps" json:"max_substeps"`
	Damping     float64 `yaml:"damping" json:"damping"`
	Policy      string  `yaml:"policy" json:"policy"`
	Integrator  string  `yaml:"integrator" json:"integrator"`
	Steps       int     `yaml:"steps" json:"steps"`
}

// DefaultConfig is the reference demo: two 200-long, 20-mass rods released
// from horizontal under unit gravity, one unit step per frame.
func DefaultConfig() *Config {
	return &Config{
		Pendulum: PendulumConfig{
			BaseLength: pendulum.DefaultLength,
			BaseMass:   pendulum.DefaultMass,
			EndLength:  pendulum.DefaultLength,
			EndMass:    pendulum.DefaultMass,
			Angle:      pendulum.DefaultAngle,
		},
		Sim: SimConfig{
			Gravity:     pendulum.DefaultGravity,
			Dt:          1,
			TickRate:    DefaultTickRate,
			MaxSubsteps: DefaultMaxSubsteps,
			Damping:     1,
			Policy:      pendulum.PolicyReport.String(),
			Integrator:  pendulum.NativeIntegrator,
			Steps:       DefaultSteps,
		},
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys
// it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	if c.Pendulum.EndAngle != nil {
		a := *c.Pendulum.EndAngle
		out.Pendulum.EndAngle = &a
	}
	return &out
}

func (c *Config) Validate() error {
	if _, err := c.State(); err != nil {
		return err
	}
	sc, err := c.SimConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	if c.Sim.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative, got %d", dynamo.ErrInvalidParameter, c.Sim.Steps)
	}
	return nil
}

// State builds the starting pendulum.
func (c *Config) State() (*pendulum.State, error) {
	p := c.Pendulum
	s, err := pendulum.Initialize(p.BaseLength, p.BaseMass, p.EndLength, p.EndMass, p.Angle)
	if err != nil {
		return nil, err
	}
	if p.EndAngle != nil {
		s.End.Angle = *p.EndAngle
	}
	s.Base.AngularVelocity = p.BaseOmega
	s.End.AngularVelocity = p.EndOmega
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Config) SimConfig() (pendulum.SimConfig, error) {
	policy, err := pendulum.ParsePolicy(c.Sim.Policy)
	if err != nil {
		return pendulum.SimConfig{}, err
	}
	return pendulum.SimConfig{
		Gravity:     c.Sim.Gravity,
		Dt:          c.Sim.Dt,
		TickRate:    c.Sim.TickRate,
		MaxSubsteps: c.Sim.MaxSubsteps,
		Damping:     c.Sim.Damping,
		Policy:      policy,
		Integrator:  c.Sim.Integrator,
	}, nil
}
