package config

import (
	"math"
	"sort"
)

func angle(v float64) *float64 { return &v }

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"reference": DefaultConfig(),
	"gentle": preset(func(c *Config) {
		c.Pendulum.Angle = 0.3
	}),
	"chaos": preset(func(c *Config) {
		c.Pendulum.Angle = math.Pi / 2
		c.Pendulum.EndAngle = angle(math.Pi)
		c.Sim.Dt = 0.25
		c.Sim.Policy = "saturate"
	}),
	"heavy_tip": preset(func(c *Config) {
		c.Pendulum.EndMass = 60
		c.Pendulum.Angle = 1.0
	}),
	"damped": preset(func(c *Config) {
		c.Sim.Damping = 0.999
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
