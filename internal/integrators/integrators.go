// Package integrators provides fixed-step numerical steppers over
// dynamo.System.
//
// Instances keep scratch buffers between calls and must not be shared
// between goroutines; call New once per simulation.
package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":         func() dynamo.Integrator { return NewEuler() },
	"semi_implicit": func() dynamo.Integrator { return NewSemiImplicit() },
	"rk4":           func() dynamo.Integrator { return NewRK4() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %q (available: %v)", dynamo.ErrUnknown, name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
