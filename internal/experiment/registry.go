package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/ensda/internal/dynamo"
	"github.com/san-kum/ensda/internal/integrators"
)

// Registry maps integrator names to constructors. The ensemble propagator
// needs an adaptive method; fixed-step methods remain available for
// reference trajectories and diagnostics.
type Registry struct {
	fixed    map[string]func() dynamo.Integrator
	adaptive map[string]func() dynamo.AdaptiveIntegrator
}

func NewRegistry() *Registry {
	r := &Registry{
		fixed:    make(map[string]func() dynamo.Integrator),
		adaptive: make(map[string]func() dynamo.AdaptiveIntegrator),
	}

	r.fixed["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.fixed["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.fixed["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.adaptive["rk45"] = func() dynamo.AdaptiveIntegrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.fixed[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (have %v)", name, r.ListIntegrators())
	}
	return fn(), nil
}

// GetAdaptive returns a per-member solver factory for an adaptive method.
func (r *Registry) GetAdaptive(name string) (func() dynamo.AdaptiveIntegrator, error) {
	fn, ok := r.adaptive[name]
	if !ok {
		return nil, fmt.Errorf("integrator %s has no step-size control; ensemble forecasting needs one of %v", name, r.ListAdaptive())
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.fixed))
	for name := range r.fixed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListAdaptive() []string {
	names := make([]string, 0, len(r.adaptive))
	for name := range r.adaptive {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
