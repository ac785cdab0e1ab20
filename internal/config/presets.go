package config

import "sort"

// presets are ready-made twin-experiment setups keyed by which coefficients
// the ensemble estimates.
var presets = map[string]func() *Config{
	// Pure state estimation, no augmentation.
	"position-only": func() *Config {
		cfg := DefaultConfig()
		cfg.Model.PerturbRho = false
		return cfg
	},
	// The classic single-parameter case from the Lorenz twin experiment.
	"estimate-rho": func() *Config {
		return DefaultConfig()
	},
	"estimate-rho-beta": func() *Config {
		cfg := DefaultConfig()
		cfg.Model.PerturbBeta = true
		return cfg
	},
	"estimate-all": func() *Config {
		cfg := DefaultConfig()
		cfg.Model.PerturbBeta = true
		cfg.Model.PerturbSigma = true
		cfg.Run.Nsamples = 200
		return cfg
	},
	// Sparse observations: longer windows over the same horizon.
	"sparse-obs": func() *Config {
		cfg := DefaultConfig()
		cfg.Run.DaInterval = 2.0
		cfg.Run.TEnd = 20.0
		return cfg
	},
}

// GetPreset returns a fresh config for a named preset, or nil when the name
// is unknown.
func GetPreset(name string) *Config {
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
