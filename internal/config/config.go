// Package config loads and validates the YAML configuration of an
// assimilation run: the Lorenz 63 reference model, the run geometry
// (ensemble size, window length, end time) and the observation record.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ensda/internal/lorenz"
)

const (
	DefaultDtInterval = 0.01
	DefaultDaInterval = 1.0
	DefaultTEnd       = 10.0
	DefaultNsamples   = 100
	DefaultXRelStd    = 0.1
	DefaultObsRelStd  = 0.1
	DefaultTolerance  = 1e-6
	DefaultIntegrator = "rk45"
	DefaultObsFile    = "obs.dat"
	DefaultStdFloor   = 0.1
	DefaultStride     = 10
)

type Config struct {
	Model        ModelConfig `yaml:"model"`
	Run          RunConfig   `yaml:"run"`
	Observations ObsConfig   `yaml:"observations"`
}

// ModelConfig fixes the reference system: initial position, coefficients,
// relative noise levels and which coefficients the ensemble estimates.
type ModelConfig struct {
	DtInterval float64 `yaml:"dt_interval"`

	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`

	Rho   float64 `yaml:"rho"`
	Beta  float64 `yaml:"beta"`
	Sigma float64 `yaml:"sigma"`

	XRelStd   float64 `yaml:"x_rel_std"`
	ObsRelStd float64 `yaml:"obs_rel_std"`

	PerturbRho   bool `yaml:"perturb_rho"`
	PerturbBeta  bool `yaml:"perturb_beta"`
	PerturbSigma bool `yaml:"perturb_sigma"`
}

type RunConfig struct {
	Nsamples   int     `yaml:"nsamples"`
	DaInterval float64 `yaml:"da_interval"`
	TEnd       float64 `yaml:"t_end"`
	Seed       uint64  `yaml:"seed"`
	Tolerance  float64 `yaml:"tolerance"`
	Integrator string  `yaml:"integrator"`
}

type ObsConfig struct {
	File     string  `yaml:"file"`
	Stride   int     `yaml:"stride"`
	StdFloor float64 `yaml:"std_floor"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			DtInterval: DefaultDtInterval,
			X:          -2.39,
			Y:          -3.46,
			Z:          14.98,
			Rho:        lorenz.DefaultRho,
			Beta:       lorenz.DefaultBeta,
			Sigma:      lorenz.DefaultSigma,
			XRelStd:    DefaultXRelStd,
			ObsRelStd:  DefaultObsRelStd,
			PerturbRho: true,
		},
		Run: RunConfig{
			Nsamples:   DefaultNsamples,
			DaInterval: DefaultDaInterval,
			TEnd:       DefaultTEnd,
			Seed:       42,
			Tolerance:  DefaultTolerance,
			Integrator: DefaultIntegrator,
		},
		Observations: ObsConfig{
			File:     DefaultObsFile,
			Stride:   DefaultStride,
			StdFloor: DefaultStdFloor,
		},
	}
}

// Load reads a config file over the defaults, so partial files work.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

func (c *Config) Validate() error {
	if c.Model.DtInterval <= 0 {
		return fmt.Errorf("config: dt_interval = %v, want > 0", c.Model.DtInterval)
	}
	if c.Model.XRelStd < 0 {
		return fmt.Errorf("config: x_rel_std = %v, want >= 0", c.Model.XRelStd)
	}
	if c.Model.ObsRelStd < 0 {
		return fmt.Errorf("config: obs_rel_std = %v, want >= 0", c.Model.ObsRelStd)
	}
	if c.Run.Nsamples < 1 {
		return fmt.Errorf("config: nsamples = %d, want >= 1", c.Run.Nsamples)
	}
	if c.Run.DaInterval <= 0 {
		return fmt.Errorf("config: da_interval = %v, want > 0", c.Run.DaInterval)
	}
	if c.Model.DtInterval > c.Run.DaInterval {
		return fmt.Errorf("config: dt_interval %v exceeds da_interval %v", c.Model.DtInterval, c.Run.DaInterval)
	}
	if c.Run.TEnd < c.Run.DaInterval {
		return fmt.Errorf("config: t_end = %v, want >= da_interval %v", c.Run.TEnd, c.Run.DaInterval)
	}
	if c.Run.Tolerance <= 0 {
		return fmt.Errorf("config: tolerance = %v, want > 0", c.Run.Tolerance)
	}
	if c.Run.Integrator == "" {
		return fmt.Errorf("config: integrator not set")
	}
	if c.Observations.File == "" {
		return fmt.Errorf("config: observations file not set")
	}
	if c.Observations.Stride < 1 {
		return fmt.Errorf("config: observation stride = %d, want >= 1", c.Observations.Stride)
	}
	if c.Observations.StdFloor < 0 {
		return fmt.Errorf("config: observation std_floor = %v, want >= 0", c.Observations.StdFloor)
	}
	return nil
}

// ParameterSet maps the model block onto the Lorenz 63 reference set.
func (c *Config) ParameterSet() lorenz.ParameterSet {
	return lorenz.ParameterSet{
		X: c.Model.X, Y: c.Model.Y, Z: c.Model.Z,
		Rho: c.Model.Rho, Beta: c.Model.Beta, Sigma: c.Model.Sigma,
		PerturbRho:   c.Model.PerturbRho,
		PerturbBeta:  c.Model.PerturbBeta,
		PerturbSigma: c.Model.PerturbSigma,
	}
}

// NumCycles is the number of assimilation windows in [0, t_end].
func (c *Config) NumCycles() int {
	return int(math.Round(c.Run.TEnd / c.Run.DaInterval))
}
