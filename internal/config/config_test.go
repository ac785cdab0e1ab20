package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Model.DtInterval <= 0 {
		t.Error("dt_interval should be positive")
	}
	if cfg.Run.DaInterval <= 0 {
		t.Error("da_interval should be positive")
	}
	if !cfg.Model.PerturbRho {
		t.Error("default run should estimate rho")
	}
	if cfg.NumCycles() != 10 {
		t.Errorf("NumCycles() = %d, want 10", cfg.NumCycles())
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ensda.yaml")

	cfg := DefaultConfig()
	cfg.Model.PerturbSigma = true
	cfg.Run.Nsamples = 37
	cfg.Observations.Stride = 5

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Model.PerturbSigma {
		t.Error("perturb_sigma lost in round trip")
	}
	if loaded.Run.Nsamples != 37 {
		t.Errorf("nsamples = %d, want 37", loaded.Run.Nsamples)
	}
	if loaded.Observations.Stride != 5 {
		t.Errorf("stride = %d, want 5", loaded.Observations.Stride)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ensda.yaml")
	partial := "run:\n  nsamples: 7\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Nsamples != 7 {
		t.Errorf("nsamples = %d, want 7", cfg.Run.Nsamples)
	}
	if cfg.Model.DtInterval != DefaultDtInterval {
		t.Errorf("dt_interval = %v, want default %v", cfg.Model.DtInterval, DefaultDtInterval)
	}
	if cfg.Observations.File != DefaultObsFile {
		t.Errorf("observations file = %q, want default", cfg.Observations.File)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ensda.yaml")
	bad := "run:\n  nsamples: -3\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load accepted an invalid config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		bad  func(*Config)
	}{
		{"zero dt_interval", func(c *Config) { c.Model.DtInterval = 0 }},
		{"negative x_rel_std", func(c *Config) { c.Model.XRelStd = -0.1 }},
		{"negative obs_rel_std", func(c *Config) { c.Model.ObsRelStd = -0.1 }},
		{"zero nsamples", func(c *Config) { c.Run.Nsamples = 0 }},
		{"zero da_interval", func(c *Config) { c.Run.DaInterval = 0 }},
		{"dt above da", func(c *Config) { c.Model.DtInterval = 2 * c.Run.DaInterval }},
		{"t_end below window", func(c *Config) { c.Run.TEnd = c.Run.DaInterval / 2 }},
		{"zero tolerance", func(c *Config) { c.Run.Tolerance = 0 }},
		{"empty integrator", func(c *Config) { c.Run.Integrator = "" }},
		{"empty obs file", func(c *Config) { c.Observations.File = "" }},
		{"zero stride", func(c *Config) { c.Observations.Stride = 0 }},
		{"negative floor", func(c *Config) { c.Observations.StdFloor = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.bad(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted a bad config")
			}
		})
	}
}

func TestParameterSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.PerturbBeta = true

	p := cfg.ParameterSet()
	if p.X != cfg.Model.X || p.Rho != cfg.Model.Rho {
		t.Error("reference values not carried over")
	}
	if !p.PerturbRho || !p.PerturbBeta || p.PerturbSigma {
		t.Error("perturbation flags not carried over")
	}
	if p.Layout().StateDim() != 5 {
		t.Errorf("StateDim = %d, want 5", p.Layout().StateDim())
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}

	all := GetPreset("estimate-all").ParameterSet().Layout().StateDim()
	none := GetPreset("position-only").ParameterSet().Layout().StateDim()
	if all != 6 || none != 3 {
		t.Errorf("preset state dims = %d, %d, want 6, 3", all, none)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestGetPreset_ReturnsFreshCopy(t *testing.T) {
	a := GetPreset("estimate-rho")
	a.Run.Nsamples = 1

	b := GetPreset("estimate-rho")
	if b.Run.Nsamples == 1 {
		t.Error("presets share state between calls")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) == 0 {
		t.Fatal("no presets registered")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("presets not sorted: %q before %q", names[i-1], names[i])
		}
	}
}
