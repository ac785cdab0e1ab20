// Package automation scripts batches of assimilation runs: scenario files
// listing named runs, sweeps of one run setting across a range, and
// repeated-seed studies of the same configuration.
package automation

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ensda/internal/config"
	"github.com/san-kum/ensda/internal/experiment"
	"github.com/san-kum/ensda/internal/obsrec"
)

// Scenario is a scripted batch of assimilation runs sharing one base
// configuration.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Base        string `yaml:"base"` // preset name; empty means defaults
	Steps       []Step `yaml:"steps"`
}

// Step overrides parts of the base configuration for one run. Zero-valued
// numeric fields keep the base value; the perturb flags are pointers so a
// step can also switch estimation off.
type Step struct {
	Name         string  `yaml:"name"`
	Nsamples     int     `yaml:"nsamples"`
	DaInterval   float64 `yaml:"da_interval"`
	TEnd         float64 `yaml:"t_end"`
	Seed         uint64  `yaml:"seed"`
	XRelStd      float64 `yaml:"x_rel_std"`
	ObsRelStd    float64 `yaml:"obs_rel_std"`
	Tolerance    float64 `yaml:"tolerance"`
	PerturbRho   *bool   `yaml:"perturb_rho"`
	PerturbBeta  *bool   `yaml:"perturb_beta"`
	PerturbSigma *bool   `yaml:"perturb_sigma"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("automation: scenario %s has no steps", path)
	}
	return &scenario, nil
}

// baseConfig resolves the scenario's base preset, or the defaults when no
// preset is named.
func (s *Scenario) baseConfig() (*config.Config, error) {
	if s.Base == "" {
		return config.DefaultConfig(), nil
	}
	cfg := config.GetPreset(s.Base)
	if cfg == nil {
		return nil, fmt.Errorf("automation: unknown base preset %q (have %v)", s.Base, config.ListPresets())
	}
	return cfg, nil
}

// apply copies the base configuration and lays the step's overrides on top.
func (st *Step) apply(base *config.Config) *config.Config {
	cfg := *base
	if st.Nsamples > 0 {
		cfg.Run.Nsamples = st.Nsamples
	}
	if st.DaInterval > 0 {
		cfg.Run.DaInterval = st.DaInterval
	}
	if st.TEnd > 0 {
		cfg.Run.TEnd = st.TEnd
	}
	if st.Seed != 0 {
		cfg.Run.Seed = st.Seed
	}
	if st.XRelStd > 0 {
		cfg.Model.XRelStd = st.XRelStd
	}
	if st.ObsRelStd > 0 {
		cfg.Model.ObsRelStd = st.ObsRelStd
	}
	if st.Tolerance > 0 {
		cfg.Run.Tolerance = st.Tolerance
	}
	if st.PerturbRho != nil {
		cfg.Model.PerturbRho = *st.PerturbRho
	}
	if st.PerturbBeta != nil {
		cfg.Model.PerturbBeta = *st.PerturbBeta
	}
	if st.PerturbSigma != nil {
		cfg.Model.PerturbSigma = *st.PerturbSigma
	}
	return &cfg
}

// StepResult pairs a scenario step with its run outcome.
type StepResult struct {
	Name      string
	Estimated []string
	Result    *experiment.Result
}

// RunScenario materializes each step's configuration, synthesizes its
// observation record under workDir and runs the experiment. The first broken
// step aborts the batch. log may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, workDir string, log *zap.SugaredLogger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base, err := scenario.baseConfig()
	if err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Infow("scenario step", "scenario", scenario.Name, "step", name, "index", i+1, "of", len(scenario.Steps))

		cfg := step.apply(base)
		cfg.Observations.File = filepath.Join(workDir, fmt.Sprintf("obs_%02d.dat", i+1))
		if err := synthesizeRecord(cfg); err != nil {
			return results, fmt.Errorf("automation: step %s: %w", name, err)
		}

		exp, err := experiment.New(cfg, log)
		if err != nil {
			return results, fmt.Errorf("automation: step %s: %w", name, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("automation: step %s: %w", name, err)
		}

		results = append(results, StepResult{Name: name, Estimated: exp.Estimated(), Result: res})
	}
	return results, nil
}

// Sweep varies one run setting across an inclusive range.
type Sweep struct {
	Param string // nsamples, da_interval, x_rel_std, obs_rel_std, tolerance
	Min   float64
	Max   float64
	Steps int
}

// SweepPoint is the outcome of one sweep value.
type SweepPoint struct {
	Value    float64
	MeanRMSE float64
	MaxRMSE  float64
}

// RunSweep runs one experiment per sweep value, regenerating the observation
// record per point because the run geometry may change with the swept
// setting. log may be nil.
func RunSweep(ctx context.Context, base *config.Config, sweep *Sweep, workDir string, log *zap.SugaredLogger) ([]SweepPoint, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sweep.Steps < 2 {
		return nil, fmt.Errorf("automation: sweep needs >= 2 steps, got %d", sweep.Steps)
	}
	if sweep.Max < sweep.Min {
		return nil, fmt.Errorf("automation: sweep range [%v, %v] is inverted", sweep.Min, sweep.Max)
	}

	points := make([]SweepPoint, 0, sweep.Steps)
	stride := (sweep.Max - sweep.Min) / float64(sweep.Steps-1)
	for i := 0; i < sweep.Steps; i++ {
		value := sweep.Min + float64(i)*stride

		cfg := *base
		if err := setParam(&cfg, sweep.Param, value); err != nil {
			return nil, err
		}
		cfg.Observations.File = filepath.Join(workDir, fmt.Sprintf("obs_sweep_%02d.dat", i+1))
		if err := synthesizeRecord(&cfg); err != nil {
			return points, fmt.Errorf("automation: sweep %s=%v: %w", sweep.Param, value, err)
		}

		exp, err := experiment.New(&cfg, log)
		if err != nil {
			return points, fmt.Errorf("automation: sweep %s=%v: %w", sweep.Param, value, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return points, fmt.Errorf("automation: sweep %s=%v: %w", sweep.Param, value, err)
		}

		points = append(points, SweepPoint{Value: value, MeanRMSE: res.MeanRMSE, MaxRMSE: res.MaxRMSE})
		log.Infow("sweep point", "param", sweep.Param, "value", value, "mean_rmse", res.MeanRMSE)
	}
	return points, nil
}

func setParam(cfg *config.Config, param string, value float64) error {
	switch param {
	case "nsamples":
		cfg.Run.Nsamples = int(math.Round(value))
	case "da_interval":
		cfg.Run.DaInterval = value
	case "x_rel_std":
		cfg.Model.XRelStd = value
	case "obs_rel_std":
		cfg.Model.ObsRelStd = value
	case "tolerance":
		cfg.Run.Tolerance = value
	default:
		return fmt.Errorf("automation: cannot sweep %q (have nsamples, da_interval, x_rel_std, obs_rel_std, tolerance)", param)
	}
	return nil
}

// SeedStudy repeats one configuration across consecutive seeds to expose the
// sampling variability of the diagnostics.
type SeedStudy struct {
	Trials   int
	BaseSeed uint64
}

// Trial is the outcome of one seed.
type Trial struct {
	Seed     uint64
	MeanRMSE float64
	MaxRMSE  float64
}

// RunSeedStudy shares one observation record across all trials; the reference
// trajectory does not depend on the seed, only the ensemble draws do. Trials
// are independent whole runs, so they execute concurrently; results come back
// in seed order and the lowest failing seed is reported.
func RunSeedStudy(ctx context.Context, base *config.Config, study *SeedStudy, workDir string, log *zap.SugaredLogger) ([]Trial, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if study.Trials < 1 {
		return nil, fmt.Errorf("automation: seed study needs >= 1 trial, got %d", study.Trials)
	}

	shared := *base
	shared.Observations.File = filepath.Join(workDir, "obs_seeds.dat")
	if err := synthesizeRecord(&shared); err != nil {
		return nil, fmt.Errorf("automation: seed study: %w", err)
	}

	trials := make([]Trial, study.Trials)
	errs := make([]error, study.Trials)

	var wg sync.WaitGroup
	for i := 0; i < study.Trials; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := shared
			cfg.Run.Seed = study.BaseSeed + uint64(idx)

			exp, err := experiment.New(&cfg, log)
			if err != nil {
				errs[idx] = err
				return
			}
			res, err := exp.Run(ctx)
			if err != nil {
				errs[idx] = err
				return
			}
			trials[idx] = Trial{Seed: cfg.Run.Seed, MeanRMSE: res.MeanRMSE, MaxRMSE: res.MaxRMSE}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("automation: seed %d: %w", study.BaseSeed+uint64(i), err)
		}
	}
	log.Infow("seed study complete", "trials", study.Trials)
	return trials, nil
}

// TrialStats summarizes a seed study: mean, best and worst of the per-trial
// mean RMSE.
func TrialStats(trials []Trial) (mean, best, worst float64) {
	if len(trials) == 0 {
		return 0, 0, 0
	}
	best, worst = trials[0].MeanRMSE, trials[0].MeanRMSE
	sum := 0.0
	for _, tr := range trials {
		sum += tr.MeanRMSE
		best = math.Min(best, tr.MeanRMSE)
		worst = math.Max(worst, tr.MeanRMSE)
	}
	return sum / float64(len(trials)), best, worst
}

// synthesizeRecord writes the step's reference observation record where its
// config expects to read it.
func synthesizeRecord(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	rows, err := experiment.SynthesizeTruth(cfg)
	if err != nil {
		return err
	}
	return obsrec.Write(cfg.Observations.File, rows)
}
