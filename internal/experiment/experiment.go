// Package experiment drives twin experiments: a synthesized reference run
// provides the observation record, and the ensemble model is forecast through
// every assimilation window against it while per-cycle diagnostics accumulate.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ensda/internal/assim"
	"github.com/san-kum/ensda/internal/config"
	"github.com/san-kum/ensda/internal/metrics"
	"github.com/san-kum/ensda/internal/obsrec"
)

// Cycle is the diagnostic summary of one assimilation window.
type Cycle struct {
	Index    int
	Time     float64
	Mean     []float64 // ensemble mean per augmented state row
	Spread   []float64 // ensemble sample std dev per augmented state row
	RMSE     float64   // forecast-mean error against the reference position
	Obs      []float64 // noisy observation served this window
	NoiseVar []float64 // diagonal of the observation error covariance
}

// Result is a finished run.
type Result struct {
	Cycles   []Cycle
	MeanRMSE float64
	MaxRMSE  float64
}

// Experiment forecasts the ensemble model window by window against an
// observation record. There is no update step; the forecast of one window is
// the initial ensemble of the next, so diagnostics show the free divergence
// of the ensemble from the reference.
type Experiment struct {
	cfg   *config.Config
	model *assim.Model
	rec   *obsrec.Record
	log   *zap.SugaredLogger

	states  *mat.Dense
	cycle   int
	ncycles int
	cycles  []Cycle
	rmse    *metrics.Running
}

// New loads the observation record, builds the ensemble model and draws the
// initial ensemble. The record must cover every assimilation step of the run.
// log may be nil.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	rec, err := obsrec.Load(cfg.Observations.File, cfg.Observations.Stride)
	if err != nil {
		return nil, err
	}
	ncycles := cfg.NumCycles()
	if rec.Steps() < ncycles {
		return nil, fmt.Errorf("experiment: record %s covers %d assimilation steps, run needs %d",
			cfg.Observations.File, rec.Steps(), ncycles)
	}

	newSolver, err := NewRegistry().GetAdaptive(cfg.Run.Integrator)
	if err != nil {
		return nil, err
	}

	model, err := assim.NewModel(cfg.ParameterSet(), assim.Config{
		Nsamples:      cfg.Run.Nsamples,
		DtInterval:    cfg.Model.DtInterval,
		DaInterval:    cfg.Run.DaInterval,
		XRelStd:       cfg.Model.XRelStd,
		ObsRelStd:     cfg.Model.ObsRelStd,
		ObsStdFloor:   cfg.Observations.StdFloor,
		Tolerance:     cfg.Run.Tolerance,
		Seed:          cfg.Run.Seed,
		NewIntegrator: newSolver,
	}, rec, log)
	if err != nil {
		return nil, err
	}

	states, _ := model.GenerateEnsemble()

	return &Experiment{
		cfg:     cfg,
		model:   model,
		rec:     rec,
		log:     log,
		states:  states,
		ncycles: ncycles,
		cycles:  make([]Cycle, 0, ncycles),
		rmse:    metrics.NewRunning("rmse"),
	}, nil
}

// Step runs one assimilation window: forecast the ensemble to the window end,
// synthesize the observation set and collect diagnostics. The forecast error
// is measured in observation space against the noise-free reference.
func (e *Experiment) Step() (Cycle, error) {
	if e.Done() {
		return Cycle{}, fmt.Errorf("experiment: all %d cycles already run", e.ncycles)
	}

	k := e.cycle
	t := float64(k+1) * e.cfg.Run.DaInterval

	forecast, err := e.model.ForecastToTime(e.states, t)
	if err != nil {
		return Cycle{}, err
	}
	states, hx := e.model.Forward(forecast, t)

	obs, perturb, cov, err := e.model.Observations(t)
	if err != nil {
		return Cycle{}, err
	}

	nobs, _ := obs.Dims()
	obsVec := make([]float64, nobs)
	ref := make([]float64, nobs)
	noiseVar := make([]float64, nobs)
	for i := 0; i < nobs; i++ {
		obsVec[i] = obs.At(i, 0)
		ref[i] = obs.At(i, 0) - perturb.At(i, 0)
		noiseVar[i] = cov.At(i, i)
	}

	rmse := metrics.RMSE(metrics.Means(hx), ref)
	e.rmse.Observe(rmse)

	cyc := Cycle{
		Index:    k,
		Time:     t,
		Mean:     metrics.Means(states),
		Spread:   metrics.Spreads(states),
		RMSE:     rmse,
		Obs:      obsVec,
		NoiseVar: noiseVar,
	}
	e.log.Infow("cycle complete", "cycle", k, "t", t, "rmse", rmse)

	e.states = states
	e.cycles = append(e.cycles, cyc)
	e.cycle++
	return cyc, nil
}

// Run steps through every remaining window, honoring ctx between cycles.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	e.model.Report()
	for !e.Done() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if _, err := e.Step(); err != nil {
			return nil, err
		}
	}
	return e.Result(), nil
}

// Result summarizes the cycles run so far.
func (e *Experiment) Result() *Result {
	return &Result{
		Cycles:   e.cycles,
		MeanRMSE: e.rmse.Value(),
		MaxRMSE:  e.rmse.Max(),
	}
}

func (e *Experiment) Done() bool { return e.cycle >= e.ncycles }

// CycleIndex is the next window to run, also the count already run.
func (e *Experiment) CycleIndex() int { return e.cycle }

func (e *Experiment) NumCycles() int { return e.ncycles }

func (e *Experiment) Cycles() []Cycle { return e.cycles }

func (e *Experiment) StateDim() int { return e.model.StateDim() }

// Estimated names the coefficients carried in the augmented state rows.
func (e *Experiment) Estimated() []string { return e.model.System().Layout().Names() }
