package assim

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ensda/internal/dynamo"
	"github.com/san-kum/ensda/internal/lorenz"
)

// DefaultTolerance is the adaptive integration tolerance used when the
// configuration leaves it unset.
const DefaultTolerance = 1e-6

// DynModel is the forecast-and-observe contract an assimilation driver
// consumes. Implementations own their dynamics, ensemble sampling and
// synthetic observations; the update step between windows belongs to the
// driver. Report, Plot and Clean are lifecycle hooks a driver may call
// unconditionally.
type DynModel interface {
	GenerateEnsemble() (*mat.Dense, *mat.Dense)
	Forward(states *mat.Dense, t float64) (*mat.Dense, *mat.Dense)
	ForecastToTime(states *mat.Dense, nextEndTime float64) (*mat.Dense, error)
	Observations(nextEndTime float64) (*mat.Dense, *mat.Dense, *mat.SymDense, error)
	Report()
	Plot()
	Clean()
}

// Config carries the run-level settings of the ensemble model.
type Config struct {
	Nsamples    int
	DtInterval  float64
	DaInterval  float64
	XRelStd     float64
	ObsRelStd   float64
	ObsStdFloor float64
	Tolerance   float64
	Seed        uint64

	// NewIntegrator overrides the per-member solver; nil selects the
	// Dormand-Prince default.
	NewIntegrator func() dynamo.AdaptiveIntegrator
}

// Model is the Lorenz 63 ensemble forward model.
type Model struct {
	sys    *lorenz.System
	layout lorenz.Layout
	cfg    Config

	op   *ObservationOperator
	init *EnsembleInitializer
	gen  *ObservationGenerator
	prop *Propagator

	log *zap.SugaredLogger
}

var _ DynModel = (*Model)(nil)

// NewModel wires the model components around one seeded random stream. obs
// may be nil when the run never requests observations; Observations then
// fails. log may be nil.
func NewModel(params lorenz.ParameterSet, cfg Config, obs ObservationSource, log *zap.SugaredLogger) (*Model, error) {
	if cfg.Nsamples < 1 {
		return nil, fmt.Errorf("assim: nsamples = %d, want >= 1", cfg.Nsamples)
	}
	if cfg.DtInterval <= 0 {
		return nil, fmt.Errorf("assim: dt_interval = %v, want > 0", cfg.DtInterval)
	}
	if cfg.DaInterval < 0 {
		return nil, fmt.Errorf("assim: da_interval = %v, want >= 0", cfg.DaInterval)
	}
	if cfg.XRelStd < 0 || cfg.ObsRelStd < 0 {
		return nil, fmt.Errorf("assim: relative noise levels must be >= 0")
	}
	if cfg.ObsStdFloor < 0 {
		return nil, fmt.Errorf("assim: obs std floor = %v, want >= 0", cfg.ObsStdFloor)
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	sys := lorenz.NewSystem(params)
	layout := sys.Layout()
	src := rand.NewPCG(cfg.Seed, cfg.Seed)

	m := &Model{
		sys:    sys,
		layout: layout,
		cfg:    cfg,
		op:     NewObservationOperator(layout.StateDim()),
		init:   NewEnsembleInitializer(params.InitialState(), cfg.XRelStd, cfg.Nsamples, src),
		gen:    NewObservationGenerator(obs, cfg.DaInterval, cfg.ObsRelStd, cfg.ObsStdFloor, cfg.Nsamples, src),
		prop:   NewPropagator(sys, cfg.DtInterval, cfg.DaInterval, cfg.Tolerance),
		log:    log,
	}
	if cfg.NewIntegrator != nil {
		m.prop.SetSolverFactory(cfg.NewIntegrator)
	}
	return m, nil
}

func (m *Model) StateDim() int { return m.layout.StateDim() }

func (m *Model) Nsamples() int { return m.cfg.Nsamples }

func (m *Model) System() *lorenz.System { return m.sys }

// GenerateEnsemble draws the initial ensemble and its observation-space
// counterpart HX.
func (m *Model) GenerateEnsemble() (*mat.Dense, *mat.Dense) {
	states := m.init.Generate()
	m.log.Infow("generated initial ensemble",
		"nstate", m.layout.StateDim(),
		"nsamples", m.cfg.Nsamples,
		"estimated", m.layout.Names(),
	)
	return states, m.op.Apply(states)
}

// Forward maps states into observation space without advancing time; any
// propagation to t has already happened in ForecastToTime.
func (m *Model) Forward(states *mat.Dense, _ float64) (*mat.Dense, *mat.Dense) {
	return states, m.op.Apply(states)
}

// ForecastToTime integrates every member over the window ending at
// nextEndTime.
func (m *Model) ForecastToTime(states *mat.Dense, nextEndTime float64) (*mat.Dense, error) {
	forecast, err := m.prop.ForecastToTime(states, nextEndTime)
	if err != nil {
		return nil, err
	}
	m.log.Debugw("ensemble forecast", "t", nextEndTime)
	return forecast, nil
}

// Observations synthesizes the noisy observation set for the window ending
// at nextEndTime.
func (m *Model) Observations(nextEndTime float64) (*mat.Dense, *mat.Dense, *mat.SymDense, error) {
	return m.gen.Observe(nextEndTime)
}

// Report logs a one-line summary of the model configuration.
func (m *Model) Report() {
	m.log.Infow("lorenz 63 ensemble model",
		"nstate", m.layout.StateDim(),
		"nsamples", m.cfg.Nsamples,
		"dt_interval", m.cfg.DtInterval,
		"da_interval", m.cfg.DaInterval,
		"estimated", m.layout.Names(),
	)
}

// Plot and Clean are driver hooks this model has no work for.
func (m *Model) Plot() {}

func (m *Model) Clean() {}
