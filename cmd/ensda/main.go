package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/ensda/internal/analysis"
	"github.com/san-kum/ensda/internal/automation"
	"github.com/san-kum/ensda/internal/config"
	"github.com/san-kum/ensda/internal/experiment"
	"github.com/san-kum/ensda/internal/integrators"
	"github.com/san-kum/ensda/internal/lorenz"
	"github.com/san-kum/ensda/internal/obsrec"
	"github.com/san-kum/ensda/internal/storage"
	"github.com/san-kum/ensda/internal/tui"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	preset     string

	nsamples int
	seed     uint64
	tEnd     float64

	truthOut string

	analyzeTime float64
	analyzeDt   float64
	analyzeEps  float64

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	seedTrials int
)

// main registers the ensda commands and executes the root command, exiting
// non-zero when a command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:   "ensda",
		Short: "lorenz 63 ensemble data assimilation lab",
		Long: `ensda runs twin experiments against the Lorenz 63 system: it synthesizes a
reference observation record, forecasts an ensemble of augmented states
through every assimilation window and reports how the forecast tracks the
reference. Coefficients flagged for estimation ride along in the state
vector; the analysis update between windows is the driver's job, not ours.`,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ensda", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-cycle details")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a starter config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(" ", name)
			}
			return nil
		},
	}

	truthCmd := &cobra.Command{
		Use:   "truth",
		Short: "synthesize the reference observation record",
		RunE:  runTruth,
	}
	truthCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	truthCmd.Flags().StringVar(&truthOut, "out", "", "record path (default: the configured observations file)")
	truthCmd.Flags().Float64Var(&tEnd, "t-end", 0, "override run end time")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a twin experiment",
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&nsamples, "samples", 0, "override ensemble size")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "override random seed")
	runCmd.Flags().Float64Var(&tEnd, "t-end", 0, "override run end time")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a twin experiment with a live cycle view",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	liveCmd.Flags().IntVar(&nsamples, "samples", 0, "override ensemble size")
	liveCmd.Flags().Uint64Var(&seed, "seed", 0, "override random seed")
	liveCmd.Flags().Float64Var(&tEnd, "t-end", 0, "override run end time")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "characterize the configured system (lyapunov exponent, spectrum, attractor)",
		RunE:  analyzeSystem,
	}
	analyzeCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	analyzeCmd.Flags().Float64Var(&analyzeTime, "time", 50.0, "analysis duration")
	analyzeCmd.Flags().Float64Var(&analyzeDt, "dt", 0.01, "analysis timestep")
	analyzeCmd.Flags().Float64Var(&analyzeEps, "eps", 1e-8, "initial trajectory separation")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one run setting and compare forecast error",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "nsamples", "setting to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 10, "sweep range start")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 100, "sweep range end")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 4, "number of sweep points")

	seedsCmd := &cobra.Command{
		Use:   "seeds",
		Short: "repeat one configuration across seeds",
		RunE:  runSeeds,
	}
	seedsCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	seedsCmd.Flags().IntVar(&seedTrials, "trials", 10, "number of trials")
	seedsCmd.Flags().Uint64Var(&seed, "seed", 0, "override first seed")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted batch of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	rootCmd.AddCommand(initCmd, presetsCmd, truthCmd, runCmd, liveCmd, analyzeCmd, runsCmd, plotCmd, sweepCmd, seedsCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the run logger: warnings only unless --verbose asks for
// the per-cycle detail.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// loadConfig resolves the configuration: an explicit file wins, then a named
// preset, then the defaults; the shared command flags override on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	if f := cmd.Flags().Lookup("samples"); f != nil && f.Changed {
		cfg.Run.Nsamples = nsamples
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Run.Seed = seed
	}
	if f := cmd.Flags().Lookup("t-end"); f != nil && f.Changed {
		cfg.Run.TEnd = tEnd
	}
	return cfg, cfg.Validate()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	path := "ensda.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runTruth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rows, err := experiment.SynthesizeTruth(cfg)
	if err != nil {
		return err
	}

	out := cfg.Observations.File
	if truthOut != "" {
		out = truthOut
	}
	if err := obsrec.Write(out, rows); err != nil {
		return err
	}

	fmt.Printf("reference trajectory: %d rows, sample interval %.4f\n",
		len(rows), cfg.Run.DaInterval/float64(cfg.Observations.Stride))
	fmt.Printf("covers %d assimilation windows of %.2f\n", cfg.NumCycles(), cfg.Run.DaInterval)
	fmt.Printf("written to %s\n", out)
	return nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	exp, err := newExperiment(cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("forecasting %d members over %d windows...\n", cfg.Run.Nsamples, exp.NumCycles())
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, exp.Estimated(), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("mean rmse: %.4f   max rmse: %.4f\n", result.MeanRMSE, result.MaxRMSE)

	if est := exp.Estimated(); len(est) > 0 && len(result.Cycles) > 0 {
		last := result.Cycles[len(result.Cycles)-1]
		fmt.Println("\nestimated coefficients, final ensemble mean and spread:")
		for i, name := range est {
			row := lorenz.PhysicalDim + i
			fmt.Printf("  %-6s %9.4f ± %.4f   (reference %.4f)\n",
				name, last.Mean[row], last.Spread[row], referenceValue(cfg, name))
		}
	}

	if len(result.Cycles) > 1 {
		rmse := make([]float64, len(result.Cycles))
		for i, c := range result.Cycles {
			rmse[i] = c.RMSE
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(rmse,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("forecast rmse per cycle"),
		))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	exp, err := newExperiment(cfg, log)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(exp))
	_, err = p.Run()
	return err
}

// newExperiment wires a run, pointing a missing observation record at the
// command that creates one.
func newExperiment(cfg *config.Config, log *zap.SugaredLogger) (*experiment.Experiment, error) {
	exp, err := experiment.New(cfg, log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (run `ensda truth` first to synthesize the observation record)", err)
		}
		return nil, err
	}
	return exp, nil
}

func referenceValue(cfg *config.Config, name string) float64 {
	switch name {
	case "rho":
		return cfg.Model.Rho
	case "beta":
		return cfg.Model.Beta
	case "sigma":
		return cfg.Model.Sigma
	}
	return math.NaN()
}

func analyzeSystem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Characterize the physical system itself; augmentation only pads the
	// state with constant rows.
	params := cfg.ParameterSet()
	params.PerturbRho = false
	params.PerturbBeta = false
	params.PerturbSigma = false
	sys := lorenz.NewSystem(params)
	x0 := params.InitialState()

	fmt.Printf("lorenz 63: rho=%.4f beta=%.4f sigma=%.4f\n\n", params.Rho, params.Beta, params.Sigma)

	lambda := analysis.LyapunovExponent(sys, integrators.NewRK4(), x0, analyzeDt, analyzeTime, analyzeEps)
	fmt.Printf("largest lyapunov exponent: %.4f\n", lambda)
	if lambda > 0 {
		fmt.Printf("positive exponent: chaotic, error doubling time %.2f time units\n", math.Ln2/lambda)
		fmt.Printf("forecasts beyond a few windows need assimilation to stay on track\n\n")
	} else {
		fmt.Printf("non-positive exponent: trajectories do not diverge in this regime\n\n")
	}

	portrait := analysis.TracePortrait(sys, integrators.NewRK4(), x0, 0, 2, analyzeDt, analyzeTime)
	if portrait != nil {
		fmt.Println("attractor, x-z projection:")
		fmt.Println(portrait.RenderASCII(70, 22))

		ps := analysis.PowerSpectrum(portrait.X)
		fmt.Println(asciigraph.Plot(ps[:len(ps)/4],
			asciigraph.Height(12),
			asciigraph.Width(70),
			asciigraph.Caption("power spectrum (x component)"),
		))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSAMPLES\tWINDOW\tT_END\tESTIMATED\tCYCLES\tMEAN_RMSE")
	for _, run := range runs {
		estimated := strings.Join(run.Estimated, ",")
		if estimated == "" {
			estimated = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.1f\t%s\t%d\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Nsamples,
			run.DaInterval,
			run.TEnd,
			estimated,
			run.Cycles,
			run.MeanRMSE,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	header, rows, err := st.LoadCycles(runID)
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("run %s has %d cycles, nothing to plot", runID, len(rows))
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d   window: %.2f   estimated: %s\n\n",
		meta.Nsamples, meta.DaInterval, strings.Join(meta.Estimated, ","))

	series := []string{"rmse", "obs_x"}
	for _, name := range meta.Estimated {
		series = append(series, "mean_"+name, "spread_"+name)
	}

	for _, col := range series {
		data, ok := storage.Column(header, rows, col)
		if !ok {
			continue
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs cycle"),
		))
		fmt.Println()
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	workDir := filepath.Join(dataDir, "sweep")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}

	fmt.Printf("sweeping %s over [%g, %g] in %d points...\n", sweepParam, sweepMin, sweepMax, sweepSteps)
	points, err := automation.RunSweep(context.Background(), cfg, &automation.Sweep{
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	}, workDir, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEAN_RMSE\tMAX_RMSE\n", strings.ToUpper(sweepParam))
	rmse := make([]float64, len(points))
	for i, p := range points {
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\n", p.Value, p.MeanRMSE, p.MaxRMSE)
		rmse[i] = p.MeanRMSE
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(rmse,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(fmt.Sprintf("mean rmse vs %s", sweepParam)),
	))
	return nil
}

func runSeeds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	workDir := filepath.Join(dataDir, "seeds")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}

	trials, err := automation.RunSeedStudy(context.Background(), cfg, &automation.SeedStudy{
		Trials:   seedTrials,
		BaseSeed: cfg.Run.Seed,
	}, workDir, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tMEAN_RMSE\tMAX_RMSE")
	for _, tr := range trials {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\n", tr.Seed, tr.MeanRMSE, tr.MaxRMSE)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	mean, best, worst := automation.TrialStats(trials)
	fmt.Printf("\n%d trials: mean rmse %.4f (best %.4f, worst %.4f)\n", len(trials), mean, best, worst)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	workDir := filepath.Join(dataDir, "scenario")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(context.Background(), scenario, workDir, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tESTIMATED\tCYCLES\tMEAN_RMSE\tMAX_RMSE")
	for _, r := range results {
		estimated := strings.Join(r.Estimated, ",")
		if estimated == "" {
			estimated = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\n",
			r.Name, estimated, len(r.Result.Cycles), r.Result.MeanRMSE, r.Result.MaxRMSE)
	}
	return w.Flush()
}
