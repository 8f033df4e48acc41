package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/pathtrack/internal/analysis"
	"github.com/san-kum/pathtrack/internal/automation"
	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/experiment"
	"github.com/san-kum/pathtrack/internal/export"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/optim"
	"github.com/san-kum/pathtrack/internal/planner"
	"github.com/san-kum/pathtrack/internal/sim"
	"github.com/san-kum/pathtrack/internal/storage"
	"github.com/san-kum/pathtrack/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	trace      bool
	configFile string
	pathPreset string
	duration   float64
	cycleTime  float64
	integrator string
	fallback   string
	maxLinear  float64
	maxAngular float64
	qWeights   []float64
	rWeights   []float64
	startX     float64
	startY     float64
	startTheta float64
	noSave     bool
	outFile    string
	svgWidth   int
	svgHeight  int
	band       float64
	metricName string
	workers    int
	qyValues   []float64
	qthValues  []float64
	romValues  []float64
	topN       int
	trials     int
	lateral    float64
	headingErr float64
	seed       int64
	themeName  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pathtrack",
		Short: "lqr path tracking lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pathtrack", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "diagnostic logging")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "per-cycle trace logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", "retro", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and samples as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export path and trajectory as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "tracking error and oscillation analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&band, "band", 0.05, "lateral settling band (m)")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search over Q/R weights",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneWeights,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metricName, "metric", "cross_track", "metric to minimise")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "parallel evaluations")
	tuneCmd.Flags().Float64SliceVar(&qyValues, "q-y", []float64{0.5, 1, 2, 5}, "lateral weight values")
	tuneCmd.Flags().Float64SliceVar(&qthValues, "q-theta", []float64{0.5, 1, 2}, "heading weight values")
	tuneCmd.Flags().Float64SliceVar(&romValues, "r-omega", []float64{0.5, 1, 2}, "angular effort weight values")
	tuneCmd.Flags().IntVar(&topN, "top", 5, "candidates to print")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted scenario and store every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "perturb the start pose and report goal success",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addScenarioFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&lateral, "lateral", 0.3, "start x/y perturbation (m)")
	monteCarloCmd.Flags().Float64Var(&headingErr, "heading", 0.3, "start heading perturbation (rad)")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets and path shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tPATH\tSCALE\tDURATION\tFALLBACK")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%.0fs\t%s\n", name, p.Path.Preset, p.Path.Scale, p.Sim.Duration, p.Sim.Fallback)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\npaths: %s\n", strings.Join(config.ListPaths(), ", "))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, exportSVGCmd, analyzeCmd, tuneCmd, batchCmd, monteCarloCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&pathPreset, "path", "", "path shape (overrides preset)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&cycleTime, "dt", config.DefaultCycleTime, "control cycle time")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().StringVar(&fallback, "fallback", config.FallbackPrevious, "singular gain policy: previous, zero, abort")
	cmd.Flags().Float64Var(&maxLinear, "max-v", config.DefaultMaxLinear, "max linear speed")
	cmd.Flags().Float64Var(&maxAngular, "max-omega", config.DefaultMaxAngular, "max angular speed")
	cmd.Flags().Float64SliceVar(&qWeights, "q", nil, "state weights q_x,q_y,q_theta")
	cmd.Flags().Float64SliceVar(&rWeights, "r", nil, "control weights r_v,r_omega")
	cmd.Flags().Float64Var(&startX, "x", 0, "initial x")
	cmd.Flags().Float64Var(&startY, "y", 0, "initial y")
	cmd.Flags().Float64Var(&startTheta, "theta", 0, "initial heading")
}

func setupLogging() {
	var diag, tr io.Writer
	if verbose {
		diag = os.Stderr
	}
	if trace {
		tr = os.Stderr
	}
	planner.SetLogWriters(os.Stderr, diag, tr)
	sim.SetLogWriters(os.Stderr, diag, tr)
}

// loadScenario resolves the preset argument, then the config file, then any
// flags the user actually set.
func loadScenario(cmd *cobra.Command, args []string) (string, *config.Config, error) {
	name := "cruise"
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return "", nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) == 0 {
			name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		}
	}

	flags := cmd.Flags()
	if flags.Changed("path") {
		cfg.Path.Preset = pathPreset
		cfg.Path.Waypoints = nil
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("dt") {
		cfg.Controller.CycleTime = cycleTime
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if flags.Changed("fallback") {
		cfg.Sim.Fallback = fallback
	}
	if flags.Changed("max-v") {
		cfg.Sim.MaxLinear = maxLinear
	}
	if flags.Changed("max-omega") {
		cfg.Sim.MaxAngular = maxAngular
	}
	if flags.Changed("q") {
		if len(qWeights) != 3 {
			return "", nil, fmt.Errorf("--q needs 3 values, got %d", len(qWeights))
		}
		copy(cfg.Controller.Q[:], qWeights)
	}
	if flags.Changed("r") {
		if len(rWeights) != 2 {
			return "", nil, fmt.Errorf("--r needs 2 values, got %d", len(rWeights))
		}
		copy(cfg.Controller.R[:], rWeights)
	}
	if flags.Changed("x") {
		cfg.Sim.Start.X = startX
	}
	if flags.Changed("y") {
		cfg.Sim.Start.Y = startY
	}
	if flags.Changed("theta") {
		cfg.Sim.Start.Heading = startTheta
	}
	return name, cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(name, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s (%s path, %d waypoints)...\n", name, cfg.Path.Preset, len(exp.Path()))
	start := time.Now()

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run stopped early: %v\n", runErr)
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.Metadata(), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("goal reached: %v\n", result.GoalReached)
	fmt.Printf("fallbacks: %d\n", result.Fallbacks)
	fmt.Printf("planner: %s\n", result.Diagnostics)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return runErr
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runLive(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(name, cfg)
	if err != nil {
		return err
	}

	// Reset needs a planner with a fresh cursor and goal state.
	first := true
	factory := func() (*sim.Session, error) {
		if first {
			first = false
			return exp.Start()
		}
		fresh, err := experiment.New(name, cfg)
		if err != nil {
			return nil, err
		}
		return fresh.Start()
	}

	m, err := viz.NewModel(name, exp.Path(), cfg.Controller.CycleTime, factory)
	if err != nil {
		return err
	}
	return viz.Run(m.WithTheme(themeName))
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tDT\tINTEG\tGOAL\tCROSS_TRACK")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3fs\t%s\t%v\t%.4f\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			run.GoalReached,
			run.Metrics["cross_track"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []storage.Record, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	records, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, records, nil
}

// series pulls one column out of the recorded samples. The last record
// carries only a pose, so command and error columns drop it.
func series(records []storage.Record, f func(storage.Record) float64, withFinal bool) []float64 {
	n := len(records)
	if !withFinal && n > 1 {
		n--
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = f(records[i])
	}
	return out
}

func trajectory(records []storage.Record) []nav.Pose {
	out := make([]nav.Pose, len(records))
	for i, r := range records {
		out[i] = r.Pose
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s  steps: %d  goal reached: %v\n\n", meta.Scenario, meta.Steps, meta.GoalReached)

	fmt.Println(viz.RenderScene(meta.Path, trajectory(records), 60, 20))
	fmt.Println()

	ey := series(records, func(r storage.Record) float64 { return r.Error[1] }, false)
	eth := series(records, func(r storage.Record) float64 { return r.Error[2] }, false)
	fmt.Println(viz.PlotMany("tracking error (e_y, e_theta)", []string{"e_y", "e_theta"}, [][]float64{ey, eth}, 80, 12))
	fmt.Println()

	v := series(records, func(r storage.Record) float64 { return r.Command.V }, false)
	w := series(records, func(r storage.Record) float64 { return r.Command.Omega }, false)
	fmt.Println(viz.PlotSeries("linear speed v", v, 80, 8))
	fmt.Println()
	fmt.Println(viz.PlotSeries("angular speed omega", w, 80, 8))

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, meta, records)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.ExportJSON(f, meta, records); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := outFile
	if out == "" {
		out = meta.ID + ".svg"
	}
	svg := export.SceneToSVG(meta.Path, trajectory(records), svgWidth, svgHeight)
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", out)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	times := series(records, func(r storage.Record) float64 { return r.Time }, false)
	ey := series(records, func(r storage.Record) float64 { return r.Error[1] }, false)
	eth := series(records, func(r storage.Record) float64 { return r.Error[2] }, false)
	omega := series(records, func(r storage.Record) float64 { return r.Command.Omega }, false)

	fmt.Printf("rms lateral error: %.4f m\n", analysis.RMS(ey))
	fmt.Printf("rms heading error: %.4f rad\n", analysis.RMS(eth))
	if ts, ok := analysis.SettlingTime(ey, times, band); ok {
		fmt.Printf("lateral settling time (±%.3f m): %.2f s\n", band, ts)
	} else {
		fmt.Printf("lateral error never settles within ±%.3f m\n", band)
	}

	_, mags := analysis.PowerSpectrum(omega, meta.Dt)
	if len(mags) > 1 {
		fmt.Println()
		fmt.Println(viz.PlotSeries("omega power spectrum", mags[1:], 80, 10))
	}
	freq, power := analysis.DominantFrequency(omega, meta.Dt)
	fmt.Printf("\ndominant omega frequency: %.3f hz (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	errs := make([]nav.ErrorState, len(ey))
	for i := range errs {
		errs[i] = records[i].Error
	}
	fmt.Println("\nerror portrait (e_y vs e_theta):")
	fmt.Println(analysis.PortraitToASCII(analysis.NewErrorPortrait(errs), 60, 20))

	return nil
}

func tuneWeights(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	axes := []optim.Axis{
		{Name: optim.QY, Values: qyValues},
		{Name: optim.QTheta, Values: qthValues},
		{Name: optim.ROmega, Values: romValues},
	}
	gs := optim.NewGridSearch(axes, workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %s over %d candidates (metric %s)...\n", name, len(gs.Combinations()), metricName)
	start := time.Now()

	best, all, err := gs.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		return experiment.Score(ctx, cfg, metricName, params)
	})
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tQ_Y\tQ_THETA\tR_OMEGA\tSCORE")
	for i, c := range all {
		if i >= topN {
			break
		}
		score := fmt.Sprintf("%.6f", c.Score)
		if c.Err != nil {
			score = "error: " + c.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%s\n", i+1, c.Params[optim.QY], c.Params[optim.QTheta], c.Params[optim.ROmega], score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	tuned, err := optim.ApplyWeights(cfg.Controller, best.Params)
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: q=%v r=%v score=%.6f\n", tuned.Q, tuned.R, best.Score)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario: %s (%d steps)\n", scenario.Name, len(scenario.Steps))
	results, runErr := automation.RunScenario(ctx, scenario)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN ID\tSTEPS\tGOAL\tCROSS_TRACK\tFALLBACKS")
	for _, r := range results {
		runID, err := st.Save(r.Experiment.Metadata(), r.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%.4f\t%d\n",
			r.Name, runID, r.Result.StepsTaken, r.Result.GoalReached,
			r.Result.Metrics["cross_track"], r.Result.Fallbacks)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("monte carlo: %s, %d trials (±%.2f m, ±%.2f rad)\n", name, trials, lateral, headingErr)
	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:      cfg,
		NumTrials: trials,
		Lateral:   lateral,
		Heading:   headingErr,
		Seed:      seed,
	})
	if err != nil && len(results) == 0 {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  trial %d from %s: %v\n", r.TrialID, r.Start, r.Err)
		} else if !r.GoalReached {
			fmt.Printf("  trial %d from %s: goal not reached\n", r.TrialID, r.Start)
		}
	}
	reached, missed, mean := automation.MonteCarloStats(results)
	fmt.Printf("\nreached: %d  missed: %d\n", reached, missed)
	if reached > 0 {
		fmt.Printf("mean cross-track (reached): %.4f m\n", mean)
	}
	return err
}
