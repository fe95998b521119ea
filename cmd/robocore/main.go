package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/robocore/internal/analysis"
	"github.com/san-kum/robocore/internal/automation"
	"github.com/san-kum/robocore/internal/autonomous"
	"github.com/san-kum/robocore/internal/config"
	"github.com/san-kum/robocore/internal/export"
	"github.com/san-kum/robocore/internal/integrators"
	"github.com/san-kum/robocore/internal/logging"
	"github.com/san-kum/robocore/internal/metrics"
	"github.com/san-kum/robocore/internal/optim"
	"github.com/san-kum/robocore/internal/plant"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/robot"
	"github.com/san-kum/robocore/internal/storage"
	"github.com/san-kum/robocore/internal/tui"
)

var (
	configFile string
	dataDir    string
	logLevel   string

	preset        string
	position      int
	defense       int
	stealBall     bool
	propsFile     string
	autonomousDir string
	autoTime      time.Duration
	teleopTime    time.Duration
	realtime      bool
	integrator    string
	liveTuning    bool

	speed   int
	watch   bool
	batter  bool
	seconds float64
	columns []string
	column  string

	axes     []string
	metric   string
	maximize bool
	workers  int
	top      int

	trials  int
	perturb float64
	seed    int64

	svgWidth  int
	svgHeight int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "robocore",
		Short:         "robot control core with a simulated field",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "play a match against the simulated field and record it",
		RunE:  runMatch,
	}
	matchFlags(runCmd)
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "run on the wall clock instead of lockstep")

	dashCmd := &cobra.Command{
		Use:   "dash",
		Short: "play a match with the live driver-station view",
		RunE:  runDash,
	}
	matchFlags(dashCmd)
	dashCmd.Flags().IntVar(&speed, "speed", 3, "fast periods per frame")

	programCmd := &cobra.Command{
		Use:   "program [file]",
		Short: "show the state list an autonomous program file builds",
		Args:  cobra.ExactArgs(1),
		RunE:  showProgram,
	}
	programCmd.Flags().BoolVar(&watch, "watch", false, "rebuild whenever the file is saved")

	statesCmd := &cobra.Command{
		Use:   "states",
		Short: "list the states a program may name",
		RunE:  listStates,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "plot the flywheel step response under the auto-aim shooter controller",
		RunE:  tuneShooter,
	}
	tuneCmd.Flags().BoolVar(&batter, "batter", false, "hood in batter position")
	tuneCmd.Flags().Float64Var(&seconds, "time", 3, "duration in seconds")
	tuneCmd.Flags().StringVar(&propsFile, "properties", "", "robot property file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "columns", []string{"y", "heading", "rpm"}, "telemetry columns to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print run telemetry as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a telemetry column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "rpm", "telemetry column")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the path of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 400, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search robot properties against a match metric",
		RunE:  sweepProperties,
	}
	matchFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&axes, "param", nil, "property axis as name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metric, "metric", "final_y", "metric to optimize")
	sweepCmd.Flags().BoolVar(&maximize, "maximize", false, "maximize the metric instead of minimizing it")
	sweepCmd.Flags().IntVar(&workers, "workers", 4, "matches played at once")
	sweepCmd.Flags().IntVar(&top, "top", 10, "results to show")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "play and record every match in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	matchFlags(batchCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "play a match repeatedly from jittered starting headings",
		RunE:  runMonteCarlo,
	}
	matchFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 50, "number of matches")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 5, "heading jitter in degrees either side")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed, 0 for time based")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "play the same match under each plant integrator",
		RunE:  compareIntegrators,
	}
	matchFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list autonomous presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPOSITION\tDEFENSE\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", name, p.Mode.Position, p.Mode.Defense, p.Description)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, dashCmd, programCmd, statesCmd, tuneCmd, listCmd, plotCmd, exportCmd, exportCSVCmd,
		analyzeCmd, exportSVGCmd, sweepCmd, batchCmd, monteCarloCmd, compareCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func matchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "autonomous preset")
	f.IntVar(&position, "position", 0, "field position")
	f.IntVar(&defense, "defense", 0, "defense in front of the position")
	f.BoolVar(&stealBall, "steal-ball", false, "collect the ball at the center line first")
	f.StringVar(&propsFile, "properties", "", "robot property file")
	f.StringVar(&autonomousDir, "autonomous-dir", "", "directory of autonomous program files")
	f.DurationVar(&autoTime, "autonomous", config.DefaultAutonomous, "autonomous period")
	f.DurationVar(&teleopTime, "teleop", config.DefaultTeleop, "teleop period")
	f.StringVar(&integrator, "integrator", "rk4", "plant integrator")
	f.BoolVar(&liveTuning, "live-tuning", false, "read shooter gains from the dashboard")
}

// loadConfig reads the config file, if any, and applies the flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("properties") {
		cfg.Properties = propsFile
	}
	if flags.Lookup("preset") == nil {
		return cfg, nil
	}
	if flags.Changed("position") {
		cfg.Mode.Position = position
	}
	if flags.Changed("defense") {
		cfg.Mode.Defense = defense
	}
	if flags.Changed("steal-ball") {
		cfg.Mode.StealBall = stealBall
	}
	if flags.Changed("autonomous-dir") {
		cfg.AutonomousDir = autonomousDir
	}
	if flags.Changed("autonomous") || configFile == "" {
		cfg.Match.Autonomous = autoTime
	}
	if flags.Changed("teleop") || configFile == "" {
		cfg.Match.Teleop = teleopTime
	}
	if flags.Changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	if flags.Changed("live-tuning") {
		cfg.LiveTuning = liveTuning
	}
	if flags.Changed("realtime") {
		cfg.Match.Realtime = realtime
	}
	return cfg, cfg.Validate()
}

// session is one robot wired to one simulated field.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	plant  *plant.Robot
	robot  *robot.Robot
	props  *properties.Store
	clock  clock.Clock
	mock   *clock.Mock
	label  string
}

// newSession builds a robot for cfg. A named preset supplies the mode and
// program; overrides are applied to the properties last.
func newSession(cfg *config.Config, logger *zap.Logger, preset string, overrides map[string]string, mock bool) (*session, error) {
	p, err := plant.New(cfg.Plant, logger)
	if err != nil {
		return nil, err
	}

	props := properties.NewStore()
	if cfg.Properties != "" {
		if err := props.LoadFile(cfg.Properties); err != nil {
			logger.Warn("robot properties not loaded", zap.String("path", cfg.Properties), zap.Error(err))
		}
	}

	mode := autonomous.Mode{Position: cfg.Mode.Position, Defense: cfg.Mode.Defense, StealBall: cfg.Mode.StealBall}
	label := fmt.Sprintf("position-%d", mode.Position)
	dir := cfg.AutonomousDir
	if preset != "" {
		pr, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		mode = autonomous.Mode{Position: pr.Mode.Position, Defense: pr.Mode.Defense, StealBall: pr.Mode.StealBall}
		props.ReplacePrefix(properties.AutonomousPrefix, pr.Program)
		label, dir = preset, ""
	}
	props.Merge(overrides)

	s := &session{cfg: cfg, logger: logger, plant: p, props: props, label: label}
	if mock {
		s.mock = clock.NewMock()
		s.clock = s.mock
	} else {
		s.clock = clock.New()
	}

	left, right := p.Encoders()
	s.robot = robot.New(robot.Deps{
		Hardware: robot.Hardware{
			Drive:        p.DrivePorts(),
			Shooter:      p.ShooterPorts(),
			Intake:       p.IntakePorts(),
			Hanger:       p.HangerPorts(),
			Gyro:         p.Gyro(),
			LeftEncoder:  left,
			RightEncoder: right,
			Vision:       p,
		},
		Properties:    props,
		Clock:         s.clock,
		Logger:        logger,
		FastPeriod:    cfg.Loop.FastPeriod,
		StatePeriod:   cfg.Loop.StatePeriod,
		LiveTuning:    cfg.LiveTuning,
		Mode:          mode,
		AutonomousDir: dir,
	})
	return s, nil
}

func (s *session) match(observe func()) robot.Match {
	return robot.Match{
		Autonomous: s.cfg.Match.Autonomous,
		Teleop:     s.cfg.Match.Teleop,
		Plant:      s.plant,
		Observe:    observe,
	}
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, _, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// play runs the match on the session clock and summarizes it.
func (s *session) play(ctx context.Context) (storage.RunMetadata, []plant.Sample, error) {
	var samples []plant.Sample
	m := s.match(func() { samples = append(samples, s.plant.Sample()) })

	var err error
	if s.mock == nil {
		err = s.robot.Run(ctx, m)
	} else {
		err = s.robot.Simulate(ctx, s.mock, m)
	}
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}

	program := s.robot.Program()
	meta := storage.RunMetadata{
		Program:    s.label,
		Position:   s.cfg.Mode.Position,
		Dt:         s.cfg.Loop.FastPeriod.Seconds(),
		Duration:   m.Autonomous.Seconds() + m.Teleop.Seconds(),
		Integrator: s.cfg.Plant.Integrator,
		States:     program.Names(),
		Completed:  s.robot.Status().Done,
		Metrics:    metrics.Evaluate(metrics.Default(), samples),
	}
	for _, e := range multierr.Errors(program.Err) {
		meta.Warnings = append(meta.Warnings, e.Error())
	}
	return meta, samples, nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := newSession(cfg, logger, preset, nil, !cfg.Match.Realtime)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("playing %s (%v autonomous, %v teleop)...\n", s.label, cfg.Match.Autonomous, cfg.Match.Teleop)
	start := time.Now()
	meta, samples, err := s.play(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, samples)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("program: %s\n", strings.Join(meta.States, " -> "))
	fmt.Printf("program finished: %v\n", meta.Completed)
	for _, w := range meta.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Println("\nmetrics:")
	printMetrics(os.Stdout, meta.Metrics)
	return nil
}

func printMetrics(out io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %.3f\n", name, m[name])
	}
}

func runDash(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	// The view owns the terminal, so the session logs nowhere.
	s, err := newSession(cfg, zap.NewNop(), preset, nil, true)
	if err != nil {
		return err
	}
	sim := s.robot.NewSimulation(s.mock, s.match(nil))
	return tui.Run(tui.NewModel(sim, s.robot, s.plant, cfg.Plant, speed))
}

func showProgram(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := newSession(cfg, logger, preset, nil, true)
	if err != nil {
		return err
	}
	path := args[0]
	build := func(path string) error {
		if err := s.props.LoadAutonomousFile(path); err != nil {
			return err
		}
		printProgram(os.Stdout, s.robot.Loader().Build(s.props))
		return nil
	}
	if err := build(path); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	w, err := properties.NewWatcher(path, build, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	fmt.Printf("watching %s, ctrl+c to stop\n", path)
	<-ctx.Done()
	return nil
}

func printProgram(out io.Writer, p autonomous.Program) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATE")
	for i, name := range p.Names() {
		fmt.Fprintf(w, "%d\t%s\n", i+1, name)
	}
	w.Flush()
	for _, e := range multierr.Errors(p.Err) {
		fmt.Fprintf(out, "warning: %v\n", e)
	}
}

func listStates(cmd *cobra.Command, args []string) error {
	reg := autonomous.DefaultRegistry()
	for _, name := range reg.Names() {
		e, _ := reg.Lookup(name)
		fmt.Println(e.Signature())
	}
	return nil
}

func tuneShooter(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := newSession(cfg, logger, preset, nil, true)
	if err != nil {
		return err
	}
	r := s.robot
	r.Init()
	if batter {
		r.Shooter.SetBatterPosition()
	} else {
		r.Shooter.SetOuterworksPosition()
	}
	r.AutoAimShooter.SetGoal()
	r.Shooter.SetCurrentController(r.AutoAimShooter)

	fast := cfg.Loop.FastPeriod
	steps := int(seconds / fast.Seconds())
	rpm := make([]float64, 0, steps)
	settled := -1
	for i := 0; i < steps; i++ {
		s.mock.Add(fast)
		if err := s.plant.Step(fast.Seconds()); err != nil {
			return err
		}
		r.Loop().Tick()
		rpm = append(rpm, r.Shooter.RPM())
		if settled < 0 && r.AutoAimShooter.OnTarget() {
			settled = i
		}
	}
	r.Shooter.SetOpenLoop()

	goal := r.ShooterSpeed.Goal()
	fmt.Println(asciigraph.Plot(rpm,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("filtered rpm, goal %.0f", goal)),
	))
	fmt.Println()
	g := r.ShooterSpeed.Gains()
	fmt.Printf("gains: kp=%g ki=%g kd=%g (bang-bang drives the wheel)\n", g.P, g.I, g.D)
	if settled < 0 {
		fmt.Println("never reached goal")
		return nil
	}
	fmt.Printf("on target after %v\n", time.Duration(settled+1)*fast)
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
	fmt.Fprintln(w, "ID\tPROGRAM\tTIME\tDURATION\tDONE\tSHOTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%v\t%.0f\n",
			run.ID,
			run.Program,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Completed,
			run.Metrics["shots"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tel, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}
	if len(tel.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("program: %s\n", meta.Program)
	fmt.Printf("samples: %d\n\n", len(tel.Rows))

	var errs error
	for _, name := range columns {
		data := tel.Column(name)
		if data == nil {
			errs = multierr.Append(errs, fmt.Errorf("unknown column %q (have %v)", name, tel.Columns))
			continue
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		))
		fmt.Println()
	}
	return errs
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) (err error) {
	st := storage.New(dataDir)
	if _, err := st.Load(args[0]); err != nil {
		return err
	}
	f, err := os.Open(st.TelemetryPath(args[0]))
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	_, err = io.Copy(os.Stdout, f)
	return err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tel, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}
	data := tel.Column(column)
	if data == nil {
		return fmt.Errorf("unknown column %q (have %v)", column, tel.Columns)
	}

	spec, err := analysis.Analyze(data, meta.Dt)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("program: %s\n\n", meta.Program)

	plotData := spec.Power[:len(spec.Power)/4]
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", column)),
	))
	fmt.Println()

	o := spec.Dominant(len(data))
	fmt.Printf("dominant frequency: %.3f hz\n", o.Hz)
	if o.Hz > 0 {
		fmt.Printf("period: %.3f s\n", o.Period)
		fmt.Printf("amplitude: %.3f\n", o.Amplitude)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	tel, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}
	xs, ys := tel.Column("x"), tel.Column("y")
	points := make([]export.Point, len(xs))
	for i := range xs {
		points[i] = export.Point{X: xs[i], Y: ys[i]}
	}
	svg := export.PathSVG(points, cfg.Plant, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s has too few samples to draw", args[0])
	}
	fmt.Println(svg)
	return nil
}

// baseSpec describes the match the flags select.
func baseSpec(cfg *config.Config) automation.MatchSpec {
	name := preset
	if name == "" {
		name = fmt.Sprintf("position-%d", cfg.Mode.Position)
	}
	return automation.MatchSpec{
		Name:         name,
		Preset:       preset,
		Position:     cfg.Mode.Position,
		Defense:      cfg.Mode.Defense,
		StealBall:    cfg.Mode.StealBall,
		Autonomous:   cfg.Match.Autonomous,
		Teleop:       cfg.Match.Teleop,
		Integrator:   cfg.Plant.Integrator,
		StartHeading: cfg.Plant.StartHeading,
	}
}

// playSpec plays one lockstep match described by spec on top of base.
func playSpec(ctx context.Context, base *config.Config, spec automation.MatchSpec, logger *zap.Logger) (storage.RunMetadata, []plant.Sample, error) {
	cfg := *base
	if spec.Preset == "" {
		cfg.Mode = config.ModeConfig{Position: spec.Position, Defense: spec.Defense, StealBall: spec.StealBall}
	}
	if spec.Autonomous > 0 {
		cfg.Match.Autonomous = spec.Autonomous
	}
	if spec.Teleop > 0 {
		cfg.Match.Teleop = spec.Teleop
	}
	if spec.Integrator != "" {
		cfg.Plant.Integrator = spec.Integrator
	}
	cfg.Plant.StartHeading = spec.StartHeading
	if err := cfg.Validate(); err != nil {
		return storage.RunMetadata{}, nil, err
	}

	s, err := newSession(&cfg, logger, spec.Preset, spec.Properties, true)
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	if spec.Name != "" {
		s.label = spec.Name
	}
	return s.play(ctx)
}

// recorder plays specs and saves each one as a run.
func recorder(base *config.Config, st *storage.Store, logger *zap.Logger) automation.Runner {
	return func(ctx context.Context, spec automation.MatchSpec) (automation.Outcome, error) {
		meta, samples, err := playSpec(ctx, base, spec, logger)
		if err != nil {
			return automation.Outcome{}, err
		}
		id, err := st.Save(meta, samples)
		if err != nil {
			return automation.Outcome{}, err
		}
		return automation.Outcome{RunID: id, Completed: meta.Completed, Metrics: meta.Metrics}, nil
	}
}

func sweepProperties(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if len(axes) == 0 {
		return fmt.Errorf("at least one --param axis is required")
	}

	names := make([]string, 0, len(axes))
	ranges := make([][]float64, 0, len(axes))
	for _, a := range axes {
		name, values, err := optim.ParseAxis(a)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs := optim.NewGridSearch(names, ranges, workers)
	base := baseSpec(cfg)

	objective := func(ctx context.Context, params map[string]float64) (float64, error) {
		spec := base
		spec.Properties = make(map[string]string, len(params))
		for k, v := range params {
			spec.Properties[k] = cast.ToString(v)
		}
		meta, _, err := playSpec(ctx, cfg, spec, zap.NewNop())
		if err != nil {
			return 0, err
		}
		score, ok := meta.Metrics[metric]
		if !ok {
			return 0, fmt.Errorf("unknown metric %q", metric)
		}
		if maximize {
			score = -score
		}
		return score, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %d combinations of %s for %s...\n", len(gs.Combinations()), strings.Join(names, ", "), metric)
	start := time.Now()
	results, err := gs.Search(ctx, objective)
	if err != nil {
		return err
	}
	logger.Info("sweep complete", zap.Int("trials", len(results)), zap.Duration("elapsed", time.Since(start)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metric))
	for i, r := range results {
		if i == top {
			break
		}
		score := r.Score
		if maximize {
			score = -score
		}
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = cast.ToString(r.Params[n])
		}
		fmt.Fprintf(w, "%d\t%s\t%.3f\n", i+1, strings.Join(row, "\t"), score)
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d matches\n", scenario.Name, len(scenario.Matches))
	results, err := automation.RunScenario(ctx, scenario, recorder(cfg, st, zap.NewNop()), logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tRUN\tDONE\tSHOTS\tFINAL_Y")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%v\t%.0f\t%.1f\n",
			scenario.Matches[i].Name, r.RunID, r.Completed, r.Metrics["shots"], r.Metrics["final_y"])
	}
	return multierr.Append(err, w.Flush())
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mc := &automation.MonteCarloConfig{
		Base:         baseSpec(cfg),
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
	}
	run := func(ctx context.Context, spec automation.MatchSpec) (automation.Outcome, error) {
		meta, _, err := playSpec(ctx, cfg, spec, zap.NewNop())
		if err != nil {
			return automation.Outcome{}, err
		}
		return automation.Outcome{Completed: meta.Completed, Metrics: meta.Metrics}, nil
	}

	results, err := automation.RunMonteCarlo(ctx, mc, run, logger)
	if err != nil {
		return err
	}
	completed, incomplete := automation.MonteCarloStats(results)

	finalY := make([]float64, len(results))
	for i, r := range results {
		finalY[i] = r.Outcome.Metrics["final_y"]
	}
	fmt.Printf("%s: %d trials, +/-%.1f deg\n", mc.Base.Name, len(results), perturb)
	fmt.Printf("program finished: %d, unfinished: %d\n", completed, incomplete)
	if len(finalY) > 1 {
		fmt.Println(asciigraph.Plot(finalY,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("final y by trial"),
		))
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}
	base := baseSpec(cfg)

	fmt.Printf("comparing integrators for %s\n\n", base.Name)
	fmt.Printf("%-12s  %-12s  %-12s  %-12s\n", "integrator", "final_y", "distance", "time_ms")
	fmt.Println(strings.Repeat("-", 52))

	for _, name := range names {
		spec := base
		spec.Integrator = name

		start := time.Now()
		meta, _, err := playSpec(context.Background(), cfg, spec, zap.NewNop())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}
		fmt.Printf("%-12s  %12.3f  %12.3f  %12.2f\n", name,
			meta.Metrics["final_y"], meta.Metrics["distance"], float64(elapsed.Microseconds())/1000)
	}
	return nil
}
