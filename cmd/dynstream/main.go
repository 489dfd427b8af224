package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/config"
	"github.com/san-kum/dynstream/internal/integrators"
	"github.com/san-kum/dynstream/internal/models"
	"github.com/san-kum/dynstream/internal/playback"
	"github.com/san-kum/dynstream/internal/session"
	"github.com/san-kum/dynstream/internal/store"
	"github.com/san-kum/dynstream/internal/viz"
)

var (
	dataDir     string
	configFile  string
	preset      string
	quality     float64
	bufferSize  int
	bufferLimit int
	duration    float64
	speed       float64
	fps         int
	integrator  string
	debug       bool
	exportPath  string
	plot        bool
	save        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dynstream",
		Short: "streamed physics demos over a flow-controlled double buffer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynstream", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "play a session headless and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSession,
	}
	addSessionFlags(runCmd)
	runCmd.Flags().StringVar(&exportPath, "export", "", "write the played trace (.json, .csv or .svg)")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the primary value")
	runCmd.Flags().BoolVar(&save, "save", false, "archive the run in the data directory")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "play a session in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSessionFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "stream every model concurrently and report transport counters",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	addSessionFlags(benchCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and their default parameters",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list archived runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, presetsCmd, modelsCmd, runsCmd, showCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func addSessionFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&quality, "quality", d.Quality, "simulated seconds per tick")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", d.BufferSize, "frames per buffer")
	cmd.Flags().IntVar(&bufferLimit, "buffer-limit", d.BufferLimit, "buffers held by the consumer")
	cmd.Flags().Float64Var(&duration, "duration", d.Duration, "simulated seconds before the producer stops (0 = no limit)")
	cmd.Flags().Float64Var(&speed, "speed", d.Speed, "playback speed")
	cmd.Flags().IntVar(&fps, "fps", d.FPS, "render ticks per second")
	cmd.Flags().StringVar(&integrator, "integrator", d.Integrator, fmt.Sprintf("producer integrator %v", integrators.Names()))
}

// resolveConfig layers defaults, config file, preset and explicit flags, in
// that order.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if model == "" {
		model = cfg.Model
	}

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}
	cfg.Model = model

	flags := cmd.Flags()
	if flags.Changed("quality") {
		cfg.Quality = quality
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if flags.Changed("buffer-limit") {
		cfg.BufferLimit = bufferLimit
	}
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("speed") {
		cfg.Speed = speed
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func modelArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newSession(reg *models.Registry, cfg *config.Config) (*session.Session, error) {
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	sess := session.New(reg, integ, slog.Default())
	sess.SetSpeed(cfg.Speed)
	return sess, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, modelArg(args))
	if err != nil {
		return err
	}
	reg := models.NewRegistry()
	sc, err := cfg.Session(reg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	sess, err := newSession(reg, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.Start(ctx, sc); err != nil {
		return err
	}

	trace := &store.Trace{
		Model:   cfg.Model,
		Session: sess.ID().String(),
		Quality: cfg.Quality,
		Speed:   cfg.Speed,
	}
	scene := viz.NewScene(sc)
	var primary []float64
	var label string

	fmt.Printf("streaming %s...\n", cfg.Model)
	start := time.Now()
	err = sess.Drive(ctx, 1/float64(cfg.FPS), func(s playback.Sample) error {
		trace.Add(s)
		var v float64
		label, v = scene.Primary(s.Values)
		primary = append(primary, v)
		return nil
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	res, _ := sess.Result()
	trace.Summary = res.Values
	trace.Stalls = sess.Player().Stalls()
	st := sess.Stats()

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("session: %s\n", sess.ID())
	fmt.Printf("ticks: %d (%.3fs simulated)\n", res.Ticks, res.Elapsed)
	fmt.Printf("samples: %d, stalls: %d\n", trace.Len(), trace.Stalls)
	fmt.Printf("buffers: received %d, evicted %d, granted %d, held %d/%d\n",
		st.Received, st.Evicted, st.Granted, st.Occupied, st.Limit)
	fmt.Println("\nresult:")
	for _, k := range sortedKeys(res.Values) {
		fmt.Printf("  %s: %.6f\n", k, res.Values[k])
	}

	if plot {
		fmt.Println()
		fmt.Println(viz.Plot(primary, label, 80, 10))
	}

	if exportPath != "" {
		if err := store.Export(exportPath, trace); err != nil {
			return err
		}
		fmt.Printf("\ntrace written to %s\n", exportPath)
	}

	if save {
		archive := store.New(dataDir)
		if err := archive.Init(); err != nil {
			return err
		}
		runID, err := archive.Save(trace)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, modelArg(args))
	if err != nil {
		return err
	}
	reg := models.NewRegistry()
	sc, err := cfg.Session(reg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	sess, err := newSession(reg, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.Start(ctx, sc); err != nil {
		return err
	}
	return viz.Run(ctx, sess, cfg.FPS)
}

type benchResult struct {
	model   string
	ticks   int
	samples int
	stats   buffer.Stats
	stalls  int
	wall    time.Duration
}

func runBench(cmd *cobra.Command, args []string) error {
	reg := models.NewRegistry()
	names, err := benchModels(reg.List(), preset)
	if err != nil {
		return err
	}
	results := make([]benchResult, len(names))

	ctx, stop := signalContext()
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	for i, name := range names {
		i, name := i, name
		cfg, err := resolveConfig(cmd, name)
		if err != nil {
			return err
		}
		sc, err := cfg.Session(reg)
		if err != nil {
			return err
		}

		g.Go(func() error {
			sess, err := newSession(reg, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			defer sess.Close()
			if err := sess.Start(ctx, sc); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			start := time.Now()
			samples := 0
			// one buffer of simulated time per render tick
			step := cfg.Quality * float64(cfg.BufferSize) / cfg.Speed
			err = sess.Drive(ctx, step, func(playback.Sample) error {
				samples++
				return nil
			})
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			res, _ := sess.Result()
			results[i] = benchResult{
				model:   name,
				ticks:   res.Ticks,
				samples: samples,
				stats:   sess.Stats(),
				stalls:  sess.Player().Stalls(),
				wall:    time.Since(start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tTICKS\tSAMPLES\tBUFFERS\tEVICTED\tGRANTED\tSTALLS\tWALL\tTICKS/SEC")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%v\t%.0f\n",
			r.model, r.ticks, r.samples, r.stats.Received, r.stats.Evicted, r.stats.Granted,
			r.stalls, r.wall.Round(time.Microsecond), float64(r.ticks)/r.wall.Seconds())
	}
	return w.Flush()
}

// benchModels keeps the models that have the named preset. An empty preset
// keeps every model.
func benchModels(names []string, preset string) ([]string, error) {
	if preset == "" {
		return names, nil
	}
	var out []string
	for _, name := range names {
		if config.GetPreset(name, preset) == nil {
			slog.Info("skipping model without preset", "model", name, "preset", preset)
			continue
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no model has preset: %s", preset)
	}
	return out, nil
}

func listModels(cmd *cobra.Command, args []string) error {
	reg := models.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESETS\tPARAMS")
	for _, name := range reg.List() {
		params, err := reg.Params(name)
		if err != nil {
			return err
		}
		var ps string
		for _, k := range sortedKeys(params) {
			ps += fmt.Sprintf("%s=%g ", k, params[k])
		}
		fmt.Fprintf(w, "%s\t%v\t%s\n", name, config.ListPresets(name), ps)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tQUALITY\tSPEED\tSAMPLES\tSTALLS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4fs\t%gx\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Quality,
			run.Speed,
			run.Samples,
			run.Stalls,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	trace, err := store.New(dataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}
	if trace.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("model: %s\n", trace.Model)
	fmt.Printf("samples: %d\n\n", trace.Len())

	for i := range trace.Values[0] {
		data := make([]float64, trace.Len())
		for j, row := range trace.Values {
			if i < len(row) {
				data[j] = row[i]
			}
		}
		fmt.Println(viz.Plot(data, fmt.Sprintf("v%d vs time", i), 80, 10))
		fmt.Println()
	}
	for _, k := range sortedKeys(trace.Summary) {
		fmt.Printf("  %s: %.6f\n", k, trace.Summary[k])
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
