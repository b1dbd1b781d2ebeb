// Package main provides the CLI entry point for scalebench, a tool that
// times an MPI / MPI+OpenMP benchmark across problem sizes and worker
// counts and charts the resulting speedup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/scalebench/charts"
	"github.com/weiihann/scalebench/config"
	"github.com/weiihann/scalebench/experiment"
	"github.com/weiihann/scalebench/harness"
	"github.com/weiihann/scalebench/render"
	"github.com/weiihann/scalebench/report"
	"github.com/weiihann/scalebench/results"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("scalebench failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "scalebench",
		Short: "Parallel scaling benchmark driver",
		Long: `Scalebench runs an MPI (and MPI+OpenMP) benchmark executable over a
grid of product sizes and worker counts, records wall-clock timings, and
renders speedup/efficiency heatmaps, execution-time charts and trend lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(logger),
		newBuildCmd(logger),
		newPlotCmd(logger),
		newReportCmd(logger),
	)

	return root
}

type sweepFlags struct {
	configPath   string
	products     []int
	workers      []int
	strategies   []string
	inputDir     string
	inputPattern string
	outputDir    string
	srcDir       string
}

func (f *sweepFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "",
		"YAML experiment file (defaults apply to missing keys)")
	flags.IntSliceVar(&f.products, "products", nil,
		"Product sizes to sweep (default 200..20000 in 20 steps)")
	flags.IntSliceVar(&f.workers, "workers", nil,
		"Worker counts to sweep (default 1..8)")
	flags.StringSliceVar(&f.strategies, "strategies", nil,
		"Strategies to run (e.g. openmpi,openmp)")
	flags.StringVar(&f.inputDir, "input-dir", "",
		"Directory holding benchmark input files")
	flags.StringVar(&f.inputPattern, "input-pattern", "",
		"Input file name pattern, %d is the product size")
	flags.StringVar(&f.outputDir, "output-dir", "",
		"Directory for results files")
	flags.StringVar(&f.srcDir, "src-dir", "",
		"Directory holding the benchmark sources and executables")
}

// load builds the effective configuration: defaults, then the YAML file,
// then explicitly set flags.
func (f *sweepFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("products") {
		cfg.ProductSizes = f.products
	}
	if flags.Changed("workers") {
		cfg.WorkerCounts = f.workers
	}
	if flags.Changed("input-dir") {
		cfg.InputDir = f.inputDir
	}
	if flags.Changed("input-pattern") {
		cfg.InputPattern = f.inputPattern
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("src-dir") {
		cfg.SourceDir = f.srcDir
	}

	cfg, err := cfg.Select(f.strategies)
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		sweep     sweepFlags
		skipBuild bool
		timeout   time.Duration
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Time the benchmark across product sizes and worker counts",
		Long: `Run every configured strategy over the product-size and worker-count
grid, one process at a time, and write one results file per strategy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sweep.load(cmd)
			if err != nil {
				return err
			}

			return runSweep(cmd.Context(), logger, cfg, runOptions{
				skipBuild: skipBuild,
				timeout:   timeout,
				verbose:   verbose,
			})
		},
	}

	sweep.register(cmd)

	flags := cmd.Flags()
	flags.BoolVar(&skipBuild, "skip-build", false,
		"Skip compiling the benchmark executables")
	flags.DurationVar(&timeout, "timeout", 0,
		"Per-run timeout (0 = wait indefinitely)")
	flags.BoolVar(&verbose, "verbose", false,
		"Forward benchmark output to stderr")

	return cmd
}

type runOptions struct {
	skipBuild bool
	timeout   time.Duration
	verbose   bool
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	opts runOptions,
) error {
	logger.InfoContext(ctx, "starting experiment",
		slog.Int("product_sizes", len(cfg.ProductSizes)),
		slog.Any("worker_counts", cfg.WorkerCounts),
		slog.Int("strategies", len(cfg.Strategies)),
	)

	if !opts.skipBuild {
		if err := buildAll(ctx, logger, cfg); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	timer := harness.NewExecTimer(cfg.SourceDir, logger)
	timer.Timeout = opts.timeout
	if opts.verbose {
		timer.Output = os.Stderr
	}

	driver := experiment.NewDriver(timer, logger)

	// Input paths are resolved relative to the source dir the processes
	// run in, so make them absolute first.
	inputDir := cfg.InputDir
	if inputDir == "" {
		inputDir = "."
	}

	inputDir, err := filepath.Abs(inputDir)
	if err != nil {
		return fmt.Errorf("resolve input dir: %w", err)
	}

	for _, plan := range cfg.Plans() {
		plan.InputDir = inputDir
		path := filepath.Join(cfg.OutputDir, plan.Strategy.Results)

		if _, err := driver.RunToFile(ctx, plan, path); err != nil {
			return fmt.Errorf("run %s: %w", plan.Strategy.Name, err)
		}
	}

	logger.InfoContext(ctx, "experiment complete")

	return nil
}

func buildAll(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	for _, s := range cfg.Strategies {
		if s.Source == "" {
			logger.InfoContext(ctx, "nothing to build",
				slog.String("strategy", s.Name))

			continue
		}

		if _, err := harness.Build(ctx, logger, cfg.SourceDir, s); err != nil {
			return err
		}
	}

	return nil
}

func newBuildCmd(logger *slog.Logger) *cobra.Command {
	var sweep sweepFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the benchmark executables with mpicc",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sweep.load(cmd)
			if err != nil {
				return err
			}

			return buildAll(cmd.Context(), logger, cfg)
		},
	}

	sweep.register(cmd)

	return cmd
}

type tableFlags struct {
	distributed string
	shared      string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.distributed, "openmpi", "experiment_results_openmpi.txt",
		"Results of the distributed-process strategy")
	flags.StringVar(&f.shared, "openmp", "experiment_results_openmp.txt",
		"Results of the shared-memory strategy")
}

// read loads both tables. On a line count mismatch both counts and raw
// contents go to out before the error is returned.
func (f *tableFlags) read(out io.Writer) ([]results.Record, []results.Record, error) {
	distributed, shared, err := results.ReadPair(f.distributed, f.shared)
	if err != nil {
		var lerr *results.LineCountError
		if errors.As(err, &lerr) {
			fmt.Fprintln(out, "line count mismatch between result files")
			fmt.Fprintln(out, len(lerr.DistributedLines), len(lerr.SharedLines))
			fmt.Fprintf(out, "%q %q\n", lerr.DistributedLines, lerr.SharedLines)
		}

		return nil, nil, err
	}

	return distributed, shared, nil
}

func newPlotCmd(logger *slog.Logger) *cobra.Command {
	var (
		tables tableFlags
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render heatmaps, execution-time charts and trend lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			distributed, shared, err := tables.read(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "rendering charts",
				slog.Int("records", len(distributed)),
				slog.String("out_dir", outDir),
			)

			return charts.All(render.NewPNG(outDir, logger), charts.Input{
				Distributed: distributed,
				Shared:      shared,
			})
		},
	}

	tables.register(cmd)
	cmd.Flags().StringVar(&outDir, "out-dir", ".",
		"Directory for PNG charts")

	return cmd
}

func newReportCmd(logger *slog.Logger) *cobra.Command {
	var (
		tables     tableFlags
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a comparison of both result tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			distributed, shared, err := tables.read(out)
			if err != nil {
				return err
			}

			rows := []report.Table{
				{Strategy: strategyName(tables.distributed), Records: distributed},
				{Strategy: strategyName(tables.shared), Records: shared},
			}

			logger.DebugContext(cmd.Context(), "generating report",
				slog.Bool("json", outputJSON))

			if outputJSON {
				return report.GenerateJSON(out, rows)
			}

			return report.Generate(out, rows)
		},
	}

	tables.register(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of markdown")

	return cmd
}

// strategyName derives a display name from a results file name such as
// experiment_results_openmpi.txt.
func strategyName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return strings.TrimPrefix(name, "experiment_results_")
}
