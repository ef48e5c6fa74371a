// Package main provides the CLI entry point for perftest, a
// configuration-driven Linux performance testing tool built on
// sysbench and iperf3.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rainote2020/Linux-performance-test/chart"
	"github.com/rainote2020/Linux-performance-test/config"
	"github.com/rainote2020/Linux-performance-test/report"
	"github.com/rainote2020/Linux-performance-test/runner"
	"github.com/rainote2020/Linux-performance-test/setup"
	"github.com/rainote2020/Linux-performance-test/sysinfo"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "perftest",
		Short: "Linux performance testing via sysbench and iperf3",
		Long: `Perftest benchmarks a Linux host by driving external tools
(sysbench for CPU, memory and file I/O; iperf3 for network) from a
single YAML configuration, then writes parsed metrics, a text report
and optional charts into a timestamped results directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, level))

	return root
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var (
		outputDir   string
		skipInstall bool
		charts      bool
		outputJSON  bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run [config]",
		Short: "Run the enabled benchmark categories",
		Long: `Load the configuration (an optional positional path, falling back
to config.yaml and then to built-in defaults), install missing
benchmark tools, and run each enabled category sequentially.

Per-category failures are recorded in the report and do not fail the
run; only setup errors (missing package manager, unreadable
configuration, unwritable output directory) exit non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				level.Set(slog.LevelDebug)
			}

			configPath := ""
			if len(args) == 1 {
				configPath = args[0]
			}

			return runTests(cmd.Context(), logger, runOptions{
				configPath:  configPath,
				outputDir:   outputDir,
				skipInstall: skipInstall,
				charts:      charts,
				outputJSON:  outputJSON,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outputDir, "output-dir", "",
		"Directory for the timestamped results directory (overrides config)")
	flags.BoolVar(&skipInstall, "skip-install", false,
		"Skip installing missing benchmark tools")
	flags.BoolVar(&charts, "charts", false,
		"Render bar charts into the results directory")
	flags.BoolVar(&outputJSON, "json", false,
		"Also print the raw results JSON to stdout")
	flags.BoolVar(&verbose, "verbose", false,
		"Enable debug logging")

	return cmd
}

type runOptions struct {
	configPath  string
	outputDir   string
	skipInstall bool
	charts      bool
	outputJSON  bool
}

func runTests(
	ctx context.Context,
	logger *slog.Logger,
	opts runOptions,
) error {
	// Step 1: Load configuration. An explicit path must exist; the
	// bundled default is optional.
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if opts.outputDir != "" {
		cfg.Global.OutputDir = opts.outputDir
	}

	if opts.charts {
		cfg.Global.Charts = true
	}

	if opts.skipInstall {
		cfg.Global.InstallDeps = false
	}

	logger.Info("starting performance test run",
		slog.Bool("cpu", cfg.CPU.Enabled),
		slog.Bool("memory", cfg.Memory.Enabled),
		slog.Bool("fileio", cfg.FileIO.Enabled),
		slog.Bool("network", cfg.Network.Enabled),
	)

	// Step 2: Install missing benchmark tools.
	if cfg.Global.InstallDeps {
		if err := setup.EnsureTools(ctx, logger); err != nil {
			return fmt.Errorf("install benchmark tools: %w", err)
		}
	}

	// Step 3: Collect host information for the report header.
	info := sysinfo.Collect(logger)

	// Step 4: Create the timestamped run directory.
	run, err := report.NewRun(cfg.Global.OutputDir, time.Now())
	if err != nil {
		return err
	}

	logger.Info("created run directory", slog.String("dir", run.Dir))

	// Step 5: Run each enabled category sequentially.
	fileioDir := filepath.Join(run.Dir, "fileio")
	results := runner.New(cfg, fileioDir, logger).RunAll(ctx)

	// Step 6: Write run artifacts.
	if err := run.WriteRaw(info, results); err != nil {
		return err
	}

	if err := run.WriteSummary(info, results); err != nil {
		return err
	}

	// Step 7: Optionally render charts. Failures here are warnings;
	// the report files above are already on disk.
	if cfg.Global.Charts {
		chartsDir := filepath.Join(run.Dir, report.ChartsDir)
		if err := chart.Render(chartsDir, results, logger); err != nil {
			logger.Warn("charts skipped",
				slog.String("error", err.Error()),
			)
		}
	}

	if opts.outputJSON {
		if err := report.GenerateJSON(
			os.Stdout, run.Timestamp, info, results,
		); err != nil {
			return fmt.Errorf("write JSON to stdout: %w", err)
		}
	}

	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}

	logger.Info("run complete",
		slog.String("dir", run.Dir),
		slog.Int("categories", len(results)),
		slog.Int("failed", failed),
	)

	return nil
}

// loadConfig resolves the configuration source: an explicit path must
// load cleanly, the bundled config.yaml is used when present, and
// built-in defaults apply otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.Load(config.DefaultPath)
	}

	return config.Default(), nil
}
