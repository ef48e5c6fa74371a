// Package runner builds command lines for the external benchmark
// tools and executes them as subprocesses. Categories run strictly
// sequentially: concurrent benchmarking would contend for the CPU,
// disk and network being measured.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rainote2020/Linux-performance-test/config"
	"github.com/rainote2020/Linux-performance-test/parser"
)

const (
	sysbenchBin = "sysbench"
	iperfBin    = "iperf3"

	// timeoutMargin is added to the configured test duration to bound
	// each subprocess. Prepare and cleanup steps, which have no
	// configured duration, get the margin alone.
	timeoutMargin = 60 * time.Second
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one benchmark category invocation.
type Result struct {
	Category  string         `json:"category"`
	Command   string         `json:"command"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Output    string         `json:"output"`
	Metrics   parser.Metrics `json:"metrics,omitempty"`
}

// Failed reports whether the category did not complete.
func (r Result) Failed() bool {
	return r.Status != StatusSuccess
}

// Runner executes the enabled benchmark categories.
type Runner struct {
	cfg     *config.Config
	workDir string
	logger  *slog.Logger
}

// New creates a Runner. workDir is a scratch directory for the fileio
// category's test files; it is created on demand and removed after
// the fileio category finishes.
func New(cfg *config.Config, workDir string, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		workDir: workDir,
		logger:  logger,
	}
}

// invocation describes one subprocess run within a category.
type invocation struct {
	category string
	args     []string
	timeout  time.Duration
	dir      string
	parse    func(string) parser.Metrics
}

// RunAll runs every enabled category in order and returns one Result
// per invocation. A failed category is recorded and does not abort
// the remaining categories.
func (r *Runner) RunAll(ctx context.Context) []Result {
	var results []Result

	if r.cfg.CPU.Enabled {
		results = append(results,
			r.run(ctx, cpuInvocation(
				"cpu_single_thread", r.cfg.CPU.SingleThread,
			)),
			r.run(ctx, cpuInvocation(
				"cpu_multi_thread", r.cfg.CPU.MultiThread,
			)),
		)
	}

	if r.cfg.Memory.Enabled {
		results = append(results, r.run(ctx, memoryInvocation(r.cfg.Memory)))
	}

	if r.cfg.FileIO.Enabled {
		results = append(results, r.runFileIO(ctx)...)
	}

	if r.cfg.Network.Enabled {
		results = append(results, r.run(ctx, networkInvocation(r.cfg.Network)))
	}

	return results
}

// run executes a single invocation with a bounded timeout and
// captures combined output.
func (r *Runner) run(ctx context.Context, inv invocation) Result {
	result := Result{
		Category:  inv.category,
		Command:   strings.Join(inv.args, " "),
		StartedAt: time.Now(),
	}

	r.logger.Info("running benchmark",
		slog.String("category", inv.category),
		slog.String("command", result.Command),
	)

	runCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.args[0], inv.args[1:]...)
	cmd.Dir = inv.dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	result.ElapsedMs = time.Since(start).Milliseconds()
	result.Output = output.String()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = StatusError
		result.Error = fmt.Sprintf(
			"timed out after %s", inv.timeout,
		)

	case err != nil:
		result.Status = StatusError
		result.Error = err.Error()

		var execErr *exec.Error
		if errors.As(err, &execErr) {
			result.Error = fmt.Sprintf(
				"%s not found: %v", inv.args[0], execErr.Err,
			)
		}

	default:
		result.Status = StatusSuccess
		if inv.parse != nil {
			result.Metrics = inv.parse(result.Output)
		}
	}

	if result.Failed() {
		r.logger.Warn("benchmark failed",
			slog.String("category", inv.category),
			slog.String("error", result.Error),
		)
	} else {
		r.logger.Info("benchmark finished",
			slog.String("category", inv.category),
			slog.Int64("elapsed_ms", result.ElapsedMs),
		)
	}

	return result
}

// runFileIO wraps the per-mode timed runs with the shared prepare and
// cleanup steps. A prepare failure marks every mode failed; cleanup
// is always attempted once prepare has run.
func (r *Runner) runFileIO(ctx context.Context) []Result {
	cfg := r.cfg.FileIO

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return fileIOAborted(cfg, fmt.Sprintf(
			"create fileio work dir: %v", err,
		))
	}
	defer os.RemoveAll(r.workDir)

	prepare := r.run(ctx, fileIOStepInvocation(cfg, r.workDir, "prepare"))
	if prepare.Failed() {
		return fileIOAborted(cfg, fmt.Sprintf(
			"fileio prepare failed: %s", prepare.Error,
		))
	}

	results := make([]Result, 0, len(cfg.Modes))
	for _, mode := range cfg.Modes {
		results = append(results,
			r.run(ctx, fileIORunInvocation(cfg, r.workDir, mode)),
		)
	}

	cleanup := r.run(ctx, fileIOStepInvocation(cfg, r.workDir, "cleanup"))
	if cleanup.Failed() {
		r.logger.Warn("fileio cleanup failed",
			slog.String("error", cleanup.Error),
		)
	}

	return results
}

func fileIOAborted(cfg config.FileIOConfig, reason string) []Result {
	results := make([]Result, 0, len(cfg.Modes))
	for _, mode := range cfg.Modes {
		results = append(results, Result{
			Category:  "fileio_" + mode,
			Status:    StatusError,
			Error:     reason,
			StartedAt: time.Now(),
		})
	}

	return results
}

func cpuInvocation(category string, cfg config.CPUThreadConfig) invocation {
	duration := time.Duration(cfg.DurationSeconds) * time.Second

	return invocation{
		category: category,
		args: []string{
			sysbenchBin, "cpu",
			"--events=0",
			fmt.Sprintf("--time=%d", cfg.DurationSeconds),
			fmt.Sprintf("--threads=%d", cfg.Threads.Resolve()),
			fmt.Sprintf("--cpu-max-prime=%d", cfg.MaxPrime),
			"run",
		},
		timeout: duration + timeoutMargin,
		parse:   parser.ParseCPU,
	}
}

func memoryInvocation(cfg config.MemoryConfig) invocation {
	duration := time.Duration(cfg.DurationSeconds) * time.Second

	return invocation{
		category: "memory",
		args: []string{
			sysbenchBin, "memory",
			fmt.Sprintf("--threads=%d", cfg.Threads.Resolve()),
			fmt.Sprintf("--time=%d", cfg.DurationSeconds),
			fmt.Sprintf("--memory-block-size=%s", cfg.BlockSize),
			fmt.Sprintf("--memory-total-size=%s", cfg.TotalSize),
			fmt.Sprintf("--memory-oper=%s", cfg.Operation),
			"run",
		},
		timeout: duration + timeoutMargin,
		parse:   parser.ParseMemory,
	}
}

func fileIOStepInvocation(
	cfg config.FileIOConfig, dir, step string,
) invocation {
	return invocation{
		category: "fileio_" + step,
		args: []string{
			sysbenchBin, "fileio",
			fmt.Sprintf("--file-total-size=%s", cfg.TotalSize),
			fmt.Sprintf("--file-num=%d", cfg.NumFiles),
			step,
		},
		timeout: timeoutMargin,
		dir:     dir,
	}
}

func fileIORunInvocation(
	cfg config.FileIOConfig, dir, mode string,
) invocation {
	duration := time.Duration(cfg.DurationSeconds) * time.Second

	return invocation{
		category: "fileio_" + mode,
		args: []string{
			sysbenchBin, "fileio",
			fmt.Sprintf("--file-total-size=%s", cfg.TotalSize),
			fmt.Sprintf("--file-num=%d", cfg.NumFiles),
			fmt.Sprintf("--threads=%d", cfg.Threads.Resolve()),
			fmt.Sprintf("--time=%d", cfg.DurationSeconds),
			fmt.Sprintf("--file-test-mode=%s", mode),
			"run",
		},
		timeout: duration + timeoutMargin,
		dir:     dir,
		parse:   parser.ParseFileIO,
	}
}

func networkInvocation(cfg config.NetworkConfig) invocation {
	duration := time.Duration(cfg.DurationSeconds) * time.Second

	args := []string{
		iperfBin,
		"-c", cfg.ServerHost,
		"-p", fmt.Sprintf("%d", cfg.ServerPort),
		"-t", fmt.Sprintf("%d", cfg.DurationSeconds),
		"-P", fmt.Sprintf("%d", cfg.Parallel),
		"-f", "m",
	}
	if cfg.Reverse {
		args = append(args, "-R")
	}

	return invocation{
		category: "network",
		args:     args,
		timeout:  duration + timeoutMargin,
		parse:    parser.ParseNetwork,
	}
}
