// Package report writes the run artifact directory: structured raw
// results as JSON and a plain-text summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rainote2020/Linux-performance-test/runner"
	"github.com/rainote2020/Linux-performance-test/sysinfo"
)

// File names inside the run directory.
const (
	RawResultsFile = "raw_results.json"
	SummaryFile    = "report.txt"
	ChartsDir      = "charts"
)

// Run is one timestamped output directory. It is created once per
// invocation and never mutated after the run completes.
type Run struct {
	Dir       string
	Timestamp string
}

// NewRun creates the timestamped run directory under outputDir.
func NewRun(outputDir string, now time.Time) (*Run, error) {
	ts := now.Format("20060102_150405")
	dir := filepath.Join(outputDir, "results_"+ts)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %s: %w", dir, err)
	}

	return &Run{Dir: dir, Timestamp: ts}, nil
}

// rawResults is the serialized form of one run.
type rawResults struct {
	Timestamp string          `json:"timestamp"`
	System    sysinfo.Info    `json:"system"`
	Results   []runner.Result `json:"results"`
}

// WriteRaw writes the full structured result set to raw_results.json.
func (r *Run) WriteRaw(info sysinfo.Info, results []runner.Result) error {
	f, err := os.Create(filepath.Join(r.Dir, RawResultsFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", RawResultsFile, err)
	}
	defer f.Close()

	if err := GenerateJSON(f, r.Timestamp, info, results); err != nil {
		return fmt.Errorf("write %s: %w", RawResultsFile, err)
	}

	return f.Close()
}

// WriteSummary writes the human-readable report to report.txt.
func (r *Run) WriteSummary(info sysinfo.Info, results []runner.Result) error {
	f, err := os.Create(filepath.Join(r.Dir, SummaryFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", SummaryFile, err)
	}
	defer f.Close()

	if err := Generate(f, r.Timestamp, info, results); err != nil {
		return fmt.Errorf("write %s: %w", SummaryFile, err)
	}

	return f.Close()
}

// GenerateJSON writes the raw results as indented JSON to w.
func GenerateJSON(
	w io.Writer,
	timestamp string,
	info sysinfo.Info,
	results []runner.Result,
) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rawResults{
		Timestamp: timestamp,
		System:    info,
		Results:   results,
	})
}

// Generate writes the plain-text summary to w. Every result appears
// with either its metrics or a failure marker.
func Generate(
	w io.Writer,
	timestamp string,
	info sysinfo.Info,
	results []runner.Result,
) error {
	fmt.Fprintln(w, "Linux Performance Test Report")
	fmt.Fprintf(w, "Run: %s\n", timestamp)
	fmt.Fprintf(w, "Host: %s\n", info.Hostname)
	fmt.Fprintf(w, "OS: %s (kernel %s)\n", info.OS, info.Kernel)
	fmt.Fprintf(w, "CPU: %s (%d logical CPUs)\n", info.CPUModel, info.CPUCount)
	fmt.Fprintf(w, "Memory: %s\n", info.MemTotal)
	fmt.Fprintln(w, strings.Repeat("=", 50))

	for _, result := range results {
		fmt.Fprintln(w)

		if result.Failed() {
			fmt.Fprintf(w, "%s  FAILED\n", result.Category)
			fmt.Fprintln(w, strings.Repeat("-", 30))
			fmt.Fprintf(w, "  error: %s\n", result.Error)

			continue
		}

		fmt.Fprintln(w, result.Category)
		fmt.Fprintln(w, strings.Repeat("-", 30))

		if len(result.Metrics) == 0 {
			fmt.Fprintln(w, "  no metrics recognized in tool output")

			continue
		}

		for _, name := range sortedMetricNames(result.Metrics) {
			fmt.Fprintf(w, "  %s: %s\n",
				name, formatMetric(result.Metrics[name]),
			)
		}
	}

	return nil
}

func sortedMetricNames(metrics map[string]float64) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// formatMetric trims trailing zeros so integral values print without
// a fractional part.
func formatMetric(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")

	return s
}
