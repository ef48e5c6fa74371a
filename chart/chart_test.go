package chart

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rainote2020/Linux-performance-test/parser"
	"github.com/rainote2020/Linux-performance-test/runner"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")

	results := []runner.Result{
		{
			Category: "cpu_single_thread",
			Status:   runner.StatusSuccess,
			Metrics: parser.Metrics{
				"events_per_second": 1234.56,
				"latency_avg_ms":    0.81,
			},
		},
		{
			Category: "memory",
			Status:   runner.StatusError,
			Error:    "sysbench not found",
		},
		{
			Category: "network",
			Status:   runner.StatusSuccess,
			Metrics:  parser.Metrics{},
		},
	}

	if err := Render(dir, results, discardLogger()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "cpu_single_thread.png")); err != nil {
		t.Errorf("expected chart for cpu_single_thread: %v", err)
	}

	// Failed and metric-less categories get no chart.
	for _, name := range []string{"memory.png", "network.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Errorf("unexpected chart %s", name)
		}
	}
}

func TestRenderUnwritableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	base := t.TempDir()
	if err := os.Chmod(base, 0o555); err != nil {
		t.Fatal(err)
	}

	err := Render(filepath.Join(base, "charts"), nil, discardLogger())
	if err == nil {
		t.Error("expected error for unwritable charts directory")
	}
}
