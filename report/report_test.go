package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rainote2020/Linux-performance-test/parser"
	"github.com/rainote2020/Linux-performance-test/runner"
	"github.com/rainote2020/Linux-performance-test/sysinfo"
)

var testInfo = sysinfo.Info{
	Hostname: "bench-host",
	OS:       "Debian GNU/Linux 12 (bookworm)",
	Kernel:   "6.1.0-18-amd64",
	CPUModel: "AMD EPYC 7543",
	CPUCount: 8,
	MemTotal: "31.3 GiB",
}

func testResults() []runner.Result {
	return []runner.Result{
		{
			Category: "cpu_single_thread",
			Command:  "sysbench cpu --events=0 --time=30 --threads=1 run",
			Status:   runner.StatusSuccess,
			Metrics: parser.Metrics{
				"events_per_second": 1234.56,
				"latency_avg_ms":    0.81,
				"threads":           1,
			},
		},
		{
			Category: "memory",
			Command:  "sysbench memory run",
			Status:   runner.StatusError,
			Error:    "timed out after 1m30s",
		},
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, "20260825_120000", testInfo, testResults()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"Linux Performance Test Report",
		"Run: 20260825_120000",
		"bench-host",
		"cpu_single_thread",
		"events_per_second: 1234.56",
		"threads: 1",
		"memory  FAILED",
		"error: timed out after 1m30s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q:\n%s", want, output)
		}
	}
}

func TestGenerateEmptyMetrics(t *testing.T) {
	results := []runner.Result{{
		Category: "network",
		Status:   runner.StatusSuccess,
		Metrics:  parser.Metrics{},
	}}

	var buf bytes.Buffer
	if err := Generate(&buf, "ts", testInfo, results); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(buf.String(), "no metrics recognized") {
		t.Errorf("expected empty-metrics marker:\n%s", buf.String())
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateJSON(&buf, "20260825_120000", testInfo, testResults())
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	var parsed struct {
		Timestamp string          `json:"timestamp"`
		System    sysinfo.Info    `json:"system"`
		Results   []runner.Result `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if parsed.Timestamp != "20260825_120000" {
		t.Errorf("timestamp = %q", parsed.Timestamp)
	}

	if parsed.System.Hostname != "bench-host" {
		t.Errorf("hostname = %q", parsed.System.Hostname)
	}

	if len(parsed.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(parsed.Results))
	}

	if parsed.Results[1].Error != "timed out after 1m30s" {
		t.Errorf("error = %q", parsed.Results[1].Error)
	}
}

func TestGenerateJSONDeterministic(t *testing.T) {
	var first, second bytes.Buffer

	if err := GenerateJSON(&first, "ts", testInfo, testResults()); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	if err := GenerateJSON(&second, "ts", testInfo, testResults()); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical inputs produced different JSON")
	}
}

func TestNewRunWritesFiles(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	run, err := NewRun(base, now)
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}

	if run.Timestamp != "20260825_120000" {
		t.Errorf("timestamp = %q", run.Timestamp)
	}

	wantDir := filepath.Join(base, "results_20260825_120000")
	if run.Dir != wantDir {
		t.Errorf("dir = %q, want %q", run.Dir, wantDir)
	}

	if err := run.WriteRaw(testInfo, testResults()); err != nil {
		t.Fatalf("WriteRaw failed: %v", err)
	}

	if err := run.WriteSummary(testInfo, testResults()); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	for _, name := range []string{RawResultsFile, SummaryFile} {
		if _, err := os.Stat(filepath.Join(run.Dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}

func TestNewRunUnwritableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	base := t.TempDir()
	if err := os.Chmod(base, 0o555); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRun(base, time.Now()); err == nil {
		t.Error("expected error for unwritable output directory")
	}
}

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0"},
		{1, "1"},
		{1.5, "1.5"},
		{1234.56, "1234.56"},
		{0.80, "0.8"},
		{100.00, "100"},
	}

	for _, tt := range tests {
		if got := formatMetric(tt.input); got != tt.want {
			t.Errorf("formatMetric(%v) = %q, want %q",
				tt.input, got, tt.want)
		}
	}
}
