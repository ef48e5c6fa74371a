// Package chart renders one bar chart per benchmark category from
// the parsed numeric metrics. Charts are an optional artifact: any
// rendering failure is reported as a warning by the caller and never
// aborts the run.
package chart

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rainote2020/Linux-performance-test/runner"
)

var barColor = color.RGBA{R: 54, G: 162, B: 235, A: 255}

// Render writes <dir>/<category>.png for every successful result
// that carries numeric metrics. Per-chart failures are logged and
// skipped; the returned error covers only the chart directory itself.
func Render(dir string, results []runner.Result, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create charts directory %s: %w", dir, err)
	}

	for _, result := range results {
		if result.Failed() || len(result.Metrics) == 0 {
			continue
		}

		path := filepath.Join(dir, result.Category+".png")
		if err := renderOne(path, result); err != nil {
			logger.Warn("chart rendering failed",
				slog.String("category", result.Category),
				slog.String("error", err.Error()),
			)

			continue
		}

		logger.Debug("chart written", slog.String("path", path))
	}

	return nil
}

func renderOne(path string, result runner.Result) error {
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}

	sort.Strings(names)

	values := make(plotter.Values, len(names))
	ticks := make([]plot.Tick, len(names))

	for i, name := range names {
		values[i] = result.Metrics[name]
		ticks[i] = plot.Tick{Value: float64(i), Label: name}
	}

	p := plot.New()
	p.Title.Text = result.Category
	p.Y.Label.Text = "Value"

	bar, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}

	bar.Color = barColor
	p.Add(bar)

	// Pin the x-axis so single-bar charts are not stretched edge to
	// edge.
	p.X.Min = -0.5
	p.X.Max = float64(len(values)) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = 0.5
	p.X.Tick.Label.XAlign = -0.8

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}
