// Package charts turns the two strategy tables into chart descriptions and
// hands them to a Renderer. It holds no drawing code of its own.
package charts

import (
	"fmt"

	"github.com/weiihann/scalebench/metrics"
	"github.com/weiihann/scalebench/results"
)

// Renderer produces an image artifact for each chart description.
type Renderer interface {
	Heatmaps(HeatmapPair) error
	Lines(LineChart) error
}

// Heatmap is one panel of a HeatmapPair.
type Heatmap struct {
	Title  string
	Matrix metrics.Matrix
}

// HeatmapPair is drawn as two heatmaps side by side in one image.
type HeatmapPair struct {
	File   string
	XLabel string
	YLabel string
	Left   Heatmap
	Right  Heatmap
}

// Series is one polyline of a LineChart. X and Y have equal length.
type Series struct {
	Label   string
	X       []float64
	Y       []float64
	Dashed  bool
	Markers bool
}

// LineChart overlays any number of series on shared axes.
type LineChart struct {
	File   string
	Title  string
	XLabel string
	YLabel string
	XTicks []int
	Series []Series
}

// Strategy labels used in legends and file names.
const (
	DistributedLabel = "OpenMPI"
	SharedLabel      = "OpenMPI + OpenMP"
)

// Input is the pair of tables every chart is drawn from.
type Input struct {
	Distributed []results.Record
	Shared      []results.Record
}

// All renders every chart in a fixed order and stops at the first error.
func All(r Renderer, in Input) error {
	steps := []struct {
		name string
		fn   func(Renderer, Input) error
	}{
		{"time by product", TimeByProduct},
		{"performance heatmaps", PerformanceHeatmaps},
		{"time all products", TimeAllProducts},
		{"trend lines", TrendLines},
		{"average times", AverageTimes},
	}

	for _, s := range steps {
		if err := s.fn(r, in); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	return nil
}

// PerformanceHeatmaps draws an efficiency/speedup pair per strategy. Both
// use the shared-memory single-worker time as the baseline.
func PerformanceHeatmaps(r Renderer, in Input) error {
	pairs := []struct {
		name     string
		file     string
		xLabel   string
		measured []results.Record
	}{
		{"OpenMPI", "performance_metrics_heatmap_OPENMPI.png",
			"Processes", in.Distributed},
		{"OpenMP", "performance_metrics_heatmap_OPENMP.png",
			"Threads", in.Shared},
	}

	for _, p := range pairs {
		efficiency, speedup := metrics.PerformanceMetrics(in.Shared, p.measured)
		if efficiency.Empty() {
			return fmt.Errorf("no %s records", p.name)
		}

		err := r.Heatmaps(HeatmapPair{
			File:   p.file,
			XLabel: p.xLabel,
			YLabel: "Product size",
			Left: Heatmap{
				Title:  "Efficiency (E) " + p.name,
				Matrix: efficiency,
			},
			Right: Heatmap{
				Title:  "Speedup (S) " + p.name,
				Matrix: speedup,
			},
		})
		if err != nil {
			return fmt.Errorf("render %s: %w", p.file, err)
		}
	}

	return nil
}

// TimeByProduct draws one chart per product size comparing elapsed time
// of both strategies. The grid comes from the distributed table.
func TimeByProduct(r Renderer, in Input) error {
	workers := metrics.Workers(in.Distributed)
	x := floats(workers)

	for _, p := range metrics.Products(in.Distributed) {
		chart := LineChart{
			File:   fmt.Sprintf("time_execution_product_%d.png", p),
			Title:  fmt.Sprintf("Execution time for product size %d", p),
			XLabel: "Processes",
			YLabel: "Execution time (s)",
			XTicks: workers,
			Series: []Series{
				{
					Label:   DistributedLabel,
					X:       x,
					Y:       metrics.TimeSeries(in.Distributed, p, workers),
					Markers: true,
				},
				{
					Label:   SharedLabel,
					X:       x,
					Y:       metrics.TimeSeries(in.Shared, p, workers),
					Markers: true,
				},
			},
		}

		if err := r.Lines(chart); err != nil {
			return fmt.Errorf("render %s: %w", chart.File, err)
		}
	}

	return nil
}

// TimeAllProducts overlays every product size of both strategies in one
// chart.
func TimeAllProducts(r Renderer, in Input) error {
	workers := metrics.Workers(in.Distributed)
	x := floats(workers)

	chart := LineChart{
		File:   "time_execution_all_products.png",
		Title:  "Execution time: OpenMPI vs OpenMP",
		XLabel: "Processes",
		YLabel: "Execution time (s)",
		XTicks: workers,
	}

	for _, p := range metrics.Products(in.Distributed) {
		chart.Series = append(chart.Series,
			Series{
				Label:   fmt.Sprintf("%s (product %d)", DistributedLabel, p),
				X:       x,
				Y:       metrics.TimeSeries(in.Distributed, p, workers),
				Markers: true,
			},
			Series{
				Label:   fmt.Sprintf("OpenMP (product %d)", p),
				X:       x,
				Y:       metrics.TimeSeries(in.Shared, p, workers),
				Markers: true,
			},
		)
	}

	return r.Lines(chart)
}

// TrendLines draws the least-squares fit of elapsed time against worker
// count for each product size, solid for the distributed strategy and
// dashed for the shared one.
func TrendLines(r Renderer, in Input) error {
	products := metrics.Products(in.Distributed)
	workers := metrics.Workers(in.Distributed)
	x := floats(workers)

	chart := LineChart{
		File:   "trend_lines.png",
		Title:  "Trend lines for OpenMPI and OpenMPI + OpenMP",
		XLabel: "Processes",
		YLabel: "Execution time (s)",
		XTicks: workers,
	}

	for _, t := range metrics.Trends(in.Distributed, products, workers) {
		chart.Series = append(chart.Series, Series{
			Label: fmt.Sprintf("%s %d", DistributedLabel, t.Product),
			X:     x,
			Y:     t.Predicted,
		})
	}

	for _, t := range metrics.Trends(in.Shared, products, workers) {
		chart.Series = append(chart.Series, Series{
			Label:  fmt.Sprintf("%s %d", SharedLabel, t.Product),
			X:      x,
			Y:      t.Predicted,
			Dashed: true,
		})
	}

	return r.Lines(chart)
}

// AverageTimes compares the biased average elapsed time per worker count
// of both strategies.
func AverageTimes(r Renderer, in Input) error {
	workers := metrics.Workers(in.Distributed)
	x := floats(workers)

	span := ""
	if products := metrics.Products(in.Distributed); len(products) > 0 {
		span = fmt.Sprintf(" (%d-%d)", products[0], products[len(products)-1])
	}

	return r.Lines(LineChart{
		File:   "average_time.png",
		Title:  "Average execution time: OpenMPI vs OpenMP",
		XLabel: "Processes",
		YLabel: "Average execution time (s)",
		XTicks: workers,
		Series: []Series{
			{
				Label:   "Average " + DistributedLabel + span,
				X:       x,
				Y:       metrics.BiasedAverage(in.Distributed, workers),
				Markers: true,
			},
			{
				Label:   "Average " + SharedLabel + span,
				X:       x,
				Y:       metrics.BiasedAverage(in.Shared, workers),
				Markers: true,
				Dashed:  true,
			},
		},
	})
}

func floats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}

	return out
}
