// Package experiment sweeps a benchmark over product sizes and worker
// counts and records speedup and efficiency for every run.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/weiihann/scalebench/harness"
	"github.com/weiihann/scalebench/results"
)

// DefaultInputPattern names the benchmark input for a product size.
const DefaultInputPattern = "input_%d.txt"

// Plan is one strategy's sweep.
type Plan struct {
	Strategy     harness.Strategy
	ProductSizes []int
	WorkerCounts []int
	InputDir     string
	InputPattern string
}

// InputPath returns the benchmark input file for a product size.
func (p Plan) InputPath(product int) string {
	pattern := p.InputPattern
	if pattern == "" {
		pattern = DefaultInputPattern
	}

	name := fmt.Sprintf(pattern, product)
	if p.InputDir == "" {
		return name
	}

	return filepath.Join(p.InputDir, name)
}

// Driver runs plans one process at a time.
type Driver struct {
	Timer  harness.Timer
	Logger *slog.Logger
}

// NewDriver creates a Driver timing runs with timer.
func NewDriver(timer harness.Timer, logger *slog.Logger) *Driver {
	return &Driver{Timer: timer, Logger: logger}
}

// Run executes the plan. For each product size a single-worker run is
// timed first to obtain T1, then every worker count is timed in order.
// Speedup is T1/Tp and efficiency is speedup divided by the worker count.
func (d *Driver) Run(ctx context.Context, plan Plan) ([]results.Record, error) {
	logger := d.Logger.With(slog.String("strategy", plan.Strategy.Name))

	logger.InfoContext(ctx, "starting sweep",
		slog.Any("product_sizes", plan.ProductSizes),
		slog.Any("worker_counts", plan.WorkerCounts),
	)

	records := make([]results.Record, 0,
		len(plan.ProductSizes)*len(plan.WorkerCounts))

	for _, product := range plan.ProductSizes {
		input := plan.InputPath(product)

		t1, err := d.time(ctx, plan.Strategy, 1, input)
		if err != nil {
			return records, fmt.Errorf("baseline for product %d: %w", product, err)
		}

		for _, workers := range plan.WorkerCounts {
			tp, err := d.time(ctx, plan.Strategy, workers, input)
			if err != nil {
				return records, fmt.Errorf(
					"product %d with %d workers: %w", product, workers, err,
				)
			}

			rec := Measure(product, workers, t1, tp)
			records = append(records, rec)

			logger.InfoContext(ctx, "run finished",
				slog.Int("product", product),
				slog.Int("workers", workers),
				slog.Float64("elapsed_s", rec.Elapsed),
				slog.Float64("speedup", rec.Speedup),
				slog.Float64("efficiency", rec.Efficiency),
			)
		}
	}

	return records, nil
}

// RunToFile runs the plan and writes the records to path. Records are
// written only when the whole sweep succeeds.
func (d *Driver) RunToFile(ctx context.Context, plan Plan, path string) ([]results.Record, error) {
	records, err := d.Run(ctx, plan)
	if err != nil {
		return nil, err
	}

	if err := results.WriteFile(path, records); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	d.Logger.InfoContext(ctx, "results written",
		slog.String("strategy", plan.Strategy.Name),
		slog.String("path", path),
		slog.Int("records", len(records)),
	)

	return records, nil
}

func (d *Driver) time(
	ctx context.Context,
	s harness.Strategy,
	workers int,
	input string,
) (float64, error) {
	elapsed, err := d.Timer.RunAndTime(ctx, harness.Expand(s, workers, input))
	if err != nil {
		return 0, err
	}

	return elapsed.Seconds(), nil
}

// Measure builds the record for one run from the baseline time t1 and the
// measured time tp, both in seconds.
func Measure(product, workers int, t1, tp float64) results.Record {
	var speedup, efficiency float64

	if tp > 0 {
		speedup = t1 / tp
	}

	if workers > 0 {
		efficiency = speedup / float64(workers)
	}

	return results.Record{
		Product:    product,
		Workers:    workers,
		Elapsed:    tp,
		Speedup:    speedup,
		Efficiency: efficiency,
	}
}

// LinearRange returns left, left+step, ... up to and including right, with
// step = (right-left)/divisions. It returns nil when the range is empty or
// divisions is not positive.
func LinearRange(left, right, divisions int) []int {
	if divisions <= 0 || right < left {
		return nil
	}

	step := (right - left) / divisions
	if step == 0 {
		return []int{left}
	}

	var out []int
	for v := left; v <= right; v += step {
		out = append(out, v)
	}

	return out
}
