// Package metrics joins result tables by product size and worker count
// and derives ratios, averages and trend lines from them.
package metrics

import (
	"sort"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/weiihann/scalebench/results"
)

// Matrix holds one value per (product size, worker count) pair. Rows follow
// Products and columns follow Workers.
type Matrix struct {
	Products []int
	Workers  []int
	Values   *mat.Dense
}

// Empty reports whether the matrix has no cells.
func (m Matrix) Empty() bool {
	return m.Values == nil
}

// At returns the value for row i and column j.
func (m Matrix) At(i, j int) float64 {
	return m.Values.At(i, j)
}

// Row returns a copy of row i.
func (m Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Values)
}

// Bounds returns the smallest and largest value in the matrix.
func (m Matrix) Bounds() (lo, hi float64) {
	if m.Empty() {
		return 0, 0
	}

	r, c := m.Values.Dims()
	all := make([]float64, 0, r*c)

	for i := 0; i < r; i++ {
		all = append(all, m.Row(i)...)
	}

	return stats.Bounds(all)
}

// Products returns the sorted distinct product sizes in recs.
func Products(recs []results.Record) []int {
	return distinct(recs, func(r results.Record) int { return r.Product })
}

// Workers returns the sorted distinct worker counts in recs.
func Workers(recs []results.Record) []int {
	return distinct(recs, func(r results.Record) int { return r.Workers })
}

func distinct(recs []results.Record, key func(results.Record) int) []int {
	seen := make(map[int]struct{}, len(recs))
	out := make([]int, 0)

	for _, r := range recs {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	sort.Ints(out)

	return out
}

// Lookup returns the first record for product and workers.
func Lookup(recs []results.Record, product, workers int) (results.Record, bool) {
	for _, r := range recs {
		if r.Product == product && r.Workers == workers {
			return r, true
		}
	}

	return results.Record{}, false
}

// Ratio divides each product's single-worker time in baseline by the
// matching time in measured. The grid is taken from measured. A cell is 0
// when either lookup misses or either time is zero.
func Ratio(baseline, measured []results.Record) Matrix {
	products := Products(measured)
	workers := Workers(measured)

	m := Matrix{Products: products, Workers: workers}
	if len(products) == 0 || len(workers) == 0 {
		return m
	}

	m.Values = mat.NewDense(len(products), len(workers), nil)

	for i, p := range products {
		base, ok := Lookup(baseline, p, 1)
		if !ok || base.Elapsed == 0 {
			continue
		}

		for j, w := range workers {
			r, ok := Lookup(measured, p, w)
			if !ok || r.Elapsed == 0 {
				continue
			}

			m.Values.Set(i, j, base.Elapsed/r.Elapsed)
		}
	}

	return m
}

// PerformanceMetrics returns the efficiency and speedup matrices used for
// the heatmaps. Both are the plain baseline/measured ratio: efficiency is
// not divided by the worker count here, unlike the values the experiment
// driver writes to results files.
func PerformanceMetrics(baseline, measured []results.Record) (efficiency, speedup Matrix) {
	efficiency = Ratio(baseline, measured)
	speedup = Ratio(baseline, measured)

	return efficiency, speedup
}

// Smooth is one step of the biased average: the mean of the accumulator
// and the new value.
func Smooth(acc, v float64) float64 {
	return (acc + v) / 2
}

// BiasedAverage folds every record's elapsed time into an accumulator per
// worker count with Smooth, in table order, starting from zero. This is an
// exponential smoothing with factor 0.5, not an arithmetic mean: later
// records dominate. Results follow the order of workers; a worker count
// with no records stays 0.
func BiasedAverage(recs []results.Record, workers []int) []float64 {
	acc := make(map[int]float64, len(workers))

	for _, r := range recs {
		acc[r.Workers] = Smooth(acc[r.Workers], r.Elapsed)
	}

	out := make([]float64, len(workers))
	for i, w := range workers {
		out[i] = acc[w]
	}

	return out
}

// Mean returns the arithmetic mean elapsed time per worker count. A worker
// count with no records yields 0.
func Mean(recs []results.Record, workers []int) []float64 {
	byWorkers := make(map[int][]float64, len(workers))
	for _, r := range recs {
		byWorkers[r.Workers] = append(byWorkers[r.Workers], r.Elapsed)
	}

	out := make([]float64, len(workers))
	for i, w := range workers {
		if xs := byWorkers[w]; len(xs) > 0 {
			out[i] = stats.Mean(xs)
		}
	}

	return out
}

// TimeSeries returns the elapsed time of product at each worker count,
// with 0 where no record exists.
func TimeSeries(recs []results.Record, product int, workers []int) []float64 {
	out := make([]float64, len(workers))

	for i, w := range workers {
		if r, ok := Lookup(recs, product, w); ok {
			out[i] = r.Elapsed
		}
	}

	return out
}

// Trend is an ordinary least-squares fit of elapsed time against worker
// count for one product size.
type Trend struct {
	Product   int
	Intercept float64
	Slope     float64
	Predicted []float64
}

// Trends fits one line per product. The samples are that product's
// elapsed times in table order, paired with workers by position; products
// whose sample count differs from len(workers) are skipped.
func Trends(recs []results.Record, products, workers []int) []Trend {
	if len(workers) == 0 {
		return nil
	}

	xs := make([]float64, len(workers))
	for i, w := range workers {
		xs[i] = float64(w)
	}

	var out []Trend

	for _, p := range products {
		var ys []float64

		for _, r := range recs {
			if r.Product == p {
				ys = append(ys, r.Elapsed)
			}
		}

		if len(ys) != len(xs) {
			continue
		}

		t := fit(xs, ys)
		t.Product = p
		out = append(out, t)
	}

	return out
}

func fit(xs, ys []float64) Trend {
	var alpha, beta float64

	if len(xs) == 1 {
		// A single sample has no slope; the best fit is flat.
		alpha = ys[0]
	} else {
		alpha, beta = stat.LinearRegression(xs, ys, nil, false)
	}

	predicted := make([]float64, len(xs))
	for i, x := range xs {
		predicted[i] = alpha + beta*x
	}

	return Trend{Intercept: alpha, Slope: beta, Predicted: predicted}
}
