// Package report formats benchmark result tables into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/weiihann/scalebench/metrics"
	"github.com/weiihann/scalebench/results"
)

// Table is one strategy's results.
type Table struct {
	Strategy string           `json:"strategy"`
	Records  []results.Record `json:"records"`
}

// Summary is the per-worker-count comparison across all product sizes.
type Summary struct {
	Workers []int                `json:"workers"`
	Mean    map[string][]float64 `json:"mean_elapsed_s"`
	Biased  map[string][]float64 `json:"biased_average_elapsed_s"`
}

// Summarize computes mean and biased-average elapsed time per worker count
// for every table. The worker grid is taken from the first table.
func Summarize(tables []Table) Summary {
	s := Summary{
		Mean:   make(map[string][]float64, len(tables)),
		Biased: make(map[string][]float64, len(tables)),
	}

	if len(tables) == 0 {
		return s
	}

	s.Workers = metrics.Workers(tables[0].Records)

	for _, t := range tables {
		s.Mean[t.Strategy] = metrics.Mean(t.Records, s.Workers)
		s.Biased[t.Strategy] = metrics.BiasedAverage(t.Records, s.Workers)
	}

	return s
}

// Generate writes a markdown report for the given tables.
func Generate(w io.Writer, tables []Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")

	for _, t := range tables {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", t.Strategy)
		fmt.Fprintln(w)

		if len(t.Records) == 0 {
			fmt.Fprintln(w, "No runs recorded.")

			continue
		}

		fmt.Fprintln(w, "| Product | Workers | Elapsed | Speedup | Efficiency |")
		fmt.Fprintln(w, "|---------|---------|---------|---------|------------|")

		for _, r := range t.Records {
			fmt.Fprintf(w, "| %d | %d | %s | %.2fx | %s |\n",
				r.Product,
				r.Workers,
				formatSeconds(r.Elapsed),
				r.Speedup,
				formatPercent(r.Efficiency),
			)
		}
	}

	summary := Summarize(tables)
	if len(summary.Workers) == 0 {
		return nil
	}

	// Averages across product sizes.
	fmt.Fprintln(w)
	fmt.Fprintln(w, "### Average elapsed time per worker count")
	fmt.Fprintln(w)

	header := []string{"Workers"}
	for _, t := range tables {
		header = append(header, t.Strategy+" mean", t.Strategy+" biased")
	}

	fmt.Fprintln(w, "| "+strings.Join(header, " | ")+" |")

	sep := make([]string, len(header))
	for i, h := range header {
		sep[i] = strings.Repeat("-", len(h))
	}

	fmt.Fprintln(w, "|-"+strings.Join(sep, "-|-")+"-|")

	for i, workers := range summary.Workers {
		row := []string{fmt.Sprintf("%d", workers)}

		for _, t := range tables {
			row = append(row,
				formatSeconds(summary.Mean[t.Strategy][i]),
				formatSeconds(summary.Biased[t.Strategy][i]),
			)
		}

		fmt.Fprintln(w, "| "+strings.Join(row, " | ")+" |")
	}

	return nil
}

// GenerateJSON writes tables and their summary as JSON to w.
func GenerateJSON(w io.Writer, tables []Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(struct {
		Tables  []Table `json:"tables"`
		Summary Summary `json:"summary"`
	}{
		Tables:  tables,
		Summary: Summarize(tables),
	})
}

func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.1fms", s*1000)
	}

	return fmt.Sprintf("%.2fs", s)
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}
