// Package results reads and writes the whitespace-delimited timing tables
// produced by a benchmark sweep.
package results

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Record is one line of a results table: a single timed run for a
// product size and worker count.
type Record struct {
	Product    int     `json:"product_size"`
	Workers    int     `json:"worker_count"`
	Elapsed    float64 `json:"elapsed_s"`
	Speedup    float64 `json:"speedup"`
	Efficiency float64 `json:"efficiency"`
}

// Write writes records to w, one per line, in the same format Parse reads.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)

	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%d %d %f %f %f\n",
			r.Product, r.Workers, r.Elapsed, r.Speedup, r.Efficiency,
		); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	return bw.Flush()
}

// WriteFile creates (or truncates) path and writes records to it.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}

	if err := Write(f, records); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
