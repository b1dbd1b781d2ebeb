package experiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/weiihann/scalebench/harness"
	"github.com/weiihann/scalebench/results"
)

// fakeTimer returns base/workers seconds for every run and records each
// command line it was asked to run.
type fakeTimer struct {
	base  time.Duration
	calls []string
	fail  int
}

func (f *fakeTimer) RunAndTime(_ context.Context, cc harness.CommandConfig) (time.Duration, error) {
	f.calls = append(f.calls, cc.Binary+" "+strings.Join(cc.Args, " "))

	if f.fail > 0 && len(f.calls) == f.fail {
		return 0, errors.New("cannot start")
	}

	workers, err := strconv.Atoi(cc.Args[1])
	if err != nil {
		return 0, err
	}

	return f.base / time.Duration(workers), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPlan() Plan {
	s, _ := harness.LookupStrategy("openmpi")

	return Plan{
		Strategy:     s,
		ProductSizes: []int{200, 400},
		WorkerCounts: []int{1, 2, 4},
	}
}

func TestRun(t *testing.T) {
	timer := &fakeTimer{base: 8 * time.Second}
	d := NewDriver(timer, testLogger())

	records, err := d.Run(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}

	// One baseline run plus one run per worker count, per product.
	if len(timer.calls) != 8 {
		t.Errorf("got %d process runs, want 8", len(timer.calls))
	}

	if timer.calls[0] != "mpirun -np 1 ./main_mpi input_200.txt" {
		t.Errorf("first call = %q", timer.calls[0])
	}

	if timer.calls[4] != "mpirun -np 1 ./main_mpi input_400.txt" {
		t.Errorf("second baseline call = %q", timer.calls[4])
	}

	r := records[2]
	if r.Product != 200 || r.Workers != 4 {
		t.Fatalf("record 2 = %+v", r)
	}

	if r.Elapsed != 2 || r.Speedup != 4 || r.Efficiency != 1 {
		t.Errorf("record 2 = %+v, want elapsed 2, speedup 4, efficiency 1", r)
	}
}

func TestRunStopsOnError(t *testing.T) {
	timer := &fakeTimer{base: time.Second, fail: 3}
	d := NewDriver(timer, testLogger())

	records, err := d.Run(context.Background(), testPlan())
	if err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(err.Error(), "product 200 with 2 workers") {
		t.Errorf("error %q does not name the failing run", err)
	}

	if len(records) != 1 {
		t.Errorf("got %d partial records, want 1", len(records))
	}
}

func TestRunToFile(t *testing.T) {
	d := NewDriver(&fakeTimer{base: 4 * time.Second}, testLogger())
	path := filepath.Join(t.TempDir(), "experiment_results_openmpi.txt")

	if _, err := d.RunToFile(context.Background(), testPlan(), path); err != nil {
		t.Fatalf("RunToFile failed: %v", err)
	}

	got, err := results.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(got) != 6 {
		t.Fatalf("got %d records, want 6", len(got))
	}

	if got[4].Workers != 2 || got[4].Speedup != 2 || got[4].Efficiency != 1 {
		t.Errorf("record 4 = %+v", got[4])
	}
}

func TestMeasure(t *testing.T) {
	tests := []struct {
		name               string
		workers            int
		t1, tp             float64
		speedup, efficient float64
	}{
		{"linear", 4, 8, 2, 4, 1},
		{"sublinear", 2, 3, 2, 1.5, 0.75},
		{"zero time", 2, 3, 0, 0, 0},
		{"zero workers", 0, 3, 1, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Measure(10, tt.workers, tt.t1, tt.tp)

			if math.Abs(r.Speedup-tt.speedup) > 1e-12 {
				t.Errorf("speedup = %v, want %v", r.Speedup, tt.speedup)
			}

			if math.Abs(r.Efficiency-tt.efficient) > 1e-12 {
				t.Errorf("efficiency = %v, want %v", r.Efficiency, tt.efficient)
			}

			if r.Elapsed != tt.tp {
				t.Errorf("elapsed = %v, want %v", r.Elapsed, tt.tp)
			}
		})
	}
}

func TestInputPath(t *testing.T) {
	p := Plan{}
	if got := p.InputPath(200); got != "input_200.txt" {
		t.Errorf("InputPath = %q", got)
	}

	p = Plan{InputDir: "data", InputPattern: "graph-%05d.in"}
	if got := p.InputPath(42); got != filepath.Join("data", "graph-00042.in") {
		t.Errorf("InputPath = %q", got)
	}
}

func TestLinearRange(t *testing.T) {
	got := LinearRange(200, 20000, 20)
	if len(got) != 21 {
		t.Fatalf("got %d sizes, want 21", len(got))
	}

	if got[0] != 200 || got[1] != 1190 || got[20] != 20000 {
		t.Errorf("range = %v", got)
	}

	if got := LinearRange(5, 1, 3); got != nil {
		t.Errorf("reversed range = %v, want nil", got)
	}

	if got := LinearRange(7, 8, 4); len(got) != 1 || got[0] != 7 {
		t.Errorf("narrow range = %v, want [7]", got)
	}
}
