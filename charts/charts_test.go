package charts

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/weiihann/scalebench/results"
)

type fakeRenderer struct {
	heatmaps []HeatmapPair
	lines    []LineChart
	failOn   string
}

func (f *fakeRenderer) Heatmaps(p HeatmapPair) error {
	if p.File == f.failOn {
		return errors.New("boom")
	}

	f.heatmaps = append(f.heatmaps, p)

	return nil
}

func (f *fakeRenderer) Lines(c LineChart) error {
	if c.File == f.failOn {
		return errors.New("boom")
	}

	f.lines = append(f.lines, c)

	return nil
}

func (f *fakeRenderer) line(file string) (LineChart, bool) {
	for _, c := range f.lines {
		if c.File == file {
			return c, true
		}
	}

	return LineChart{}, false
}

func sampleInput(t *testing.T) Input {
	t.Helper()

	distributed, err := results.Parse(strings.NewReader(
		"10 1 2.0 1.0 1.0\n10 2 1.0 2.0 1.0\n" +
			"20 1 4.0 1.0 1.0\n20 2 3.0 1.3 0.6\n",
	))
	if err != nil {
		t.Fatalf("parse distributed: %v", err)
	}

	shared, err := results.Parse(strings.NewReader(
		"10 1 4.0 1.0 1.0\n10 2 2.0 2.0 1.0\n" +
			"20 1 8.0 1.0 1.0\n20 2 2.0 4.0 2.0\n",
	))
	if err != nil {
		t.Fatalf("parse shared: %v", err)
	}

	return Input{Distributed: distributed, Shared: shared}
}

func TestAll(t *testing.T) {
	r := &fakeRenderer{}

	if err := All(r, sampleInput(t)); err != nil {
		t.Fatalf("All failed: %v", err)
	}

	if len(r.heatmaps) != 2 {
		t.Fatalf("got %d heatmap pairs, want 2", len(r.heatmaps))
	}

	wantLines := []string{
		"time_execution_product_10.png",
		"time_execution_product_20.png",
		"time_execution_all_products.png",
		"trend_lines.png",
		"average_time.png",
	}

	if len(r.lines) != len(wantLines) {
		t.Fatalf("got %d line charts, want %d", len(r.lines), len(wantLines))
	}

	for i, file := range wantLines {
		if r.lines[i].File != file {
			t.Errorf("line chart %d = %s, want %s", i, r.lines[i].File, file)
		}
	}
}

func TestPerformanceHeatmapsUseSharedBaseline(t *testing.T) {
	r := &fakeRenderer{}

	if err := PerformanceHeatmaps(r, sampleInput(t)); err != nil {
		t.Fatalf("PerformanceHeatmaps failed: %v", err)
	}

	mpi := r.heatmaps[0]
	if mpi.File != "performance_metrics_heatmap_OPENMPI.png" {
		t.Fatalf("first pair = %s", mpi.File)
	}

	// Baseline for product 10 is the shared 1-worker time, 4.0.
	left := mpi.Left.Matrix.Row(0)
	right := mpi.Right.Matrix.Row(0)

	want := []float64{4.0 / 2.0, 4.0 / 1.0}
	for j := range want {
		if left[j] != want[j] || right[j] != want[j] {
			t.Errorf("cell %d = %v/%v, want %v", j, left[j], right[j], want[j])
		}
	}

	omp := r.heatmaps[1]
	if got := omp.Left.Matrix.Row(1); got[1] != 4 {
		t.Errorf("openmp ratio for product 20, 2 workers = %v, want 4", got[1])
	}
}

func TestPerformanceHeatmapsEmpty(t *testing.T) {
	if err := PerformanceHeatmaps(&fakeRenderer{}, Input{}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestTimeByProductPlaceholders(t *testing.T) {
	in := sampleInput(t)
	in.Shared = in.Shared[:3] // drop product 20, 2 workers

	r := &fakeRenderer{}
	if err := TimeByProduct(r, in); err != nil {
		t.Fatalf("TimeByProduct failed: %v", err)
	}

	c, ok := r.line("time_execution_product_20.png")
	if !ok {
		t.Fatal("missing chart for product 20")
	}

	shared := c.Series[1]
	if shared.Label != SharedLabel {
		t.Errorf("label = %q, want %q", shared.Label, SharedLabel)
	}

	if shared.Y[0] != 8 || shared.Y[1] != 0 {
		t.Errorf("shared series = %v, want [8 0]", shared.Y)
	}
}

func TestTimeAllProducts(t *testing.T) {
	r := &fakeRenderer{}
	if err := TimeAllProducts(r, sampleInput(t)); err != nil {
		t.Fatalf("TimeAllProducts failed: %v", err)
	}

	c := r.lines[0]
	if len(c.Series) != 4 {
		t.Fatalf("got %d series, want 4", len(c.Series))
	}

	if c.Series[2].Label != "OpenMPI (product 20)" {
		t.Errorf("series 2 label = %q", c.Series[2].Label)
	}
}

func TestTrendLines(t *testing.T) {
	r := &fakeRenderer{}
	if err := TrendLines(r, sampleInput(t)); err != nil {
		t.Fatalf("TrendLines failed: %v", err)
	}

	c := r.lines[0]
	if len(c.Series) != 4 {
		t.Fatalf("got %d series, want 4", len(c.Series))
	}

	for i, s := range c.Series {
		if s.Dashed != (i >= 2) {
			t.Errorf("series %d dashed = %v", i, s.Dashed)
		}
	}

	// Two samples are fitted exactly.
	if y := c.Series[0].Y; math.Abs(y[0]-2) > 1e-9 || math.Abs(y[1]-1) > 1e-9 {
		t.Errorf("trend for product 10 = %v, want [2 1]", y)
	}
}

func TestAverageTimes(t *testing.T) {
	r := &fakeRenderer{}
	if err := AverageTimes(r, sampleInput(t)); err != nil {
		t.Fatalf("AverageTimes failed: %v", err)
	}

	c := r.lines[0]

	// workers=1: 0 -> 1 -> 2.5
	// workers=2: 0 -> 0.5 -> 1.75
	if y := c.Series[0].Y; y[0] != 2.5 || y[1] != 1.75 {
		t.Errorf("distributed averages = %v, want [2.5 1.75]", y)
	}

	if !strings.Contains(c.Series[0].Label, "(10-20)") {
		t.Errorf("label %q lacks product span", c.Series[0].Label)
	}
}

func TestAllStopsOnError(t *testing.T) {
	r := &fakeRenderer{failOn: "performance_metrics_heatmap_OPENMPI.png"}

	err := All(r, sampleInput(t))
	if err == nil {
		t.Fatal("expected error")
	}

	if !strings.Contains(err.Error(), "performance heatmaps") {
		t.Errorf("error %q does not name the failing step", err)
	}

	if len(r.lines) != 2 {
		t.Errorf("got %d line charts before failure, want 2", len(r.lines))
	}
}
