// Package render draws chart descriptions to PNG files with gonum/plot.
package render

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/weiihann/scalebench/charts"
	"github.com/weiihann/scalebench/metrics"
)

const defaultDPI = 96

// PNG renders charts into Dir. It implements charts.Renderer.
type PNG struct {
	Dir    string
	Width  vg.Length
	Height vg.Length
	DPI    int
	Logger *slog.Logger
}

var _ charts.Renderer = (*PNG)(nil)

// NewPNG returns a renderer writing 10x6 inch images into dir.
func NewPNG(dir string, logger *slog.Logger) *PNG {
	return &PNG{
		Dir:    dir,
		Width:  10 * vg.Inch,
		Height: 6 * vg.Inch,
		DPI:    defaultDPI,
		Logger: logger.With(slog.String("component", "render")),
	}
}

// Heatmaps draws the two panels of pair side by side in one image.
func (p *PNG) Heatmaps(pair charts.HeatmapPair) error {
	efficiency, err := brewer.GetPalette(brewer.TypeSequential, "YlGnBu", 9)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}

	left, err := heatmapPlot(pair.Left, pair.XLabel, pair.YLabel, efficiency)
	if err != nil {
		return err
	}

	right, err := heatmapPlot(pair.Right, pair.XLabel, pair.YLabel,
		palette.Heat(12, 1))
	if err != nil {
		return err
	}

	img := vgimg.NewWith(
		vgimg.UseWH(p.Width*1.2, p.Height),
		vgimg.UseDPI(p.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Centimeter,
		PadTop:    vg.Millimeter * 5,
		PadBottom: vg.Millimeter * 5,
		PadLeft:   vg.Millimeter * 5,
		PadRight:  vg.Millimeter * 5,
	}

	plots := [][]*plot.Plot{{left, right}}
	canvases := plot.Align(plots, tiles, dc)

	for j, pl := range plots[0] {
		pl.Draw(canvases[0][j])
	}

	return p.write(pair.File, vgimg.PngCanvas{Canvas: img})
}

// Lines draws every series of c on one set of axes.
func (p *PNG) Lines(c charts.LineChart) error {
	pl := plot.New()
	pl.Title.Text = c.Title
	pl.X.Label.Text = c.XLabel
	pl.Y.Label.Text = c.YLabel
	pl.Legend.Top = true

	pl.Add(plotter.NewGrid())

	for i, s := range c.Series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q: %d x values, %d y values",
				s.Label, len(s.X), len(s.Y))
		}

		xys := make(plotter.XYs, len(s.X))
		for k := range s.X {
			xys[k].X = s.X[k]
			xys[k].Y = s.Y[k]
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Label, err)
		}

		clr := plotutil.Color(i)
		line.Color = clr
		line.Width = vg.Points(1.5)

		if s.Dashed {
			line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		}

		thumbs := []plot.Thumbnailer{line}
		pl.Add(line)

		if s.Markers {
			points, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("series %q: %w", s.Label, err)
			}

			points.Shape = plotutil.Shape(i)
			points.Color = clr

			pl.Add(points)
			thumbs = append(thumbs, points)
		}

		pl.Legend.Add(s.Label, thumbs...)
	}

	if len(c.XTicks) > 0 {
		ticks := make([]plot.Tick, len(c.XTicks))
		for i, x := range c.XTicks {
			ticks[i] = plot.Tick{Value: float64(x), Label: strconv.Itoa(x)}
		}

		pl.X.Tick.Marker = plot.ConstantTicks(ticks)
	}

	img := vgimg.NewWith(
		vgimg.UseWH(p.Width, p.Height),
		vgimg.UseDPI(p.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	pl.Draw(draw.New(img))

	return p.write(c.File, vgimg.PngCanvas{Canvas: img})
}

func (p *PNG) write(name string, can vg.CanvasWriterTo) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(p.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := can.WriteTo(f); err != nil {
		f.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	p.Logger.Info("chart written", slog.String("path", path))

	return nil
}

// grid adapts a metrics.Matrix to plotter.GridXYZ with worker counts on
// the x axis and product sizes on the y axis.
type grid struct {
	m metrics.Matrix
}

func (g grid) Dims() (c, r int)   { return len(g.m.Workers), len(g.m.Products) }
func (g grid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g grid) X(c int) float64    { return float64(g.m.Workers[c]) }
func (g grid) Y(r int) float64    { return float64(g.m.Products[r]) }

func heatmapPlot(
	h charts.Heatmap,
	xLabel, yLabel string,
	pal palette.Palette,
) (*plot.Plot, error) {
	if h.Matrix.Empty() {
		return nil, fmt.Errorf("heatmap %q has no cells", h.Title)
	}

	g := grid{m: h.Matrix}

	hm := plotter.NewHeatMap(g, pal)

	lo, hi := h.Matrix.Bounds()
	if hi <= lo {
		hi = lo + 1
	}

	hm.Min, hm.Max = lo, hi

	pl := plot.New()
	pl.Title.Text = h.Title
	pl.X.Label.Text = xLabel
	pl.Y.Label.Text = yLabel
	pl.Add(hm)

	cols, rows := g.Dims()

	cells := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, cols*rows),
		Labels: make([]string, 0, cols*rows),
	}

	xTicks := make([]plot.Tick, cols)
	for c := 0; c < cols; c++ {
		xTicks[c] = plot.Tick{Value: g.X(c), Label: strconv.Itoa(h.Matrix.Workers[c])}

		for r := 0; r < rows; r++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: g.X(c), Y: g.Y(r)})
			cells.Labels = append(cells.Labels,
				strconv.FormatFloat(g.Z(c, r), 'f', 2, 64))
		}
	}

	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, fmt.Errorf("heatmap %q labels: %w", h.Title, err)
	}

	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}

	pl.Add(labels)
	pl.X.Tick.Marker = plot.ConstantTicks(xTicks)

	return pl, nil
}
