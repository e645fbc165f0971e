// Package plotting renders maps and binned statistics to static images with
// gonum/plot. The output format follows the file extension (.png, .svg,
// .pdf).
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/lensing/morph"
)

// Curve is one labelled line.
type Curve struct {
	Label string
	X, Y  []float64
}

var (
	width  = 8 * vg.Inch
	height = 6 * vg.Inch
)

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func addCurves(p *plot.Plot, curves []Curve, keep func(x, y float64) bool) error {
	colors := generateColors(len(curves))
	for i, c := range curves {
		if len(c.X) != len(c.Y) {
			return fmt.Errorf("curve %q: %d x values but %d y values", c.Label, len(c.X), len(c.Y))
		}
		pts := make(plotter.XYs, 0, len(c.X))
		for j := range c.X {
			if keep == nil || keep(c.X[j], c.Y[j]) {
				pts = append(pts, plotter.XY{X: c.X[j], Y: c.Y[j]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		if c.Label != "" {
			p.Legend.Add(c.Label, line)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// Curves draws labelled lines on linear axes.
func Curves(path, title, xlabel, ylabel string, curves ...Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	if err := addCurves(p, curves, finite); err != nil {
		return err
	}
	return save(p, width, height, path)
}

// Spectrum draws ℓ(ℓ+1)P/2π against ℓ on log-log axes. Non-positive values
// cannot be shown on a log axis and are skipped; when fewer than two distinct
// points remain the axes stay linear.
func Spectrum(path, title string, curves ...Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "l"
	p.Y.Label.Text = "l(l+1)P(l)/2π"

	scaled := make([]Curve, len(curves))
	for i, c := range curves {
		y := make([]float64, len(c.Y))
		for j := range c.Y {
			if j < len(c.X) {
				l := c.X[j]
				y[j] = l * (l + 1) * c.Y[j] / (2 * math.Pi)
			}
		}
		scaled[i] = Curve{Label: c.Label, X: c.X, Y: y}
	}
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	positive := func(x, y float64) bool {
		if !finite(x, y) || x <= 0 || y <= 0 {
			return false
		}
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
		return true
	}
	if err := addCurves(p, scaled, positive); err != nil {
		return err
	}
	// a log axis needs a non-empty range
	if xmin < xmax && ymin < ymax {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return save(p, width, height, path)
}

func finite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0)
}

// MinkowskiPanels draws V0, V1 and V2 side by side.
func MinkowskiPanels(path string, mf morph.Minkowski) error {
	series := []struct {
		name string
		y    []float64
	}{{"V0", mf.V0}, {"V1", mf.V1}, {"V2", mf.V2}}

	plots := make([][]*plot.Plot, 1)
	plots[0] = make([]*plot.Plot, len(series))
	for i, s := range series {
		p := plot.New()
		p.Title.Text = s.name
		p.X.Label.Text = "ν"
		p.Add(plotter.NewGrid())
		if err := addCurves(p, []Curve{{X: mf.Nu, Y: s.y}}, finite); err != nil {
			return err
		}
		plots[0][i] = p
	}

	img := vgimg.New(15*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1, Cols: len(series),
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i, p := range plots[0] {
		p.Draw(canvases[0][i])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// generateColors returns n distinguishable colours.
func generateColors(n int) []color.Color {
	base := []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
		color.RGBA{R: 140, G: 86, B: 75, A: 255},
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = base[i%len(base)]
	}
	return out
}

// newHeatMap builds a heat map with the shared palette. A constant field
// gets a unit colour range so every cell maps to the first colour.
func newHeatMap(g plotter.GridXYZ) *plotter.HeatMap {
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	return hm
}

// mapGrid exposes a square grid as plotter.GridXYZ with pixel centres in
// degrees. Matrix rows are y, columns are x.
type mapGrid struct {
	m     *mat.Dense
	pixel float64
}

func (g mapGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}
func (g mapGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g mapGrid) X(c int) float64    { return (float64(c) + 0.5) * g.pixel }
func (g mapGrid) Y(r int) float64    { return (float64(r) + 0.5) * g.pixel }

func newMapGrid(g *grid.Grid, sideDeg float64) mapGrid {
	return mapGrid{m: g.Dense(), pixel: sideDeg / float64(g.N)}
}

func mapPlot(title string, g *grid.Grid, sideDeg float64) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x [deg]"
	p.Y.Label.Text = "y [deg]"
	p.Add(newHeatMap(newMapGrid(g, sideDeg)))
	p.X.Min, p.X.Max = 0, sideDeg
	p.Y.Min, p.Y.Max = 0, sideDeg
	return p
}

// Image draws a map as a heat map with axes in degrees.
func Image(path, title string, g *grid.Grid, sideDeg float64) error {
	if g == nil {
		return fmt.Errorf("image: nil grid")
	}
	if !(sideDeg > 0) {
		return fmt.Errorf("image: side angle must be positive, got %g", sideDeg)
	}
	return save(mapPlot(title, g, sideDeg), width, width, path)
}
