package plotting

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/lensmap/internal/lensing"
	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
)

type segment struct {
	x0, y0, x1, y1 float64
}

// sticks is a plotter of undirected line segments, used for shear
// whiskers.
type sticks struct {
	segs []segment
	draw.LineStyle
}

func (s *sticks) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, sg := range s.segs {
		c.StrokeLine2(s.LineStyle, trX(sg.x0), trY(sg.y0), trX(sg.x1), trY(sg.y1))
	}
}

func (s *sticks) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, sg := range s.segs {
		xmin = math.Min(xmin, math.Min(sg.x0, sg.x1))
		xmax = math.Max(xmax, math.Max(sg.x0, sg.x1))
		ymin = math.Min(ymin, math.Min(sg.y0, sg.y1))
		ymax = math.Max(ymax, math.Max(sg.y0, sg.y1))
	}
	return xmin, xmax, ymin, ymax
}

// shearSticks samples the shear every step pixels. Each stick is centred on
// its pixel, oriented at half the shear angle and multiplier*|γ| pixels long.
func shearSticks(g1, g2 *grid.Grid, sideDeg float64, step int, multiplier float64) []segment {
	pixel := sideDeg / float64(g1.N)
	var segs []segment
	for y := step / 2; y < g1.N; y += step {
		for x := step / 2; x < g1.N; x += step {
			a, b := g1.At(x, y), g2.At(x, y)
			half := 0.5 * multiplier * math.Hypot(a, b) * pixel
			phi := 0.5 * math.Atan2(b, a)
			cx, cy := (float64(x)+0.5)*pixel, (float64(y)+0.5)*pixel
			dx, dy := half*math.Cos(phi), half*math.Sin(phi)
			segs = append(segs, segment{cx - dx, cy - dy, cx + dx, cy + dy})
		}
	}
	return segs
}

// Sticks draws the shear field as whiskers, optionally over a heat map of
// background (typically the reconstructed convergence).
func Sticks(path, title string, s *lensing.ShearMap, background *grid.Grid, step int, multiplier float64) error {
	if step < 1 {
		return fmt.Errorf("sticks: pixel step must be at least 1, got %d", step)
	}
	side := s.SideAngleDeg()
	gamma := s.Gamma()

	var p *plot.Plot
	if background != nil {
		if background.N != s.Size() {
			return fmt.Errorf("sticks: %w: background is %dx%d, shear is %dx%d",
				grid.ErrShapeMismatch, background.N, background.N, s.Size(), s.Size())
		}
		p = mapPlot(title, background, side)
	} else {
		p = plot.New()
		p.Title.Text = title
		p.X.Label.Text = "x [deg]"
		p.Y.Label.Text = "y [deg]"
		p.X.Min, p.X.Max = 0, side
		p.Y.Min, p.Y.Max = 0, side
	}

	st := &sticks{segs: shearSticks(gamma[0], gamma[1], side, step, multiplier)}
	st.LineStyle = plotter.DefaultLineStyle
	st.LineStyle.Width = vg.Points(0.8)
	p.Add(st)
	return save(p, width, width, path)
}

// FourierComponent selects what FourierComponents draws.
type FourierComponent string

const (
	ComponentEE FourierComponent = "EE" // |E|²
	ComponentBB FourierComponent = "BB" // |B|²
	ComponentEB FourierComponent = "EB" // Re(E B*)
)

// Region bounds the (ℓx, ℓy) window drawn by FourierComponents. Bounds are
// inclusive.
type Region struct {
	LxMin, LxMax float64
	LyMin, LyMax float64
}

// SymmetricRegion is the square window |ℓx|, |ℓy| ≤ lmax.
func SymmetricRegion(lmax float64) Region {
	return Region{LxMin: -lmax, LxMax: lmax, LyMin: -lmax, LyMax: lmax}
}

func (r Region) validate() error {
	for _, v := range []float64{r.LxMin, r.LxMax, r.LyMin, r.LyMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("region bounds must be finite, got %+v", r)
		}
	}
	if r.LxMin >= r.LxMax || r.LyMin >= r.LyMax {
		return fmt.Errorf("region bounds must be increasing, got %+v", r)
	}
	return nil
}

// modesIn lists the signed frequencies of an n-point transform whose
// multipole k*fund lies in [lo, hi], ascending.
func modesIn(n int, fund, lo, hi float64) []int {
	var freqs []int
	for k := -(n / 2); k <= (n-1)/2; k++ {
		if l := float64(k) * fund; l >= lo && l <= hi {
			freqs = append(freqs, k)
		}
	}
	return freqs
}

// fourierPlane exposes a window of the full (ℓx, ℓy) plane of an E/B pair.
type fourierPlane struct {
	e, b   *spectral.HalfPlane
	comp   FourierComponent
	fund   float64 // 2π/L
	xfreqs []int   // ascending signed kx kept
	yfreqs []int   // ascending signed ky kept
}

func (f fourierPlane) Dims() (c, r int) { return len(f.xfreqs), len(f.yfreqs) }
func (f fourierPlane) X(c int) float64  { return float64(f.xfreqs[c]) * f.fund }
func (f fourierPlane) Y(r int) float64  { return float64(f.yfreqs[r]) * f.fund }

func (f fourierPlane) Z(c, r int) float64 {
	kx, ky := f.xfreqs[c], f.yfreqs[r]
	e, b := f.e.Full(ky, kx), f.b.Full(ky, kx)
	switch f.comp {
	case ComponentBB:
		return real(b)*real(b) + imag(b)*imag(b)
	case ComponentEB:
		return real(e)*real(b) + imag(e)*imag(b)
	default:
		return real(e)*real(e) + imag(e)*imag(e)
	}
}

// FourierComponents draws |E|², |B|² or Re(E B*) over the modes of the
// (ℓx, ℓy) plane that fall inside region.
func FourierComponents(path, title string, e, b *spectral.HalfPlane, comp FourierComponent, sideDeg float64, region Region) error {
	if e == nil || b == nil {
		return fmt.Errorf("fourier components: E and B grids are required")
	}
	if !e.SameShape(b) {
		return fmt.Errorf("fourier components: %w", grid.ErrShapeMismatch)
	}
	switch comp {
	case ComponentEE, ComponentBB, ComponentEB:
	default:
		return fmt.Errorf("fourier components: unknown component %q", comp)
	}
	if !(sideDeg > 0) {
		return fmt.Errorf("fourier components: side angle must be positive")
	}
	if err := region.validate(); err != nil {
		return fmt.Errorf("fourier components: %w", err)
	}

	fund := 2 * math.Pi / (sideDeg * math.Pi / 180)
	xfreqs := modesIn(e.N, fund, region.LxMin, region.LxMax)
	yfreqs := modesIn(e.N, fund, region.LyMin, region.LyMax)
	if len(xfreqs) < 2 || len(yfreqs) < 2 {
		return fmt.Errorf("fourier components: region %+v holds fewer than 2 modes per axis at fundamental %g", region, fund)
	}

	plane := fourierPlane{e: e, b: b, comp: comp, fund: fund, xfreqs: xfreqs, yfreqs: yfreqs}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "lx"
	p.Y.Label.Text = "ly"
	p.Add(newHeatMap(plane))
	return save(p, width, width, path)
}
