// Package morph holds the real-space morphology estimators: finite
// difference derivatives, value PDFs, Minkowski functionals and peak
// statistics. All stencils wrap around the grid edges, matching the
// periodicity assumed by the Fourier estimators.
package morph

import (
	"fmt"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
)

// Derivatives bundles the first and second derivatives of a field. Every
// grid has the shape of the field it was computed from.
type Derivatives struct {
	GradX  *grid.Grid
	GradY  *grid.Grid
	HessXX *grid.Grid
	HessYY *grid.Grid
	HessXY *grid.Grid
}

// Gradient returns the centred finite-difference gradient of g for a pixel
// spacing h.
func Gradient(g *grid.Grid, h float64) (gx, gy *grid.Grid) {
	n := g.N
	gx, gy = grid.Zeros(n), grid.Zeros(n)
	inv := 1 / (2 * h)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			gx.Set(x, y, (g.Wrap(x+1, y)-g.Wrap(x-1, y))*inv)
			gy.Set(x, y, (g.Wrap(x, y+1)-g.Wrap(x, y-1))*inv)
		}
	}
	return gx, gy
}

// Hessian returns the centred second differences of g along each axis and
// the mixed derivative.
func Hessian(g *grid.Grid, h float64) (hxx, hyy, hxy *grid.Grid) {
	n := g.N
	hxx, hyy, hxy = grid.Zeros(n), grid.Zeros(n), grid.Zeros(n)
	inv2 := 1 / (h * h)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := g.At(x, y)
			hxx.Set(x, y, (g.Wrap(x+1, y)-2*c+g.Wrap(x-1, y))*inv2)
			hyy.Set(x, y, (g.Wrap(x, y+1)-2*c+g.Wrap(x, y-1))*inv2)
			hxy.Set(x, y, (g.Wrap(x+1, y+1)-g.Wrap(x+1, y-1)-g.Wrap(x-1, y+1)+g.Wrap(x-1, y-1))*0.25*inv2)
		}
	}
	return hxx, hyy, hxy
}

// Compute evaluates all derivatives of g for a pixel spacing h.
func Compute(g *grid.Grid, h float64) Derivatives {
	var d Derivatives
	d.GradX, d.GradY = Gradient(g, h)
	d.HessXX, d.HessYY, d.HessXY = Hessian(g, h)
	return d
}

func (d Derivatives) matches(g *grid.Grid) error {
	for _, c := range []*grid.Grid{d.GradX, d.GradY, d.HessXX, d.HessYY, d.HessXY} {
		if !g.SameShape(c) {
			return fmt.Errorf("derivatives: %w", grid.ErrShapeMismatch)
		}
	}
	return nil
}

// Scale returns the value scale used to express thresholds: the population
// standard deviation when norm is set, 1 otherwise.
func Scale(g *grid.Grid, norm bool) (float64, error) {
	if !norm {
		return 1, nil
	}
	_, sigma := g.MeanStd()
	if sigma == 0 {
		return 0, grid.ErrDegenerateField
	}
	return sigma, nil
}
