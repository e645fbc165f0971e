// Package lensing exposes convergence and shear maps over a square, flat,
// periodic sky patch together with their summary statistics.
//
// Maps are immutable once built. The only state a query adds is the
// derivative cache of a ConvergenceMap, filled at most once per map and safe
// for concurrent use.
package lensing

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/lensing/morph"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/units"
)

// ErrInvalidSideAngle is returned for a side angle that is not finite and positive.
var ErrInvalidSideAngle = errors.New("invalid side angle")

// sideAngle stores the patch size canonically in degrees alongside the unit
// it is reported in.
type sideAngle struct {
	deg  float64
	unit string
}

func newSideAngle(a units.Angle) (sideAngle, error) {
	if !units.IsValid(a.Unit) {
		return sideAngle{}, fmt.Errorf("%w: %q", units.ErrUnsupportedUnit, a.Unit)
	}
	if err := a.Validate(); err != nil {
		return sideAngle{}, fmt.Errorf("%w: %v", ErrInvalidSideAngle, err)
	}
	deg, err := a.Deg()
	if err != nil {
		return sideAngle{}, err
	}
	return sideAngle{deg: deg, unit: a.Unit}, nil
}

func (s sideAngle) angle() units.Angle {
	a, err := units.Degrees(s.deg).In(s.unit)
	if err != nil {
		// unit was validated on construction
		return units.Degrees(s.deg)
	}
	return a
}

func (s sideAngle) withUnit(unit string) (sideAngle, error) {
	if !units.IsValid(unit) {
		return sideAngle{}, fmt.Errorf("%w: %q (valid: %s)", units.ErrUnsupportedUnit, unit, units.GetValidUnitsString())
	}
	return sideAngle{deg: s.deg, unit: unit}, nil
}

func (s sideAngle) equal(o sideAngle) bool {
	return math.Abs(s.deg-o.deg) <= 1e-12*math.Max(math.Abs(s.deg), math.Abs(o.deg))
}

// derivativeCache computes a map's derivatives once and shares the result
// between every copy of the map that views the same grid.
type derivativeCache struct {
	once sync.Once
	done atomic.Bool
	d    morph.Derivatives
}

func (c *derivativeCache) get(g *grid.Grid, h float64) morph.Derivatives {
	c.once.Do(func() {
		c.d = morph.Compute(g, h)
		c.done.Store(true)
	})
	return c.d
}

// ConvergenceMap is a scalar convergence (κ) field.
type ConvergenceMap struct {
	kappa *grid.Grid
	side  sideAngle
	cache *derivativeCache
}

// NewConvergenceMap builds a map from a square grid and its side angle. The
// grid is copied.
func NewConvergenceMap(kappa *grid.Grid, side units.Angle) (*ConvergenceMap, error) {
	if kappa == nil {
		return nil, fmt.Errorf("convergence map: nil grid")
	}
	g, err := grid.New(kappa.N, kappa.Data)
	if err != nil {
		return nil, err
	}
	return newConvergenceMap(g, side)
}

// ConvergenceFromRows builds a map from a [y][x] array.
func ConvergenceFromRows(rows [][]float64, side units.Angle) (*ConvergenceMap, error) {
	g, err := grid.FromRows(rows)
	if err != nil {
		return nil, err
	}
	return newConvergenceMap(g, side)
}

// newConvergenceMap takes ownership of g.
func newConvergenceMap(g *grid.Grid, side units.Angle) (*ConvergenceMap, error) {
	s, err := newSideAngle(side)
	if err != nil {
		return nil, err
	}
	return &ConvergenceMap{kappa: g, side: s, cache: &derivativeCache{}}, nil
}

// Kappa returns a copy of the convergence grid.
func (m *ConvergenceMap) Kappa() *grid.Grid { return m.kappa.Clone() }

// Size returns the number of pixels per side.
func (m *ConvergenceMap) Size() int { return m.kappa.N }

// SideAngle returns the side length in the map's current unit.
func (m *ConvergenceMap) SideAngle() units.Angle { return m.side.angle() }

// SideAngleDeg returns the side length in degrees.
func (m *ConvergenceMap) SideAngleDeg() float64 { return m.side.deg }

// SetAngularUnits returns the same map with its side angle expressed in
// unit. Nothing is resampled and the derivative cache is shared.
func (m *ConvergenceMap) SetAngularUnits(unit string) (*ConvergenceMap, error) {
	s, err := m.side.withUnit(unit)
	if err != nil {
		return nil, err
	}
	return &ConvergenceMap{kappa: m.kappa, side: s, cache: m.cache}, nil
}

// Mul applies a mask (or any other map) pixel by pixel. Both maps must share
// size and side angle.
func (m *ConvergenceMap) Mul(other *ConvergenceMap) (*ConvergenceMap, error) {
	if err := m.compatible(other); err != nil {
		return nil, fmt.Errorf("multiply: %w", err)
	}
	g, err := m.kappa.Mul(other.kappa)
	if err != nil {
		return nil, err
	}
	return &ConvergenceMap{kappa: g, side: m.side, cache: &derivativeCache{}}, nil
}

func (m *ConvergenceMap) compatible(other *ConvergenceMap) error {
	if other == nil {
		return fmt.Errorf("%w: nil map", grid.ErrShapeMismatch)
	}
	if !m.kappa.SameShape(other.kappa) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", grid.ErrShapeMismatch, m.Size(), m.Size(), other.Size(), other.Size())
	}
	if !m.side.equal(other.side) {
		return fmt.Errorf("%w: side angle %g deg vs %g deg", grid.ErrShapeMismatch, m.side.deg, other.side.deg)
	}
	return nil
}

// PixelSpacingDeg is the grid spacing in degrees used by the derivative
// stencils.
func (m *ConvergenceMap) PixelSpacingDeg() float64 {
	return m.side.deg / float64(m.kappa.N)
}

// Derivatives returns the cached gradient and Hessian grids and whether they
// have been computed yet.
func (m *ConvergenceMap) Derivatives() (morph.Derivatives, bool) {
	if !m.cache.done.Load() {
		return morph.Derivatives{}, false
	}
	return m.cache.d, true
}

// PowerSpectrum returns the binned power spectrum over the multipole edges.
func (m *ConvergenceMap) PowerSpectrum(edges []float64) (spectral.Spectrum, error) {
	return spectral.PowerSpectrum(m.kappa, units.Degrees(m.side.deg), edges)
}

// Cross returns the cross power spectrum with another map of the same size
// and side angle.
func (m *ConvergenceMap) Cross(other *ConvergenceMap, edges []float64) (spectral.Spectrum, error) {
	if err := m.compatible(other); err != nil {
		return spectral.Spectrum{}, fmt.Errorf("cross spectrum: %w", err)
	}
	return spectral.CrossSpectrum(m.kappa, other.kappa, units.Degrees(m.side.deg), edges)
}

// PDF returns the probability density of the map values over thresholds,
// in units of the standard deviation when norm is set.
func (m *ConvergenceMap) PDF(thresholds []float64, norm bool) (morph.PDF, error) {
	return morph.ValuePDF(m.kappa, thresholds, norm)
}

// MinkowskiFunctionals returns V0, V1 and V2 at the threshold bin centres.
// It computes and caches the map derivatives.
func (m *ConvergenceMap) MinkowskiFunctionals(thresholds []float64, norm bool) (morph.Minkowski, error) {
	if err := grid.ValidateEdges(thresholds); err != nil {
		return morph.Minkowski{}, err
	}
	if _, err := morph.Scale(m.kappa, norm); err != nil {
		return morph.Minkowski{}, err
	}
	return morph.Functionals(m.kappa, m.cache.get(m.kappa, m.PixelSpacingDeg()), thresholds, norm)
}

// PeakCount histograms the local maxima of the map over thresholds.
func (m *ConvergenceMap) PeakCount(thresholds []float64, norm bool) (morph.PeakCounts, error) {
	return morph.CountPeaks(m.kappa, thresholds, norm)
}

// LocatePeaks returns the local maxima whose values fall inside thresholds.
func (m *ConvergenceMap) LocatePeaks(thresholds []float64, norm bool) ([]morph.Peak, error) {
	return morph.LocatePeaks(m.kappa, thresholds, norm)
}
