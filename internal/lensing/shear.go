package lensing

import (
	"fmt"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/units"
)

// ShearMap is a two-component shear field (γ1, γ2).
type ShearMap struct {
	gamma [2]*grid.Grid
	side  sideAngle
}

// NewShearMap builds a shear map from its two components, which are copied.
func NewShearMap(g1, g2 *grid.Grid, side units.Angle) (*ShearMap, error) {
	if g1 == nil || g2 == nil {
		return nil, fmt.Errorf("shear map: nil component")
	}
	if g1.N != g2.N {
		return nil, componentMismatch(g1.N, g2.N)
	}
	a, err := grid.New(g1.N, g1.Data)
	if err != nil {
		return nil, fmt.Errorf("shear map component 1: %w", err)
	}
	b, err := grid.New(g2.N, g2.Data)
	if err != nil {
		return nil, fmt.Errorf("shear map component 2: %w", err)
	}
	return newShearMap(a, b, side)
}

// ShearFromRows builds a shear map from two [y][x] arrays.
func ShearFromRows(g1, g2 [][]float64, side units.Angle) (*ShearMap, error) {
	if len(g1) != len(g2) {
		return nil, componentMismatch(len(g1), len(g2))
	}
	a, err := grid.FromRows(g1)
	if err != nil {
		return nil, fmt.Errorf("shear map component 1: %w", err)
	}
	b, err := grid.FromRows(g2)
	if err != nil {
		return nil, fmt.Errorf("shear map component 2: %w", err)
	}
	return newShearMap(a, b, side)
}

func newShearMap(g1, g2 *grid.Grid, side units.Angle) (*ShearMap, error) {
	if !g1.SameShape(g2) {
		return nil, componentMismatch(g1.N, g2.N)
	}
	s, err := newSideAngle(side)
	if err != nil {
		return nil, err
	}
	return &ShearMap{gamma: [2]*grid.Grid{g1, g2}, side: s}, nil
}

func componentMismatch(n1, n2 int) error {
	return fmt.Errorf("shear map: %w: components are %dx%d and %dx%d",
		grid.ErrShapeMismatch, n1, n1, n2, n2)
}

// FromEBModes synthesises the shear field whose E and B modes are the given
// half-plane Fourier grids.
func FromEBModes(e, b *spectral.HalfPlane, side units.Angle) (*ShearMap, error) {
	if e == nil || b == nil {
		return nil, fmt.Errorf("shear from E/B modes: nil mode grid")
	}
	g1, g2, err := spectral.SynthesizeEB(e, b)
	if err != nil {
		return nil, fmt.Errorf("shear from E/B modes: %w", err)
	}
	return newShearMap(g1, g2, side)
}

// Gamma returns copies of both components.
func (s *ShearMap) Gamma() [2]*grid.Grid {
	return [2]*grid.Grid{s.gamma[0].Clone(), s.gamma[1].Clone()}
}

// Component returns a copy of component i (0 for γ1, 1 for γ2).
func (s *ShearMap) Component(i int) (*grid.Grid, error) {
	if i < 0 || i > 1 {
		return nil, fmt.Errorf("shear component %d out of range [0, 1]", i)
	}
	return s.gamma[i].Clone(), nil
}

// Size returns the number of pixels per side.
func (s *ShearMap) Size() int { return s.gamma[0].N }

// SideAngle returns the side length in the map's current unit.
func (s *ShearMap) SideAngle() units.Angle { return s.side.angle() }

// SideAngleDeg returns the side length in degrees.
func (s *ShearMap) SideAngleDeg() float64 { return s.side.deg }

// SetAngularUnits returns the same map with its side angle expressed in unit.
func (s *ShearMap) SetAngularUnits(unit string) (*ShearMap, error) {
	side, err := s.side.withUnit(unit)
	if err != nil {
		return nil, err
	}
	return &ShearMap{gamma: s.gamma, side: side}, nil
}

// Decompose returns the EE, BB and EB power spectra over the multipole edges.
// With keepFourier set the rotated E and B Fourier grids are returned too.
func (s *ShearMap) Decompose(edges []float64, keepFourier bool) (spectral.EBSpectra, error) {
	return spectral.DecomposeEB(s.gamma[0], s.gamma[1], units.Degrees(s.side.deg), edges, keepFourier)
}

// Convergence reconstructs κ with the Kaiser-Squires inversion. The result
// is a new map over the same patch.
func (s *ShearMap) Convergence() (*ConvergenceMap, error) {
	kappa, err := spectral.KaiserSquires(s.gamma[0], s.gamma[1])
	if err != nil {
		return nil, fmt.Errorf("kaiser-squires: %w", err)
	}
	return &ConvergenceMap{kappa: kappa, side: s.side, cache: &derivativeCache{}}, nil
}
