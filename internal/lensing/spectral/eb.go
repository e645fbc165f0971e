package spectral

import (
	"fmt"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/units"
)

// EBSpectra is the binned output of an E/B decomposition. E and B hold the
// rotated Fourier coefficients and are only set when requested.
type EBSpectra struct {
	L  []float64
	EE []float64
	BB []float64
	EB []float64

	E *HalfPlane
	B *HalfPlane
}

// Rotation returns cos 2φ and sin 2φ for every half-plane cell of an n×n
// grid, φ being the direction of the wave vector. Both are 0 at k = 0,
// where the angle is undefined.
func Rotation(n int) (cos2, sin2 []float64) {
	cols := n/2 + 1
	cos2 = make([]float64, n*cols)
	sin2 = make([]float64, n*cols)
	for ky := 0; ky < n; ky++ {
		fy := float64(Freq(ky, n))
		for kx := 0; kx < cols; kx++ {
			fx := float64(kx)
			k2 := fx*fx + fy*fy
			if k2 == 0 {
				continue
			}
			cos2[ky*cols+kx] = (fx*fx - fy*fy) / k2
			sin2[ky*cols+kx] = 2 * fx * fy / k2
		}
	}
	return cos2, sin2
}

// RotateEB turns the Fourier transforms of γ1 and γ2 into E and B modes:
// E = γ1 cos2φ + γ2 sin2φ, B = -γ1 sin2φ + γ2 cos2φ.
func RotateEB(f1, f2 *HalfPlane) (e, b *HalfPlane, err error) {
	if err := f1.validate(); err != nil {
		return nil, nil, err
	}
	if !f1.SameShape(f2) {
		return nil, nil, fmt.Errorf("E/B rotation: %w", grid.ErrShapeMismatch)
	}
	cos2, sin2 := Rotation(f1.N)
	e = NewHalfPlane(f1.N)
	b = NewHalfPlane(f1.N)
	for i := range f1.Data {
		c, s := complex(cos2[i], 0), complex(sin2[i], 0)
		e.Data[i] = f1.Data[i]*c + f2.Data[i]*s
		b.Data[i] = -f1.Data[i]*s + f2.Data[i]*c
	}
	return e, b, nil
}

// DecomposeEB computes the E and B mode power spectra of a shear field and
// their cross spectrum over the multipole edges.
func DecomposeEB(g1, g2 *grid.Grid, side units.Angle, edges []float64, keepFourier bool) (EBSpectra, error) {
	if !g1.SameShape(g2) {
		return EBSpectra{}, fmt.Errorf("E/B decomposition: %w", grid.ErrShapeMismatch)
	}
	bins, err := newMultipoleBins(g1.N, side, edges)
	if err != nil {
		return EBSpectra{}, err
	}
	e, b, err := RotateEB(Forward(g1), Forward(g2))
	if err != nil {
		return EBSpectra{}, err
	}
	ee := binnedPower(e, bins)
	out := EBSpectra{
		L:  ee.L,
		EE: ee.P,
		BB: binnedPower(b, bins).P,
		EB: binnedCross(e, b, bins).P,
	}
	if keepFourier {
		out.E, out.B = e, b
	}
	return out, nil
}

// SynthesizeEB builds the two shear components whose E and B modes are the
// given Fourier grids: γ1 = E cos2φ - B sin2φ, γ2 = E sin2φ + B cos2φ.
func SynthesizeEB(e, b *HalfPlane) (g1, g2 *grid.Grid, err error) {
	if err := e.validate(); err != nil {
		return nil, nil, err
	}
	if !e.SameShape(b) {
		return nil, nil, fmt.Errorf("E/B synthesis: %w", grid.ErrShapeMismatch)
	}
	cos2, sin2 := Rotation(e.N)
	f1 := NewHalfPlane(e.N)
	f2 := NewHalfPlane(e.N)
	for i := range e.Data {
		c, s := complex(cos2[i], 0), complex(sin2[i], 0)
		f1.Data[i] = e.Data[i]*c - b.Data[i]*s
		f2.Data[i] = e.Data[i]*s + b.Data[i]*c
	}
	if g1, err = Inverse(f1); err != nil {
		return nil, nil, err
	}
	if g2, err = Inverse(f2); err != nil {
		return nil, nil, err
	}
	return g1, g2, nil
}

// KaiserSquires reconstructs the convergence from the two shear components:
// κ(k) = cos2φ γ1(k) + sin2φ γ2(k), with the k = 0 mode set to zero. The
// inversion carries no extra scale factor, so a shear synthesised from an E
// grid reconstructs exactly to Inverse(E) with its mean removed.
func KaiserSquires(g1, g2 *grid.Grid) (*grid.Grid, error) {
	if !g1.SameShape(g2) {
		return nil, fmt.Errorf("Kaiser-Squires: %w", grid.ErrShapeMismatch)
	}
	kappa, _, err := RotateEB(Forward(g1), Forward(g2))
	if err != nil {
		return nil, err
	}
	kappa.Data[0] = 0
	return Inverse(kappa)
}
