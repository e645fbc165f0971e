package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/units"
)

// Spectrum is a binned angular power spectrum: P[i] is the power at
// multipole L[i], the centre of the i-th input bin.
type Spectrum struct {
	L []float64
	P []float64
}

// Multipoles returns the physical multipole ℓ = 2π|k|/L of every half-plane
// cell for an n×n grid of side sideRad radians.
func Multipoles(n int, sideRad float64) []float64 {
	cols := n/2 + 1
	ell := make([]float64, n*cols)
	for ky := 0; ky < n; ky++ {
		fy := float64(Freq(ky, n))
		for kx := 0; kx < cols; kx++ {
			fx := float64(kx)
			ell[ky*cols+kx] = 2 * math.Pi * math.Hypot(fx, fy) / sideRad
		}
	}
	return ell
}

// Normalization is the factor turning |F|² of an unnormalised DFT into a
// resolution-independent power spectrum: L²/N⁴ with L in radians.
func Normalization(n int, sideRad float64) float64 {
	nf := float64(n)
	return sideRad * sideRad / (nf * nf * nf * nf)
}

// multipoleBins assigns each half-plane cell to an ℓ bin (-1 when outside
// the edges) and counts the cells per bin.
type multipoleBins struct {
	edges  []float64
	index  []int
	counts []int
	norm   float64
}

func newMultipoleBins(n int, side units.Angle, edges []float64) (*multipoleBins, error) {
	if err := grid.ValidateEdges(edges); err != nil {
		return nil, err
	}
	if err := side.Validate(); err != nil {
		return nil, err
	}
	sideRad, err := side.Rad()
	if err != nil {
		return nil, err
	}
	ell := Multipoles(n, sideRad)
	b := &multipoleBins{
		edges:  edges,
		index:  make([]int, len(ell)),
		counts: make([]int, len(edges)-1),
		norm:   Normalization(n, sideRad),
	}
	for i, l := range ell {
		bin := grid.Locate(edges, l)
		b.index[i] = bin
		if bin >= 0 {
			b.counts[bin]++
		}
	}
	return b, nil
}

// average returns the normalised per-bin mean of value(cell). Bins without
// any cell are reported as 0.
func (b *multipoleBins) average(value func(cell int) float64) Spectrum {
	sums := make([]float64, len(b.counts))
	for cell, bin := range b.index {
		if bin < 0 {
			continue
		}
		sums[bin] += value(cell)
	}
	p := make([]float64, len(sums))
	for i, s := range sums {
		if b.counts[i] > 0 {
			p[i] = s / float64(b.counts[i]) * b.norm
		}
	}
	return Spectrum{L: grid.Centers(b.edges), P: p}
}

// PowerSpectrum estimates the auto power spectrum of g over the multipole
// edges.
func PowerSpectrum(g *grid.Grid, side units.Angle, edges []float64) (Spectrum, error) {
	bins, err := newMultipoleBins(g.N, side, edges)
	if err != nil {
		return Spectrum{}, err
	}
	return binnedPower(Forward(g), bins), nil
}

// binnedPower bins |F|² of an already transformed field.
func binnedPower(h *HalfPlane, bins *multipoleBins) Spectrum {
	return bins.average(func(cell int) float64 {
		v := h.Data[cell]
		return real(v)*real(v) + imag(v)*imag(v)
	})
}

// CrossSpectrum estimates the cross power spectrum Re(Fa conj(Fb)) of two
// grids of the same size.
func CrossSpectrum(a, b *grid.Grid, side units.Angle, edges []float64) (Spectrum, error) {
	if !a.SameShape(b) {
		return Spectrum{}, fmt.Errorf("cross spectrum: %w", grid.ErrShapeMismatch)
	}
	bins, err := newMultipoleBins(a.N, side, edges)
	if err != nil {
		return Spectrum{}, err
	}
	return binnedCross(Forward(a), Forward(b), bins), nil
}

func binnedCross(fa, fb *HalfPlane, bins *multipoleBins) Spectrum {
	return bins.average(func(cell int) float64 {
		return real(fa.Data[cell] * cmplx.Conj(fb.Data[cell]))
	})
}
