// Package spectral implements the 2D Fourier bookkeeping behind the lensing
// estimators: real-input transforms on the half-plane layout, multipole
// binning, auto/cross power spectra and the E/B rotation used for shear
// decomposition, synthesis and Kaiser-Squires reconstruction.
//
// Transforms follow numpy conventions: Forward is unnormalised (rfft2) and
// Inverse carries the 1/N² factor (irfft2).
package spectral

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
)

// Forward returns the 2D DFT of g in half-plane form. Rows are transformed
// with a real FFT along x, then every retained column with a complex FFT
// along y.
func Forward(g *grid.Grid) *HalfPlane {
	n := g.N
	h := NewHalfPlane(n)
	cols := h.Cols

	rowFFT := fourier.NewFFT(n)
	coeff := make([]complex128, cols)
	for y := 0; y < n; y++ {
		rowFFT.Coefficients(coeff, g.Data[y*n:(y+1)*n])
		copy(h.Data[y*cols:(y+1)*cols], coeff)
	}

	colFFT := fourier.NewCmplxFFT(n)
	col := make([]complex128, n)
	out := make([]complex128, n)
	for kx := 0; kx < cols; kx++ {
		for y := 0; y < n; y++ {
			col[y] = h.Data[y*cols+kx]
		}
		colFFT.Coefficients(out, col)
		for ky := 0; ky < n; ky++ {
			h.Data[ky*cols+kx] = out[ky]
		}
	}
	return h
}

// Inverse transforms a half plane back to a real grid, normalised so that
// Inverse(Forward(g)) == g. The imaginary parts of the self-conjugate cells
// (kx = 0 and, for even N, kx = N/2) are discarded by the real transform.
func Inverse(h *HalfPlane) (*grid.Grid, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	n, cols := h.N, h.Cols
	tmp := make([]complex128, len(h.Data))

	colFFT := fourier.NewCmplxFFT(n)
	col := make([]complex128, n)
	out := make([]complex128, n)
	for kx := 0; kx < cols; kx++ {
		for ky := 0; ky < n; ky++ {
			col[ky] = h.Data[ky*cols+kx]
		}
		colFFT.Sequence(out, col)
		for y := 0; y < n; y++ {
			tmp[y*cols+kx] = out[y]
		}
	}

	g := grid.Zeros(n)
	rowFFT := fourier.NewFFT(n)
	row := make([]float64, n)
	scale := 1 / float64(n*n)
	for y := 0; y < n; y++ {
		rowFFT.Sequence(row, tmp[y*cols:(y+1)*cols])
		for x, v := range row {
			g.Data[y*n+x] = v * scale
		}
	}
	return g, nil
}
