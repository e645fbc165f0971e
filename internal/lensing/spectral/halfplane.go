package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
)

// HalfPlane holds the non-redundant half of the 2D DFT of a real N×N grid:
// N rows (ky, all frequencies) by N/2+1 columns (kx ≥ 0), row-major.
//
// Row ky holds the signed frequency Freq(ky, N). The omitted columns follow
// from Hermitian symmetry, F(-ky, -kx) = conj(F(ky, kx)); see Full.
type HalfPlane struct {
	N    int
	Cols int
	Data []complex128
}

// NewHalfPlane allocates a zeroed half plane for an n×n real grid.
func NewHalfPlane(n int) *HalfPlane {
	cols := n/2 + 1
	return &HalfPlane{N: n, Cols: cols, Data: make([]complex128, n*cols)}
}

// HalfPlaneFromRows copies an N×(N/2+1) complex array indexed [ky][kx].
func HalfPlaneFromRows(rows [][]complex128) (*HalfPlane, error) {
	n := len(rows)
	if n < 2 {
		return nil, fmt.Errorf("half plane needs at least 2 rows, got %d", n)
	}
	h := NewHalfPlane(n)
	for ky, row := range rows {
		if len(row) != h.Cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", grid.ErrShapeMismatch, ky, len(row), h.Cols)
		}
		copy(h.Data[ky*h.Cols:(ky+1)*h.Cols], row)
	}
	return h, nil
}

// At returns the coefficient at row ky, column kx (0 ≤ kx ≤ N/2).
func (h *HalfPlane) At(ky, kx int) complex128 { return h.Data[ky*h.Cols+kx] }

// Set assigns the coefficient at row ky, column kx.
func (h *HalfPlane) Set(ky, kx int, v complex128) { h.Data[ky*h.Cols+kx] = v }

// Full returns the coefficient for any signed kx in (-N/2, N/2] and any ky,
// reading the stored half directly or its conjugate mirror.
func (h *HalfPlane) Full(ky, kx int) complex128 {
	ky = wrap(ky, h.N)
	if kx >= 0 {
		return h.At(ky, kx)
	}
	return cmplx.Conj(h.At(wrap(-ky, h.N), -kx))
}

// Clone returns a deep copy.
func (h *HalfPlane) Clone() *HalfPlane {
	c := &HalfPlane{N: h.N, Cols: h.Cols, Data: make([]complex128, len(h.Data))}
	copy(c.Data, h.Data)
	return c
}

// SameShape reports whether both half planes describe the same grid size.
func (h *HalfPlane) SameShape(other *HalfPlane) bool {
	return other != nil && h.N == other.N && h.Cols == other.Cols
}

func (h *HalfPlane) validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil half plane", grid.ErrShapeMismatch)
	}
	if h.N < 2 || h.Cols != h.N/2+1 || len(h.Data) != h.N*h.Cols {
		return fmt.Errorf("%w: half plane %dx%d with %d cells, want %dx%d", grid.ErrShapeMismatch, h.N, h.Cols, len(h.Data), h.N, h.N/2+1)
	}
	return nil
}

// Freq maps a DFT index to its signed integer frequency, numpy fftfreq style.
func Freq(i, n int) int {
	if i < (n+1)/2 {
		return i
	}
	return i - n
}

func wrap(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
