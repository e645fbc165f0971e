// Package grid owns the square real-valued sample grids that every lensing
// statistic is computed on, plus the bin-edge rules shared by all
// histogram-style estimators.
//
// Layout: row-major, Data[y*N+x]. The row index is y (first numpy axis) and
// the column index is x. Grids are never resized; operations return new
// grids and leave their operands untouched.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrShapeMismatch is returned when two operands differ in size or side angle.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidBinning is returned for bin edges that are too short,
	// non-increasing or non-finite.
	ErrInvalidBinning = errors.New("invalid binning")
	// ErrDegenerateField is returned when a normalised statistic is
	// requested on a field with zero variance.
	ErrDegenerateField = errors.New("degenerate field: zero variance")
)

// Grid is an N×N array of real samples.
type Grid struct {
	N    int
	Data []float64
}

// New copies data into a new n×n grid.
func New(n int, data []float64) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("grid size must be at least 2, got %d", n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: %d samples for a %dx%d grid", ErrShapeMismatch, len(data), n, n)
	}
	g := Zeros(n)
	copy(g.Data, data)
	return g, nil
}

// Zeros allocates an n×n grid of zeros. It does not validate n.
func Zeros(n int) *Grid {
	return &Grid{N: n, Data: make([]float64, n*n)}
}

// FromRows copies a square [][]float64 (rows indexed by y).
func FromRows(rows [][]float64) (*Grid, error) {
	n := len(rows)
	data := make([]float64, 0, n*n)
	for y, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d (grid must be square)", ErrShapeMismatch, y, len(row), n)
		}
		data = append(data, row...)
	}
	return New(n, data)
}

// Constant returns an n×n grid filled with v.
func Constant(n int, v float64) *Grid {
	g := Zeros(n)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// At returns the sample at column x, row y.
func (g *Grid) At(x, y int) float64 { return g.Data[y*g.N+x] }

// Set assigns the sample at column x, row y.
func (g *Grid) Set(x, y int, v float64) { g.Data[y*g.N+x] = v }

// Wrap returns the sample at (x, y) with periodic boundaries.
func (g *Grid) Wrap(x, y int) float64 {
	return g.Data[mod(y, g.N)*g.N+mod(x, g.N)]
}

// Len returns the number of samples.
func (g *Grid) Len() int { return len(g.Data) }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := Zeros(g.N)
	copy(c.Data, g.Data)
	return c
}

// SameShape reports whether g and other have the same size.
func (g *Grid) SameShape(other *Grid) bool {
	return other != nil && g.N == other.N
}

// Mul returns the elementwise product g*other.
func (g *Grid) Mul(other *Grid) (*Grid, error) {
	if !g.SameShape(other) {
		return nil, fmt.Errorf("%w: %dx%d vs %s", ErrShapeMismatch, g.N, g.N, shapeString(other))
	}
	out := g.Clone()
	floats.Mul(out.Data, other.Data)
	return out, nil
}

// Add returns the elementwise sum g+other.
func (g *Grid) Add(other *Grid) (*Grid, error) {
	if !g.SameShape(other) {
		return nil, fmt.Errorf("%w: %dx%d vs %s", ErrShapeMismatch, g.N, g.N, shapeString(other))
	}
	out := g.Clone()
	floats.Add(out.Data, other.Data)
	return out, nil
}

// Scale returns c*g.
func (g *Grid) Scale(c float64) *Grid {
	out := g.Clone()
	floats.Scale(c, out.Data)
	return out
}

// MeanStd returns the mean and the population standard deviation.
func (g *Grid) MeanStd() (mean, std float64) {
	mean, variance := stat.PopMeanVariance(g.Data, nil)
	return mean, math.Sqrt(variance)
}

// MinMax returns the smallest and largest sample.
func (g *Grid) MinMax() (lo, hi float64) {
	return floats.Min(g.Data), floats.Max(g.Data)
}

// Rows returns a [][]float64 copy indexed [y][x].
func (g *Grid) Rows() [][]float64 {
	rows := make([][]float64, g.N)
	for y := range rows {
		rows[y] = make([]float64, g.N)
		copy(rows[y], g.Data[y*g.N:(y+1)*g.N])
	}
	return rows
}

// Dense returns a copy of the grid as a gonum matrix (rows are y).
func (g *Grid) Dense() *mat.Dense {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return mat.NewDense(g.N, g.N, data)
}

func shapeString(g *Grid) string {
	if g == nil {
		return "nil grid"
	}
	return fmt.Sprintf("%dx%d", g.N, g.N)
}

func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
