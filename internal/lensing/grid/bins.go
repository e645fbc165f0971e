package grid

import (
	"fmt"
	"math"
	"sort"
)

// ValidateEdges checks that edges describe at least one bin: two or more
// finite values in strictly increasing order.
func ValidateEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("%w: need at least 2 edges, got %d", ErrInvalidBinning, len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return fmt.Errorf("%w: edge %d is not finite (%v)", ErrInvalidBinning, i, e)
		}
		if i > 0 && e <= edges[i-1] {
			return fmt.Errorf("%w: edges must be strictly increasing, edge %d (%g) <= edge %d (%g)", ErrInvalidBinning, i, e, i-1, edges[i-1])
		}
	}
	return nil
}

// Centers returns the midpoint of each bin.
func Centers(edges []float64) []float64 {
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = 0.5 * (edges[i] + edges[i+1])
	}
	return c
}

// Widths returns the width of each bin.
func Widths(edges []float64) []float64 {
	w := make([]float64, len(edges)-1)
	for i := range w {
		w[i] = edges[i+1] - edges[i]
	}
	return w
}

// Locate returns the bin index holding v, or -1 when v falls outside the
// edges. Bins are half-open [e_i, e_i+1) except the last, which also
// includes its right edge.
func Locate(edges []float64, v float64) int {
	last := len(edges) - 1
	if v < edges[0] || v > edges[last] || math.IsNaN(v) {
		return -1
	}
	if v == edges[last] {
		return last - 1
	}
	// first edge strictly greater than v
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > v })
	return i - 1
}

// Arange returns start, start+step, ... while the value is below stop,
// matching numpy.arange for positive steps. Each value is computed as
// start+i*step so long ranges do not accumulate rounding error.
func Arange(start, stop, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: step must be finite and positive, got %g", ErrInvalidBinning, step)
	}
	if !(stop > start) {
		return nil, fmt.Errorf("%w: stop (%g) must exceed start (%g)", ErrInvalidBinning, stop, start)
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}
