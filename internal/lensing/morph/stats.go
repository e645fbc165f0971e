package morph

import (
	"math"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
)

// PDF is a binned probability density of field values.
type PDF struct {
	Nu      []float64
	Density []float64
}

// Minkowski holds the three Minkowski functionals evaluated at the centres
// of the threshold bins.
type Minkowski struct {
	Nu []float64
	V0 []float64
	V1 []float64
	V2 []float64
}

// PeakCounts holds the number of local maxima per threshold bin.
type PeakCounts struct {
	Nu     []float64
	Counts []float64
}

// Peak is a single local maximum.
type Peak struct {
	X, Y  int
	Value float64 // in threshold units (ν when normalised)
}

// ValuePDF histograms the field values over thresholds. The density is
// normalised over the in-range samples, so it integrates to one whenever
// at least one sample falls inside the edges.
func ValuePDF(g *grid.Grid, thresholds []float64, norm bool) (PDF, error) {
	if err := grid.ValidateEdges(thresholds); err != nil {
		return PDF{}, err
	}
	scale, err := Scale(g, norm)
	if err != nil {
		return PDF{}, err
	}

	counts := make([]float64, len(thresholds)-1)
	inRange := 0
	for _, v := range g.Data {
		if bin := grid.Locate(thresholds, v/scale); bin >= 0 {
			counts[bin]++
			inRange++
		}
	}
	density := make([]float64, len(counts))
	if inRange > 0 {
		for i, w := range grid.Widths(thresholds) {
			density[i] = counts[i] / (float64(inRange) * w)
		}
	}
	return PDF{Nu: grid.Centers(thresholds), Density: density}, nil
}

// Functionals computes V0, V1 and V2 of g from its derivatives d.
//
// V0(ν) is the area fraction with value ≥ ν. V1 and V2 use a binned delta
// function at the level set: pixels whose value falls in bin i contribute
// |∇f| / (4 Npix Δν) to V1 and the level-set curvature
// (2 fx fy fxy - fx² fyy - fy² fxx) / |∇f|² / (2π Npix Δν) to V2.
func Functionals(g *grid.Grid, d Derivatives, thresholds []float64, norm bool) (Minkowski, error) {
	if err := grid.ValidateEdges(thresholds); err != nil {
		return Minkowski{}, err
	}
	if err := d.matches(g); err != nil {
		return Minkowski{}, err
	}
	scale, err := Scale(g, norm)
	if err != nil {
		return Minkowski{}, err
	}

	nu := grid.Centers(thresholds)
	widths := grid.Widths(thresholds)
	bins := len(nu)
	v0 := make([]float64, bins)
	v1 := make([]float64, bins)
	v2 := make([]float64, bins)

	npix := float64(g.Len())
	for i, raw := range g.Data {
		v := raw / scale
		for b, level := range nu {
			if v >= level {
				v0[b]++
			}
		}

		b := grid.Locate(thresholds, v)
		if b < 0 {
			continue
		}
		gx := d.GradX.Data[i] / scale
		gy := d.GradY.Data[i] / scale
		mod2 := gx*gx + gy*gy
		if mod2 == 0 {
			continue
		}
		hxx := d.HessXX.Data[i] / scale
		hyy := d.HessYY.Data[i] / scale
		hxy := d.HessXY.Data[i] / scale

		v1[b] += math.Sqrt(mod2)
		v2[b] += (2*gx*gy*hxy - gx*gx*hyy - gy*gy*hxx) / mod2
	}

	for b := range nu {
		v0[b] /= npix
		v1[b] /= 4 * npix * widths[b]
		v2[b] /= 2 * math.Pi * npix * widths[b]
	}
	return Minkowski{Nu: nu, V0: v0, V1: v1, V2: v2}, nil
}

// isPeak reports whether (x, y) is strictly greater than its eight
// periodic neighbours.
func isPeak(g *grid.Grid, x, y int) bool {
	c := g.At(x, y)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.Wrap(x+dx, y+dy) >= c {
				return false
			}
		}
	}
	return true
}

// LocatePeaks returns every local maximum whose value falls inside the
// thresholds, in row-major order.
func LocatePeaks(g *grid.Grid, thresholds []float64, norm bool) ([]Peak, error) {
	if err := grid.ValidateEdges(thresholds); err != nil {
		return nil, err
	}
	scale, err := Scale(g, norm)
	if err != nil {
		return nil, err
	}
	var peaks []Peak
	for y := 0; y < g.N; y++ {
		for x := 0; x < g.N; x++ {
			if !isPeak(g, x, y) {
				continue
			}
			v := g.At(x, y) / scale
			if grid.Locate(thresholds, v) < 0 {
				continue
			}
			peaks = append(peaks, Peak{X: x, Y: y, Value: v})
		}
	}
	return peaks, nil
}

// CountPeaks histograms the local maxima of g over thresholds.
func CountPeaks(g *grid.Grid, thresholds []float64, norm bool) (PeakCounts, error) {
	peaks, err := LocatePeaks(g, thresholds, norm)
	if err != nil {
		return PeakCounts{}, err
	}
	counts := make([]float64, len(thresholds)-1)
	for _, p := range peaks {
		counts[grid.Locate(thresholds, p.Value)]++
	}
	return PeakCounts{Nu: grid.Centers(thresholds), Counts: counts}, nil
}
