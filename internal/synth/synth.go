// Package synth generates synthetic periodic maps for testing the
// estimators and for the `lensmap synth` command.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/units"
)

// Simplex returns fractal simplex noise in [-1, 1] on an n×n grid. The
// plane is wrapped onto a torus in 4-D noise space so the map is periodic
// in both directions. frequency is the radius of the torus in noise units
// for the first octave.
func Simplex(n int, seed int64, octaves int, frequency, persistence float64) (*grid.Grid, error) {
	switch {
	case n < 2:
		return nil, fmt.Errorf("simplex map size must be at least 2, got %d", n)
	case octaves < 1:
		return nil, fmt.Errorf("octaves must be at least 1, got %d", octaves)
	case !(frequency > 0), !(persistence > 0):
		return nil, fmt.Errorf("frequency and persistence must be positive, got %g and %g", frequency, persistence)
	}

	noise := opensimplex.NewNormalized(seed)
	cx, sx := circle(n)
	g := grid.Zeros(n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := octaveNoise(noise, cx[x], sx[x], cx[y], sx[y], octaves, frequency, persistence)
			g.Set(x, y, 2*v-1)
		}
	}
	return g, nil
}

func circle(n int) (cos, sin []float64) {
	cos, sin = make([]float64, n), make([]float64, n)
	for i := range cos {
		theta := 2 * math.Pi * float64(i) / float64(n)
		cos[i], sin[i] = math.Cos(theta), math.Sin(theta)
	}
	return cos, sin
}

// octaveNoise layers several frequencies of noise sampled on the torus.
func octaveNoise(noise opensimplex.Noise, a, b, c, d float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval4(a*frequency, b*frequency, c*frequency, d*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// PowerFunc gives the target power spectrum at multipole ℓ.
type PowerFunc func(l float64) float64

// Modes draws the half-plane Fourier coefficients of a Gaussian random
// field whose binned power spectrum follows power. The k = 0 mode is zero.
func Modes(n int, side units.Angle, power PowerFunc, seed uint64) (*spectral.HalfPlane, error) {
	if n < 2 {
		return nil, fmt.Errorf("gaussian map size must be at least 2, got %d", n)
	}
	if err := side.Validate(); err != nil {
		return nil, err
	}
	sideRad, err := side.Rad()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	white := grid.Zeros(n)
	for i := range white.Data {
		white.Data[i] = r.NormFloat64()
	}

	// White noise of unit variance has <|F|²> = N². Scaling a mode by
	// N sqrt(P)/L gives <L²|F|²/N⁴> = P under the estimator normalisation.
	h := spectral.Forward(white)
	ell := spectral.Multipoles(n, sideRad)
	for i, l := range ell {
		if l == 0 {
			h.Data[i] = 0
			continue
		}
		p := power(l)
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("power spectrum must be non-negative, got %g at l=%g", p, l)
		}
		h.Data[i] *= complex(float64(n)*math.Sqrt(p)/sideRad, 0)
	}
	return h, nil
}

// Gaussian returns a real-space Gaussian random field with the given power
// spectrum.
func Gaussian(n int, side units.Angle, power PowerFunc, seed uint64) (*grid.Grid, error) {
	h, err := Modes(n, side, power, seed)
	if err != nil {
		return nil, err
	}
	return spectral.Inverse(h)
}

// PowerLaw returns P(ℓ) = amplitude (ℓ/pivot)^index.
func PowerLaw(amplitude, pivot, index float64) PowerFunc {
	return func(l float64) float64 {
		return amplitude * math.Pow(l/pivot, index)
	}
}
