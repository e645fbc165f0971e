package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lensmap/internal/lensing/spectral"
	"github.com/banshee-data/lensmap/internal/units"
)

func TestSimplexRangeAndDeterminism(t *testing.T) {
	a, err := Simplex(32, 42, 3, 1, 0.5)
	require.NoError(t, err)
	b, err := Simplex(32, 42, 3, 1, 0.5)
	require.NoError(t, err)
	c, err := Simplex(32, 43, 3, 1, 0.5)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.NotEqual(t, a.Data, c.Data)

	lo, hi := a.MinMax()
	assert.GreaterOrEqual(t, lo, -1.0)
	assert.LessOrEqual(t, hi, 1.0)
	_, sigma := a.MeanStd()
	assert.Greater(t, sigma, 0.0)
}

func TestSimplexIsPeriodic(t *testing.T) {
	const n = 64
	g, err := Simplex(n, 7, 2, 1, 0.5)
	require.NoError(t, err)

	var interior, seam float64
	for y := 0; y < n; y++ {
		for x := 0; x < n-1; x++ {
			interior += math.Abs(g.At(x+1, y) - g.At(x, y))
		}
		seam += math.Abs(g.At(0, y) - g.At(n-1, y))
	}
	interior /= float64(n * (n - 1))
	seam /= float64(n)
	assert.Less(t, seam, 3*interior, "the x seam should be as smooth as the interior")
}

func TestSimplexValidation(t *testing.T) {
	_, err := Simplex(1, 0, 1, 1, 0.5)
	assert.Error(t, err)
	_, err = Simplex(8, 0, 0, 1, 0.5)
	assert.Error(t, err)
	_, err = Simplex(8, 0, 1, 0, 0.5)
	assert.Error(t, err)
	_, err = Simplex(8, 0, 1, 1, math.NaN())
	assert.Error(t, err)
}

func TestGaussianFlatSpectrum(t *testing.T) {
	const n = 128
	const p0 = 2e-9
	side := units.Degrees(10)
	g, err := Gaussian(n, side, func(float64) float64 { return p0 }, 11)
	require.NoError(t, err)

	mean, _ := g.MeanStd()
	assert.InDelta(t, 0, mean, 1e-12)

	ps, err := spectral.PowerSpectrum(g, side, []float64{100, 500, 1000, 2000})
	require.NoError(t, err)
	for i, p := range ps.P {
		assert.InEpsilon(t, p0, p, 0.25, "bin %d at l=%g", i, ps.L[i])
	}
}

func TestGaussianPowerLawSlope(t *testing.T) {
	const n = 128
	side := units.Degrees(10)
	g, err := Gaussian(n, side, PowerLaw(1e-8, 500, -2), 5)
	require.NoError(t, err)

	ps, err := spectral.PowerSpectrum(g, side, []float64{300, 700, 1500, 2200})
	require.NoError(t, err)
	for i := 1; i < len(ps.P); i++ {
		assert.Less(t, ps.P[i], ps.P[i-1], "power must fall with l")
	}
}

func TestModes(t *testing.T) {
	h, err := Modes(16, units.Degrees(2), PowerLaw(1, 100, 0), 3)
	require.NoError(t, err)
	assert.Equal(t, complex128(0), h.At(0, 0))

	// scaling the spectrum by c² scales the field by c
	a, err := Gaussian(16, units.Degrees(2), func(float64) float64 { return 1 }, 9)
	require.NoError(t, err)
	b, err := Gaussian(16, units.Degrees(2), func(float64) float64 { return 4 }, 9)
	require.NoError(t, err)
	for i := range a.Data {
		assert.InDelta(t, 2*a.Data[i], b.Data[i], 1e-9)
	}

	_, err = Modes(16, units.Degrees(-1), PowerLaw(1, 100, 0), 3)
	assert.Error(t, err)
	_, err = Modes(16, units.Degrees(1), func(float64) float64 { return -1 }, 3)
	assert.Error(t, err)
	_, err = Modes(1, units.Degrees(1), PowerLaw(1, 100, 0), 3)
	assert.Error(t, err)

}
