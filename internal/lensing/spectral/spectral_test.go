package spectral

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/units"
)

func randomGrid(t *testing.T, n int, seed uint64) *grid.Grid {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := grid.Zeros(n)
	for i := range g.Data {
		g.Data[i] = r.NormFloat64()
	}
	return g
}

// bandLimited is a sum of a few plane waves away from the Nyquist row and
// column, so every rotation of its transform is exactly representable.
func bandLimited(n int) *grid.Grid {
	g := grid.Zeros(n)
	nf := float64(n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			fx, fy := float64(x), float64(y)
			v := 0.3 +
				math.Cos(2*math.Pi*(2*fx+3*fy)/nf) +
				0.5*math.Sin(2*math.Pi*(5*fx-fy)/nf) +
				0.2*math.Cos(2*math.Pi*7*fy/nf)
			g.Set(x, y, v)
		}
	}
	return g
}

func naiveDFT(g *grid.Grid, ky, kx int) complex128 {
	n := g.N
	var sum complex128
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			phase := -2 * math.Pi * float64(ky*y+kx*x) / float64(n)
			sum += complex(g.At(x, y), 0) * cmplx.Exp(complex(0, phase))
		}
	}
	return sum
}

func TestFreq(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, -3, -2, -1}, []int{Freq(0, 6), Freq(1, 6), Freq(2, 6), Freq(3, 6), Freq(4, 6), Freq(5, 6)})
	assert.Equal(t, []int{0, 1, 2, -2, -1}, []int{Freq(0, 5), Freq(1, 5), Freq(2, 5), Freq(3, 5), Freq(4, 5)})
}

func TestForwardMatchesNaiveDFT(t *testing.T) {
	for _, n := range []int{4, 5, 6} {
		g := randomGrid(t, n, uint64(n))
		h := Forward(g)
		require.Equal(t, n/2+1, h.Cols)
		for ky := 0; ky < n; ky++ {
			for kx := 0; kx < h.Cols; kx++ {
				want := naiveDFT(g, ky, kx)
				got := h.At(ky, kx)
				assert.InDelta(t, real(want), real(got), 1e-9, "n=%d re(%d,%d)", n, ky, kx)
				assert.InDelta(t, imag(want), imag(got), 1e-9, "n=%d im(%d,%d)", n, ky, kx)
			}
		}
		// the omitted half is the conjugate mirror
		for ky := 0; ky < n; ky++ {
			for kx := -(n - 1) / 2; kx < 0; kx++ {
				want := naiveDFT(g, ky, (kx+n)%n)
				got := h.Full(ky, kx)
				assert.InDelta(t, real(want), real(got), 1e-9)
				assert.InDelta(t, imag(want), imag(got), 1e-9)
			}
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	for _, n := range []int{8, 7, 32} {
		g := randomGrid(t, n, 42)
		back, err := Inverse(Forward(g))
		require.NoError(t, err)
		if diff := cmp.Diff(g.Data, back.Data, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("n=%d round trip mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestInverseRejectsBadShape(t *testing.T) {
	_, err := Inverse(&HalfPlane{N: 4, Cols: 2, Data: make([]complex128, 8)})
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
	_, err = Inverse(nil)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestHalfPlaneFromRows(t *testing.T) {
	rows := make([][]complex128, 4)
	for i := range rows {
		rows[i] = make([]complex128, 3)
	}
	rows[1][2] = 2 + 1i
	h, err := HalfPlaneFromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, 2+1i, h.At(1, 2))
	// mirror of (1, 2) is (-1, -2) -> row 3
	assert.Equal(t, 2-1i, h.Full(3, -2))

	rows[2] = rows[2][:2]
	_, err = HalfPlaneFromRows(rows)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestMultipoles(t *testing.T) {
	side := 2 * math.Pi / 100 // one fundamental mode = ℓ of 100
	ell := Multipoles(4, side)
	cols := 3
	assert.InDelta(t, 0, ell[0], 1e-12)
	assert.InDelta(t, 100, ell[0*cols+1], 1e-9)
	assert.InDelta(t, 200, ell[0*cols+2], 1e-9)
	assert.InDelta(t, 100, ell[3*cols+0], 1e-9) // ky=3 is frequency -1
	assert.InDelta(t, 100*math.Sqrt2, ell[1*cols+1], 1e-9)
}

func TestPowerSpectrumScaling(t *testing.T) {
	g := randomGrid(t, 32, 7)
	side := units.Degrees(3.5)
	edges, err := grid.Arange(100, 5000, 250)
	require.NoError(t, err)

	base, err := PowerSpectrum(g, side, edges)
	require.NoError(t, err)
	require.Len(t, base.L, len(edges)-1)
	require.Len(t, base.P, len(edges)-1)

	const c = -3.0
	scaled, err := PowerSpectrum(g.Scale(c), side, edges)
	require.NoError(t, err)
	for i := range base.P {
		assert.InDelta(t, c*c*base.P[i], scaled.P[i], 1e-9*math.Max(1, scaled.P[i]))
	}
}

func TestPowerSpectrumSideAngleUnits(t *testing.T) {
	g := randomGrid(t, 16, 3)
	edges := []float64{100, 500, 1000, 2000}
	deg, err := PowerSpectrum(g, units.Degrees(2), edges)
	require.NoError(t, err)
	arcsec, err := PowerSpectrum(g, units.Arcseconds(7200), edges)
	require.NoError(t, err)
	if diff := cmp.Diff(deg, arcsec, cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("unit re-expression changed the spectrum (-deg +arcsec):\n%s", diff)
	}
}

func TestPowerSpectrumSingleMode(t *testing.T) {
	const n = 32
	sideRad := 2 * math.Pi / 100 // fundamental ℓ = 100
	g := grid.Zeros(n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			g.Set(x, y, math.Cos(2*math.Pi*3*float64(x)/n))
		}
	}
	edges := []float64{50, 150, 250, 350, 450}
	ps, err := PowerSpectrum(g, units.Radians(sideRad), edges)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300, 400}, ps.L)
	for i, p := range ps.P {
		if i == 2 {
			assert.Greater(t, p, 0.0)
			continue
		}
		assert.InDelta(t, 0, p, 1e-20, "bin %d", i)
	}
	// |F|² at (0, 3) is (N²/2)², normalised by L²/N⁴ and averaged over
	// every cell of the bin; only that one cell carries power.
	cells := 0
	for ky := 0; ky < n; ky++ {
		for kx := 0; kx <= n/2; kx++ {
			l := 100 * math.Hypot(float64(kx), float64(Freq(ky, n)))
			if l >= 250 && l < 350 {
				cells++
			}
		}
	}
	want := sideRad * sideRad / 4 / float64(cells)
	assert.InDelta(t, want, ps.P[2], 1e-12*want)
}

func TestCrossWithSelfIsAuto(t *testing.T) {
	g := randomGrid(t, 32, 11)
	side := units.Degrees(1.95)
	edges, _ := grid.Arange(200, 20000, 600)

	auto, err := PowerSpectrum(g, side, edges)
	require.NoError(t, err)
	cross, err := CrossSpectrum(g, g, side, edges)
	require.NoError(t, err)
	if diff := cmp.Diff(auto, cross, cmpopts.EquateApprox(1e-12, 1e-300)); diff != "" {
		t.Errorf("cross(a,a) != auto(a) (-auto +cross):\n%s", diff)
	}
}

func TestSpectrumErrors(t *testing.T) {
	g := randomGrid(t, 8, 1)
	side := units.Degrees(1)

	_, err := PowerSpectrum(g, side, []float64{1})
	assert.ErrorIs(t, err, grid.ErrInvalidBinning)
	_, err = PowerSpectrum(g, side, []float64{3, 2})
	assert.ErrorIs(t, err, grid.ErrInvalidBinning)
	_, err = CrossSpectrum(g, randomGrid(t, 16, 1), side, []float64{1, 2})
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
	_, err = PowerSpectrum(g, units.Angle{Value: 1, Unit: "furlong"}, []float64{1, 2})
	assert.ErrorIs(t, err, units.ErrUnsupportedUnit)
	_, err = PowerSpectrum(g, units.Degrees(0), []float64{1, 2})
	assert.Error(t, err)
}

func TestRotationAtOrigin(t *testing.T) {
	cos2, sin2 := Rotation(8)
	assert.Equal(t, 0.0, cos2[0])
	assert.Equal(t, 0.0, sin2[0])
	cols := 5
	// pure x wave vector: φ = 0
	assert.InDelta(t, 1, cos2[0*cols+2], 1e-15)
	// pure y wave vector: φ = 90°
	assert.InDelta(t, -1, cos2[2*cols+0], 1e-15)
	// diagonal: φ = 45°
	assert.InDelta(t, 1, sin2[1*cols+1], 1e-15)
	for i := range cos2 {
		if i == 0 {
			continue
		}
		assert.InDelta(t, 1, cos2[i]*cos2[i]+sin2[i]*sin2[i], 1e-12)
	}
}

type injection struct{ ky, kx int }

func injectModes(n int, modes []injection, amp complex128) *HalfPlane {
	h := NewHalfPlane(n)
	for _, m := range modes {
		h.Set(m.ky, m.kx, amp)
	}
	return h
}

func TestEBRoundTripPureE(t *testing.T) {
	const n = 64
	modes := []injection{{0, 10}, {10, 10}, {n - 6, 4}}
	pureE := injectModes(n, modes, 2)
	pureB := NewHalfPlane(n)

	g1, g2, err := SynthesizeEB(pureE, pureB)
	require.NoError(t, err)

	edges, _ := grid.Arange(100, 4000, 100)
	out, err := DecomposeEB(g1, g2, units.Degrees(1.95), edges, true)
	require.NoError(t, err)
	require.NotNil(t, out.E)
	require.NotNil(t, out.B)

	for i := range out.E.Data {
		assert.InDelta(t, real(pureE.Data[i]), real(out.E.Data[i]), 1e-9)
		assert.InDelta(t, imag(pureE.Data[i]), imag(out.E.Data[i]), 1e-9)
		assert.InDelta(t, 0, cmplx.Abs(out.B.Data[i]), 1e-9)
	}

	assert.Len(t, out.EE, len(edges)-1)
	assert.Len(t, out.BB, len(edges)-1)
	assert.Len(t, out.EB, len(edges)-1)
	var totalEE float64
	for i := range out.EE {
		totalEE += out.EE[i]
		assert.InDelta(t, 0, out.BB[i], 1e-18)
		assert.InDelta(t, 0, out.EB[i], 1e-18)
	}
	assert.Greater(t, totalEE, 0.0)
}

func TestEBRoundTripPureB(t *testing.T) {
	const n = 64
	modes := []injection{{0, 10}, {10, 10}, {n - 6, 4}}
	pureB := injectModes(n, modes, 2)

	g1, g2, err := SynthesizeEB(NewHalfPlane(n), pureB)
	require.NoError(t, err)

	edges, _ := grid.Arange(100, 4000, 100)
	out, err := DecomposeEB(g1, g2, units.Degrees(1.95), edges, false)
	require.NoError(t, err)
	assert.Nil(t, out.E)
	assert.Nil(t, out.B)

	var totalBB float64
	for i := range out.BB {
		totalBB += out.BB[i]
		assert.InDelta(t, 0, out.EE[i], 1e-18)
	}
	assert.Greater(t, totalBB, 0.0)
}

func TestSynthesizeShapeMismatch(t *testing.T) {
	_, _, err := SynthesizeEB(NewHalfPlane(8), NewHalfPlane(16))
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
	_, err = KaiserSquires(grid.Zeros(8), grid.Zeros(16))
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
	_, err = DecomposeEB(grid.Zeros(8), grid.Zeros(16), units.Degrees(1), []float64{1, 2}, false)
	assert.ErrorIs(t, err, grid.ErrShapeMismatch)
}

func TestKaiserSquiresRecoversInjectedE(t *testing.T) {
	const n = 32
	kappa := bandLimited(n)
	e := Forward(kappa)

	g1, g2, err := SynthesizeEB(e, NewHalfPlane(n))
	require.NoError(t, err)
	rec, err := KaiserSquires(g1, g2)
	require.NoError(t, err)

	mean, _ := kappa.MeanStd()
	want := make([]float64, len(kappa.Data))
	for i, v := range kappa.Data {
		want[i] = v - mean
	}
	if diff := cmp.Diff(want, rec.Data, cmpopts.EquateApprox(0, 1e-10)); diff != "" {
		t.Errorf("Kaiser-Squires reconstruction mismatch (-want +got):\n%s", diff)
	}
}

func TestKaiserSquiresOfPureBIsZero(t *testing.T) {
	const n = 32
	b := Forward(bandLimited(n))
	g1, g2, err := SynthesizeEB(NewHalfPlane(n), b)
	require.NoError(t, err)
	rec, err := KaiserSquires(g1, g2)
	require.NoError(t, err)
	for _, v := range rec.Data {
		assert.InDelta(t, 0, v, 1e-10)
	}
}
