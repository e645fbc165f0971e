// Package fitsmap loads and saves lensing maps as FITS images. The map
// occupies the primary HDU as a square 2-D image, and the side angle in
// degrees is stored in the ANGLE header card.
package fitsmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/lensmap/internal/lensing"
	"github.com/banshee-data/lensmap/internal/lensing/grid"
	"github.com/banshee-data/lensmap/internal/monitoring"
	"github.com/banshee-data/lensmap/internal/units"
)

var (
	// ErrNotImage is returned when the primary HDU is not a 2-D image.
	ErrNotImage = errors.New("primary HDU is not a 2-D image")
	// ErrMissingAngle is returned when the ANGLE card is absent or not numeric.
	ErrMissingAngle = errors.New("missing ANGLE header card")
	// ErrAngleMismatch is returned when the two files of a shear map disagree
	// on the side angle.
	ErrAngleMismatch = errors.New("shear components have different ANGLE")
)

// AngleKey is the header card holding the side angle in degrees.
const AngleKey = "ANGLE"

// image is a decoded primary HDU.
type image struct {
	g        *grid.Grid
	angleDeg float64
}

func readImage(path string) (image, error) {
	r, err := os.Open(path)
	if err != nil {
		return image{}, err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return image{}, fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return image{}, fmt.Errorf("%s: %w", path, ErrNotImage)
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return image{}, fmt.Errorf("%s: %w: NAXIS=%d", path, ErrNotImage, len(axes))
	}
	if axes[0] != axes[1] {
		return image{}, fmt.Errorf("%s: %w: image is %dx%d", path, grid.ErrShapeMismatch, axes[0], axes[1])
	}

	angle, err := cardFloat(hdr, AngleKey)
	if err != nil {
		return image{}, fmt.Errorf("%s: %w", path, err)
	}

	bscale, bzero := 1.0, 0.0
	if v, err := cardFloat(hdr, "BSCALE"); err == nil {
		bscale = v
	}
	if v, err := cardFloat(hdr, "BZERO"); err == nil {
		bzero = v
	}

	data, err := decode(img.Raw(), hdr.Bitpix(), axes[0]*axes[1])
	if err != nil {
		return image{}, fmt.Errorf("%s: %w", path, err)
	}
	if bscale != 1 || bzero != 0 {
		for i, v := range data {
			data[i] = bzero + bscale*v
		}
	}

	g, err := grid.New(axes[0], data)
	if err != nil {
		return image{}, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("fitsmap: read %s (%dx%d, BITPIX %d, %s = %g deg)", path, axes[0], axes[1], hdr.Bitpix(), AngleKey, angle)
	return image{g: g, angleDeg: angle}, nil
}

// cardFloat returns a numeric header value.
func cardFloat(hdr *fitsio.Header, key string) (float64, error) {
	card := hdr.Get(key)
	if card == nil {
		if key == AngleKey {
			return 0, ErrMissingAngle
		}
		return 0, fmt.Errorf("missing %s header card", key)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	}
	if key == AngleKey {
		return 0, fmt.Errorf("%w: value %v is not numeric", ErrMissingAngle, card.Value)
	}
	return 0, fmt.Errorf("%s header card %v is not numeric", key, card.Value)
}

// decode converts big-endian FITS pixel data to float64.
func decode(raw []byte, bitpix, n int) ([]float64, error) {
	size := int(math.Abs(float64(bitpix))) / 8
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	if len(raw) < n*size {
		return nil, fmt.Errorf("image data truncated: %d bytes for %d pixels of BITPIX %d", len(raw), n, bitpix)
	}

	out := make([]float64, n)
	be := binary.BigEndian
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch bitpix {
		case 8:
			out[i] = float64(b[0])
		case 16:
			out[i] = float64(int16(be.Uint16(b)))
		case 32:
			out[i] = float64(int32(be.Uint32(b)))
		case 64:
			out[i] = float64(int64(be.Uint64(b)))
		case -32:
			out[i] = float64(math.Float32frombits(be.Uint32(b)))
		case -64:
			out[i] = math.Float64frombits(be.Uint64(b))
		}
	}
	return out, nil
}

// LoadConvergence reads a convergence map from a FITS file.
func LoadConvergence(path string) (*lensing.ConvergenceMap, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}
	return lensing.NewConvergenceMap(img.g, units.Degrees(img.angleDeg))
}

// LoadShear reads the two shear components from one file each. Both files
// must carry the same ANGLE.
func LoadShear(path1, path2 string) (*lensing.ShearMap, error) {
	a, err := readImage(path1)
	if err != nil {
		return nil, err
	}
	b, err := readImage(path2)
	if err != nil {
		return nil, err
	}
	if a.angleDeg != b.angleDeg {
		return nil, fmt.Errorf("%w: %s has %g, %s has %g", ErrAngleMismatch, path1, a.angleDeg, path2, b.angleDeg)
	}
	return lensing.NewShearMap(a.g, b.g, units.Degrees(a.angleDeg))
}

func writeImage(path string, g *grid.Grid, angleDeg float64, comment string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	img := fitsio.NewImage(-64, []int{g.N, g.N})
	defer img.Close()

	if err := img.Header().Append(
		fitsio.Card{Name: AngleKey, Value: angleDeg, Comment: "side angle [deg]"},
		fitsio.Card{Name: "CONTENT", Value: comment},
	); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	data := append([]float64(nil), g.Data...)
	if err := img.Write(&data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Write(img); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("fitsmap: wrote %s (%dx%d)", path, g.N, g.N)
	return nil
}

// SaveConvergence writes m as a BITPIX -64 image.
func SaveConvergence(path string, m *lensing.ConvergenceMap) error {
	return writeImage(path, m.Kappa(), m.SideAngleDeg(), "convergence")
}

// SaveShear writes the two components of s to path1 and path2.
func SaveShear(path1, path2 string, s *lensing.ShearMap) error {
	gamma := s.Gamma()
	if err := writeImage(path1, gamma[0], s.SideAngleDeg(), "shear gamma1"); err != nil {
		return err
	}
	return writeImage(path2, gamma[1], s.SideAngleDeg(), "shear gamma2")
}
