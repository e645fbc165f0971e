package units

import (
	"fmt"
	"math"
)

// Angle is a linear angular size tagged with its unit.
type Angle struct {
	Value float64
	Unit  string
}

// Degrees returns an Angle of v degrees.
func Degrees(v float64) Angle { return Angle{Value: v, Unit: Degree} }

// Arcseconds returns an Angle of v arcseconds.
func Arcseconds(v float64) Angle { return Angle{Value: v, Unit: Arcsecond} }

// Radians returns an Angle of v radians.
func Radians(v float64) Angle { return Angle{Value: v, Unit: Radian} }

// In re-expresses the angle in another unit. The numeric content is
// unchanged apart from the unit factor.
func (a Angle) In(unit string) (Angle, error) {
	v, err := Convert(a.Value, a.Unit, unit)
	if err != nil {
		return Angle{}, err
	}
	return Angle{Value: v, Unit: unit}, nil
}

// Deg returns the angle in degrees.
func (a Angle) Deg() (float64, error) {
	return ToDegrees(a.Value, a.Unit)
}

// Rad returns the angle in radians.
func (a Angle) Rad() (float64, error) {
	return Convert(a.Value, a.Unit, Radian)
}

// Validate reports whether the angle is a usable side length: known unit,
// finite and strictly positive.
func (a Angle) Validate() error {
	if !IsValid(a.Unit) {
		return fmt.Errorf("%w: %q", ErrUnsupportedUnit, a.Unit)
	}
	if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) || a.Value <= 0 {
		return fmt.Errorf("angle must be finite and positive, got %g %s", a.Value, a.Unit)
	}
	return nil
}

func (a Angle) String() string {
	return fmt.Sprintf("%g %s", a.Value, a.Unit)
}
