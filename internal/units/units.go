// Package units provides shared constants, validation and conversion for angular units
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Unit constants
const (
	Degree    = "deg"
	Arcminute = "arcmin"
	Arcsecond = "arcsec"
	Radian    = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degree, Arcminute, Arcsecond, Radian}

// ErrUnsupportedUnit is returned when a unit is not a recognised angular unit.
var ErrUnsupportedUnit = errors.New("unsupported angular unit")

// degreesPer maps each unit to the number of degrees in one of that unit.
// Degrees are the canonical storage unit.
var degreesPer = map[string]float64{
	Degree:    1,
	Arcminute: 1.0 / 60.0,
	Arcsecond: 1.0 / 3600.0,
	Radian:    180.0 / math.Pi,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := degreesPer[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToDegrees converts a value expressed in unit to degrees.
func ToDegrees(value float64, unit string) (float64, error) {
	f, ok := degreesPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedUnit, unit, GetValidUnitsString())
	}
	if unit == Degree {
		return value, nil
	}
	return value * f, nil
}

// FromDegrees converts a value in degrees to the target unit.
func FromDegrees(deg float64, unit string) (float64, error) {
	f, ok := degreesPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedUnit, unit, GetValidUnitsString())
	}
	if unit == Degree {
		return deg, nil
	}
	return deg / f, nil
}

// Convert re-expresses value from one unit in another.
func Convert(value float64, from, to string) (float64, error) {
	if from == to {
		if !IsValid(from) {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, from)
		}
		return value, nil
	}
	deg, err := ToDegrees(value, from)
	if err != nil {
		return 0, err
	}
	return FromDegrees(deg, to)
}
