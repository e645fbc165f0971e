package units

import (
	"errors"
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid deg", Degree, true},
		{"valid arcmin", Arcminute, true},
		{"valid arcsec", Arcsecond, true},
		{"valid rad", Radian, true},
		{"invalid unit", "parsec", false},
		{"empty unit", "", false},
		{"uppercase DEG", "DEG", false}, // Case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	result := GetValidUnitsString()
	expected := "deg, arcmin, arcsec, rad"
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		expected float64
	}{
		{"1 deg to arcsec", 1.0, Degree, Arcsecond, 3600.0},
		{"1 deg to arcmin", 1.0, Degree, Arcminute, 60.0},
		{"3.5 deg to deg", 3.5, Degree, Degree, 3.5},
		{"7200 arcsec to deg", 7200.0, Arcsecond, Degree, 2.0},
		{"60 arcsec to arcmin", 60.0, Arcsecond, Arcminute, 1.0},
		{"pi rad to deg", math.Pi, Radian, Degree, 180.0},
		{"180 deg to rad", 180.0, Degree, Radian, math.Pi},
		{"0 deg to arcsec", 0.0, Degree, Arcsecond, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Convert(tt.value, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Convert(%f, %s, %s) returned error: %v", tt.value, tt.from, tt.to, err)
			}
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("Convert(%f, %s, %s) = %f, want %f", tt.value, tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestConvertUnsupported(t *testing.T) {
	for _, pair := range [][2]string{{"lightyear", Degree}, {Degree, "lightyear"}, {"foo", "foo"}} {
		if _, err := Convert(1.0, pair[0], pair[1]); !errors.Is(err, ErrUnsupportedUnit) {
			t.Errorf("Convert(1, %s, %s) error = %v, want ErrUnsupportedUnit", pair[0], pair[1], err)
		}
	}
}

// Test round-trip conversions
func TestRoundTripConversions(t *testing.T) {
	for _, original := range []float64{1.95, 3.5, 0.001, 12.25} {
		for _, unit := range []string{Arcsecond, Arcminute, Radian} {
			a, err := Degrees(original).In(unit)
			if err != nil {
				t.Fatalf("In(%s): %v", unit, err)
			}
			back, err := a.In(Degree)
			if err != nil {
				t.Fatalf("In(deg): %v", err)
			}
			if math.Abs(back.Value-original) > 1e-12*original {
				t.Errorf("%s round-trip: started %g deg, got %g deg", unit, original, back.Value)
			}
			if back.Unit != Degree {
				t.Errorf("round-trip unit = %s, want deg", back.Unit)
			}
		}
	}
}

func TestAngleValidate(t *testing.T) {
	tests := []struct {
		name    string
		angle   Angle
		wantErr bool
	}{
		{"positive degrees", Degrees(3.5), false},
		{"positive arcsec", Arcseconds(12600), false},
		{"zero", Degrees(0), true},
		{"negative", Degrees(-1), true},
		{"nan", Degrees(math.NaN()), true},
		{"inf", Degrees(math.Inf(1)), true},
		{"unknown unit", Angle{Value: 1, Unit: "mph"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.angle.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.angle, err, tt.wantErr)
			}
		})
	}
}

func TestAngleRad(t *testing.T) {
	r, err := Degrees(90).Rad()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r-math.Pi/2) > 1e-15 {
		t.Errorf("Rad() = %v, want pi/2", r)
	}
	d, err := Arcseconds(1800).Deg()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-0.5) > 1e-15 {
		t.Errorf("Deg() = %v, want 0.5", d)
	}
	if s := Degrees(1.95).String(); s != "1.95 deg" {
		t.Errorf("String() = %q", s)
	}
}
