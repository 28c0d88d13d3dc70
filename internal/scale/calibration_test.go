package scale

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func TestSetFromDeclaration(t *testing.T) {
	tests := []struct {
		name      string
		pixels    float64
		real      float64
		unit      Unit
		wantRatio float64
		wantErr   bool
	}{
		{"96px is 4ft", 96, 4, Feet, 4.0 / 96, false},
		{"metric", 200, 5, Meters, 0.025, false},
		{"zero pixels", 0, 4, Feet, 0, true},
		{"negative pixels", -10, 4, Feet, 0, true},
		{"zero real", 96, 0, Feet, 0, true},
		{"negative real", 96, -1, Inches, 0, true},
		{"pixel unit", 96, 4, Pixels, 0, true},
		{"NaN pixels", math.NaN(), 4, Feet, 0, true},
		{"infinite pixels", math.Inf(1), 4, Feet, 0, true},
		{"infinite real", 96, math.Inf(1), Feet, 0, true},
		{"ratio underflows", 1e308, 1e-308, Feet, 0, true},
		{"ratio overflows", 1e-308, 1e308, Feet, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := SetFromDeclaration(tt.pixels, tt.real, tt.unit)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidScaleInput) {
					t.Fatalf("error: got %v, want ErrInvalidScaleInput", err)
				}
				if c.Calibrated {
					t.Error("calibration should be unset on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetFromDeclaration failed: %v", err)
			}
			if !c.Calibrated {
				t.Error("Calibrated: got false, want true")
			}
			if math.Abs(c.UnitsPerPixel-tt.wantRatio) > tolerance {
				t.Errorf("UnitsPerPixel: got %v, want %v", c.UnitsPerPixel, tt.wantRatio)
			}
		})
	}
}

func TestToReal_Scenarios(t *testing.T) {
	c, err := SetFromDeclaration(96, 4, Feet)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c.UnitsPerPixel-0.04167) > 1e-4 {
		t.Errorf("UnitsPerPixel: got %v, want ~0.04167", c.UnitsPerPixel)
	}

	length, err := c.ToReal(96, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(length-4) > tolerance {
		t.Errorf("length: got %v, want 4", length)
	}

	area, err := c.ToReal(100*50, 2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(area-8.68) > 0.01 {
		t.Errorf("area: got %v, want ~8.68", area)
	}
}

func TestToReal_Linearity(t *testing.T) {
	c, _ := SetFromDeclaration(37, 3.5, Meters)
	for _, px := range []float64{1, 12.5, 96, 1234} {
		base, _ := c.ToReal(px, 1)
		for _, k := range []float64{0.5, 2, 7.25} {
			got, _ := c.ToReal(k*px, 1)
			if math.Abs(got-k*base) > 1e-9*math.Max(1, got) {
				t.Errorf("ToReal(%v*%v): got %v, want %v", k, px, got, k*base)
			}
		}
	}
}

func TestToReal_Quadratic(t *testing.T) {
	c, _ := SetFromDeclaration(96, 4, Feet)
	for _, a := range []float64{1, 5000, 123456} {
		got, _ := c.ToReal(a, 2)
		want := c.UnitsPerPixel * c.UnitsPerPixel * a
		if math.Abs(got-want) > 1e-9*math.Max(1, want) {
			t.Errorf("ToReal(%v, 2): got %v, want %v", a, got, want)
		}
	}
}

func TestToReal_NotCalibrated(t *testing.T) {
	var c Calibration
	if _, err := c.ToReal(10, 1); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("error: got %v, want ErrNotCalibrated", err)
	}
}

func TestToReal_BadPower(t *testing.T) {
	c, _ := SetFromDeclaration(96, 4, Feet)
	if _, err := c.ToReal(10, 3); err == nil {
		t.Error("expected error for power 3")
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to Unit
		power    int
		want     float64
	}{
		{"feet to inches", 2, Feet, Inches, 1, 24},
		{"inches to feet", 18, Inches, Feet, 1, 1.5},
		{"feet to meters", 10, Feet, Meters, 1, 3.048},
		{"sq feet to sq inches", 1, Feet, Inches, 2, 144},
		{"sq meters to sq feet", 1, Meters, Feet, 2, 10.7639},
		{"same unit", 3, Meters, Meters, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to, tt.power)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Convert(1, Pixels, Feet, 1); err == nil {
		t.Error("expected error converting pixels")
	}
}

func TestConverter(t *testing.T) {
	calibrated, _ := SetFromDeclaration(96, 4, Feet)

	t.Run("calibrated", func(t *testing.T) {
		cv := NewConverter(calibrated, DefaultUnitsPerPixel(96), Feet)
		v := cv.Convert(96, 1)
		if v.Assumed || v.Unscaled {
			t.Errorf("flags: got assumed=%v unscaled=%v", v.Assumed, v.Unscaled)
		}
		if math.Abs(v.Amount-4) > tolerance || v.Unit != Feet {
			t.Errorf("got %v %s, want 4 feet", v.Amount, v.Unit)
		}
	})

	t.Run("default scale", func(t *testing.T) {
		cv := NewConverter(Calibration{}, DefaultUnitsPerPixel(96), Feet)
		v := cv.Convert(24, 1)
		if !v.Assumed {
			t.Error("Assumed: got false, want true")
		}
		// 24px at 96 DPI is a quarter inch of paper, one foot on site
		if math.Abs(v.Amount-1) > tolerance {
			t.Errorf("Amount: got %v, want 1", v.Amount)
		}
	})

	t.Run("pixel fallback", func(t *testing.T) {
		cv := NewConverter(Calibration{}, 0, Feet)
		v := cv.Convert(24, 1)
		if !v.Unscaled || v.Unit != Pixels || v.Amount != 24 {
			t.Errorf("got %+v, want 24 unscaled px", v)
		}
		if _, ok := cv.Effective(); ok {
			t.Error("Effective: want no calibration")
		}
	})
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"ft": Feet, "Feet": Feet, "in": Inches, "m": Meters, " meters ": Meters} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q): got %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseUnit("furlong"); err == nil {
		t.Error("expected error for unknown unit")
	}
}
