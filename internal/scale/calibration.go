package scale

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidScaleInput is returned when a declared pixel distance or
	// real value is not positive.
	ErrInvalidScaleInput = errors.New("invalid scale input")

	// ErrNotCalibrated is returned by conversions on an uncalibrated drawing.
	ErrNotCalibrated = errors.New("scale not calibrated")
)

// Unit is a real-world length unit.
type Unit string

const (
	Feet   Unit = "feet"
	Inches Unit = "inches"
	Meters Unit = "meters"
	// Pixels marks values that could not be converted.
	Pixels Unit = "px"
)

var metersPer = map[Unit]float64{
	Feet:   0.3048,
	Inches: 0.0254,
	Meters: 1,
}

// ParseUnit accepts the usual spellings and abbreviations of a unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feet", "foot", "ft", "'":
		return Feet, nil
	case "inches", "inch", "in", "\"":
		return Inches, nil
	case "meters", "meter", "metres", "metre", "m":
		return Meters, nil
	case "px", "pixel", "pixels":
		return Pixels, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// Abbrev returns the short label used in formatted values.
func (u Unit) Abbrev() string {
	switch u {
	case Feet:
		return "ft"
	case Inches:
		return "in"
	case Meters:
		return "m"
	}
	return string(u)
}

// IsLength reports whether u is a real length unit.
func (u Unit) IsLength() bool {
	_, ok := metersPer[u]
	return ok
}

// Calibration is the real-world size of one document pixel.
type Calibration struct {
	UnitsPerPixel float64 `json:"unitsPerPixel"`
	Unit          Unit    `json:"unit"`
	Calibrated    bool    `json:"calibrated"`
}

// SetFromDeclaration derives a calibration from a pixel distance the user
// declared to be realValue units long.
func SetFromDeclaration(pixelDistance, realValue float64, unit Unit) (Calibration, error) {
	if !positive(pixelDistance) || !positive(realValue) {
		return Calibration{}, fmt.Errorf("%w: pixel distance %g, real value %g", ErrInvalidScaleInput, pixelDistance, realValue)
	}
	if !unit.IsLength() {
		return Calibration{}, fmt.Errorf("%w: unit %q", ErrInvalidScaleInput, unit)
	}
	ratio := realValue / pixelDistance
	if !positive(ratio) {
		return Calibration{}, fmt.Errorf("%w: ratio %g out of range", ErrInvalidScaleInput, ratio)
	}
	return Calibration{
		UnitsPerPixel: ratio,
		Unit:          unit,
		Calibrated:    true,
	}, nil
}

// positive reports whether v is finite and greater than zero.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ToReal converts a pixel length (power 1) or pixel area (power 2).
func (c Calibration) ToReal(pixelValue float64, power int) (float64, error) {
	if !c.Calibrated || c.UnitsPerPixel <= 0 {
		return 0, ErrNotCalibrated
	}
	if power != 1 && power != 2 {
		return 0, fmt.Errorf("unsupported power %d", power)
	}
	return pixelValue * math.Pow(c.UnitsPerPixel, float64(power)), nil
}

// In returns the same calibration expressed in another unit.
func (c Calibration) In(unit Unit) (Calibration, error) {
	v, err := Convert(c.UnitsPerPixel, c.Unit, unit, 1)
	if err != nil {
		return c, err
	}
	c.UnitsPerPixel = v
	c.Unit = unit
	return c, nil
}

// Convert changes a length (power 1) or area (power 2) between units.
func Convert(value float64, from, to Unit, power int) (float64, error) {
	if from == to {
		return value, nil
	}
	f, ok := metersPer[from]
	if !ok {
		return 0, fmt.Errorf("cannot convert from %q", from)
	}
	t, ok := metersPer[to]
	if !ok {
		return 0, fmt.Errorf("cannot convert to %q", to)
	}
	return value * math.Pow(f/t, float64(power)), nil
}

// DefaultUnitsPerPixel is 1/4" = 1'-0" at the given DPI, in feet per pixel.
func DefaultUnitsPerPixel(dpi float64) float64 {
	if dpi <= 0 {
		return 0
	}
	// one paper inch covers four feet
	return 4 / dpi
}

// Value is a converted quantity together with how it was obtained.
type Value struct {
	Amount   float64 `json:"value"`
	Unit     Unit    `json:"unit"`
	Assumed  bool    `json:"assumedScale,omitempty"`
	Unscaled bool    `json:"unscaled,omitempty"`
}

// Converter applies the current calibration, degrading to the default scale
// and then to raw pixels.
type Converter struct {
	Current Calibration
	Default Calibration
}

// NewConverter builds a converter whose default is unitsPerPixel of unit.
// A non-positive default disables it.
func NewConverter(current Calibration, defaultUnitsPerPixel float64, unit Unit) Converter {
	def := Calibration{Unit: unit}
	if defaultUnitsPerPixel > 0 && unit.IsLength() {
		def.UnitsPerPixel = defaultUnitsPerPixel
		def.Calibrated = true
	}
	return Converter{Current: current, Default: def}
}

// Convert never fails; the flags on the returned Value say which scale won.
func (cv Converter) Convert(pixelValue float64, power int) Value {
	if v, err := cv.Current.ToReal(pixelValue, power); err == nil {
		return Value{Amount: v, Unit: cv.Current.Unit}
	}
	if v, err := cv.Default.ToReal(pixelValue, power); err == nil {
		return Value{Amount: v, Unit: cv.Default.Unit, Assumed: true}
	}
	return Value{Amount: pixelValue, Unit: Pixels, Unscaled: true}
}

// Effective returns the calibration Convert would use, if any.
func (cv Converter) Effective() (Calibration, bool) {
	if cv.Current.Calibrated && cv.Current.UnitsPerPixel > 0 {
		return cv.Current, true
	}
	if cv.Default.Calibrated && cv.Default.UnitsPerPixel > 0 {
		return cv.Default, true
	}
	return Calibration{}, false
}
