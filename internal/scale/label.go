package scale

import (
	"math"
	"strconv"

	"seehuhn.de/go/pdf/measure"
)

// labelPrecision keeps two decimal places.
const labelPrecision = 100

// Label formats a length (power 1) or area (power 2) for display, for
// example "4 ft", "12.50 m" or "8.68 sq ft". Whole values drop the decimals.
func Label(value float64, unit Unit, power int) string {
	name := unit.Abbrev()
	if power == 2 {
		name = "sq " + name
	}
	rounded := math.Round(value*labelPrecision) / labelPrecision
	nf := []*measure.NumberFormat{{
		Unit:             name,
		ConversionFactor: 1,
		Precision:        labelPrecision,
		FractionFormat:   measure.FractionDecimal,
	}}
	s, err := measure.Format(rounded, nf)
	if err != nil {
		return strconv.FormatFloat(rounded, 'f', 2, 64) + " " + name
	}
	return s
}

// LabelValue formats v, marking assumed and unscaled values.
func LabelValue(v Value, power int) string {
	s := Label(v.Amount, v.Unit, power)
	switch {
	case v.Unscaled:
		s += " (unscaled)"
	case v.Assumed:
		s += " (assumed scale)"
	}
	return s
}
