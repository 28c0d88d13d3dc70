package scale

import (
	"regexp"
	"strconv"
	"strings"
)

// Dimension is a length written on a drawing, such as 12'-6" or 3500 mm.
type Dimension struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

var (
	feetInchRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*'(?:\s*-?\s*(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s*")?`)
	metricRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mm|cm|m)\b`)
	inchRe     = regexp.MustCompile(`(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s*"`)
)

// ParseDimension finds the first dimension in text. Imperial values are
// returned in feet (or inches when no feet are given), metric values in
// meters. Scale notations are not dimensions.
func ParseDimension(text string) (Dimension, bool) {
	s := quoteReplacer.Replace(text)
	if _, ok := ParseNotation(s); ok {
		return Dimension{}, false
	}

	if m := feetInchRe.FindStringSubmatch(s); m != nil {
		ft, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Dimension{}, false
		}
		if m[2] != "" {
			in, err := parseMixedNumber(m[2])
			if err != nil {
				return Dimension{}, false
			}
			ft += in / 12
		}
		return Dimension{Text: strings.TrimSpace(m[0]), Value: ft, Unit: Feet}, ft > 0
	}

	if m := metricRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Dimension{}, false
		}
		switch strings.ToLower(m[2]) {
		case "mm":
			v /= 1000
		case "cm":
			v /= 100
		}
		return Dimension{Text: strings.TrimSpace(m[0]), Value: v, Unit: Meters}, v > 0
	}

	if m := inchRe.FindStringSubmatch(s); m != nil {
		v, err := parseMixedNumber(m[1])
		if err != nil {
			return Dimension{}, false
		}
		return Dimension{Text: strings.TrimSpace(m[0]), Value: v, Unit: Inches}, v > 0
	}

	return Dimension{}, false
}
