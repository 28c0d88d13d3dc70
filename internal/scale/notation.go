package scale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Notation is a printed drawing scale: PaperInches on the sheet represent
// RealValue RealUnit on site.
type Notation struct {
	Text        string  `json:"text"`
	PaperInches float64 `json:"paperInches"`
	RealValue   float64 `json:"realValue"`
	RealUnit    Unit    `json:"realUnit"`
}

var (
	quoteReplacer = strings.NewReplacer(
		"″", `"`, "”", `"`, "“", `"`, "''", `"`,
		"′", "'", "’", "'", "‘", "'",
	)

	// 1/4" = 1'-0", 1 1/2" = 1'-0", 1" = 20', 3/32" = 1'
	imperialRe = regexp.MustCompile(
		`(?i)(\d+\s+\d+/\d+|\d+/\d+|\d*\.\d+|\d+)\s*(?:"|in(?:ch(?:es)?)?\b)\s*=\s*(\d+(?:\.\d+)?)\s*(?:'|ft\b|feet\b|foot\b)(?:\s*-?\s*(\d+(?:\.\d+)?)\s*(?:"|in\b)?)?`)

	// 1:100, 1 : 50
	ratioRe = regexp.MustCompile(`(?:^|[^\d:])1\s*:\s*(\d+(?:\.\d+)?)(?:$|[^\d:])`)
)

// ParseNotation finds the first scale notation in text.
func ParseNotation(text string) (Notation, bool) {
	s := quoteReplacer.Replace(text)

	if m := imperialRe.FindStringSubmatch(s); m != nil {
		paper, err := parseMixedNumber(m[1])
		if err != nil || paper <= 0 {
			return Notation{}, false
		}
		feet, _ := strconv.ParseFloat(m[2], 64)
		if m[3] != "" {
			in, _ := strconv.ParseFloat(m[3], 64)
			feet += in / 12
		}
		if feet <= 0 {
			return Notation{}, false
		}
		return Notation{Text: strings.TrimSpace(m[0]), PaperInches: paper, RealValue: feet, RealUnit: Feet}, true
	}

	if m := ratioRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || n <= 0 {
			return Notation{}, false
		}
		// one paper inch is n inches on site
		meters, _ := Convert(n, Inches, Meters, 1)
		return Notation{Text: "1:" + m[1], PaperInches: 1, RealValue: meters, RealUnit: Meters}, true
	}

	return Notation{}, false
}

// Calibration converts the notation to a pixel calibration for a drawing
// rendered at dpi.
func (n Notation) Calibration(dpi float64) (Calibration, error) {
	return SetFromDeclaration(n.PaperInches*dpi, n.RealValue, n.RealUnit)
}

// DetectNotation scans text lines in order and returns the first notation.
func DetectNotation(lines []string) (Notation, bool) {
	for _, line := range lines {
		if n, ok := ParseNotation(line); ok {
			return n, true
		}
	}
	return Notation{}, false
}

// parseMixedNumber parses "3", "0.5", "3/16" and "1 1/2".
func parseMixedNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	whole := 0.0
	if i := strings.IndexByte(s, ' '); i >= 0 {
		w, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, err
		}
		whole = w
		s = strings.TrimSpace(s[i+1:])
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator in %q", s)
		}
		return whole + n/d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return whole + v, nil
}
