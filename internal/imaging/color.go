package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Markup thresholds. Plain linework is black, grey or a pale paper tone;
// markup and highlighter strokes are saturated and not too dark.
const (
	MarkupMinSaturation = 0.35
	MarkupMinValue      = 0.25
)

// Hex formats c as "#RRGGBB".
func Hex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return strings.ToUpper(cf.Clamped().Hex())
}

// ParseHex parses "#RRGGBB" or "#RGB".
func ParseHex(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

// IsMarkup reports whether c looks like a coloured markup stroke rather
// than linework or paper.
func IsMarkup(c color.Color) bool {
	_, _, _, a := c.RGBA()
	if a < 0x8000 {
		return false
	}
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return false
	}
	_, s, v := cf.Hsv()
	return s >= MarkupMinSaturation && v >= MarkupMinValue
}

// HueBucket maps a colour to one of n hue sectors.
func HueBucket(c color.Color, n int) int {
	cf, _ := colorful.MakeColor(c)
	h, _, _ := cf.Hsv()
	b := int(math.Floor(h / 360 * float64(n)))
	if b >= n {
		b = 0
	}
	return b
}

// ColorFrequency is one entry of a dominant colour histogram.
type ColorFrequency struct {
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`
}

// DominantColors returns up to count of the most frequent colours inside r.
// Colours are quantized to 16 levels per channel before counting, and the
// reported hex is the mean of the pixels in each bucket blended in Lab
// space.
func DominantColors(img image.Image, r geometry.Rect, count int) []ColorFrequency {
	rect := image.Rect(int(r.X), int(r.Y), int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H))).Intersect(img.Bounds())
	if rect.Empty() || count <= 0 {
		return nil
	}

	type bucket struct {
		n    int
		mean colorful.Color
	}
	buckets := make(map[uint32]*bucket)
	total := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := img.At(x, y)
			rr, gg, bb, _ := c.RGBA()
			key := (rr>>12)<<8 | (gg>>12)<<4 | bb>>12
			cf, _ := colorful.MakeColor(c)
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{mean: cf}
				buckets[key] = bk
			}
			bk.n++
			bk.mean = bk.mean.BlendLab(cf, 1/float64(bk.n))
			total++
		}
	}

	keys := make([]uint32, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if buckets[keys[i]].n != buckets[keys[j]].n {
			return buckets[keys[i]].n > buckets[keys[j]].n
		}
		return keys[i] < keys[j]
	})

	if len(keys) > count {
		keys = keys[:count]
	}
	out := make([]ColorFrequency, len(keys))
	for i, k := range keys {
		b := buckets[k]
		out[i] = ColorFrequency{
			Hex:        strings.ToUpper(b.mean.Clamped().Hex()),
			Percentage: math.Round(float64(b.n)/float64(total)*1000) / 10,
		}
	}
	return out
}
