package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/imaging"
)

// hueSectors splits the colour wheel so that yellow, orange, red, green and
// blue markers land in different buckets.
const hueSectors = 12

// ColorRegion is an area of coloured markup such as a highlighter stroke.
type ColorRegion struct {
	Bounds     geometry.Rect `json:"bounds"`
	Color      string        `json:"color"`
	Pixels     int           `json:"pixels"`
	Confidence float64       `json:"confidence"`
}

// DetectMarkup finds connected areas of saturated colour at least minArea
// pixels large. Pixels are grouped by hue sector first so that touching
// strokes of different colours stay apart.
func DetectMarkup(img image.Image, minArea int) []ColorRegion {
	b := img.Bounds()
	masks := make(map[int]*Mask)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.At(x+b.Min.X, y+b.Min.Y)
			if !imaging.IsMarkup(c) {
				continue
			}
			h := imaging.HueBucket(c, hueSectors)
			m, ok := masks[h]
			if !ok {
				m = NewMask(b.Dx(), b.Dy())
				masks[h] = m
			}
			m.Pix[y*m.W+x] = true
		}
	}

	var out []ColorRegion
	for _, m := range masks {
		for _, c := range m.components(true, true) {
			if c.pixels < minArea {
				continue
			}
			r := c.bounds()
			colors := imaging.DominantColors(img, geometry.Rect{X: r.X + float64(b.Min.X), Y: r.Y + float64(b.Min.Y), W: r.W, H: r.H}, 3)
			hex := ""
			for _, cf := range colors {
				if col, err := imaging.ParseHex(cf.Hex); err == nil && imaging.IsMarkup(col) {
					hex = cf.Hex
					break
				}
			}
			out = append(out, ColorRegion{
				Bounds:     r,
				Color:      hex,
				Pixels:     c.pixels,
				Confidence: math.Round(float64(c.pixels)/geometry.Area(r)*1000) / 1000,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Bounds.Y != out[j].Bounds.Y {
			return out[i].Bounds.Y < out[j].Bounds.Y
		}
		return out[i].Bounds.X < out[j].Bounds.X
	})
	return out
}
