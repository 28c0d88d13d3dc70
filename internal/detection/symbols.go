package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Symbol is a small, compact ink glyph such as a fixture, outlet or tag.
type Symbol struct {
	Bounds     geometry.Rect  `json:"bounds"`
	Center     geometry.Point `json:"center"`
	Confidence float64        `json:"confidence"`
}

// SymbolOptions bounds the components DetectSymbols reports.
type SymbolOptions struct {
	MinSide int
	MaxSide int
	// MinConfidence drops components that are far from square or whose ink
	// density is implausible for a drawn symbol.
	MinConfidence float64
}

// DefaultSymbolOptions suits plans rasterized at about 96 DPI.
func DefaultSymbolOptions() SymbolOptions {
	return SymbolOptions{MinSide: 8, MaxSide: 48, MinConfidence: 0.5}
}

// DetectSymbols returns compact connected ink components. Components that
// overlap any rectangle in exclude, typically known text, are skipped.
func DetectSymbols(m *Mask, opts SymbolOptions, exclude []geometry.Rect) []Symbol {
	if opts.MaxSide <= 0 {
		opts = DefaultSymbolOptions()
	}

	var out []Symbol
	for _, c := range m.components(true, true) {
		b := c.bounds()
		if b.W < float64(opts.MinSide) || b.H < float64(opts.MinSide) ||
			b.W > float64(opts.MaxSide) || b.H > float64(opts.MaxSide) {
			continue
		}
		if overlapsAny(b, exclude) {
			continue
		}

		aspect := math.Min(b.W, b.H) / math.Max(b.W, b.H)
		density := float64(c.pixels) / geometry.Area(b)
		// outlined glyphs sit around 0.2 to 0.5; solid blobs and specks score lower
		densityScore := 1 - math.Min(math.Abs(density-0.35)/0.35, 1)
		confidence := math.Round(aspect*densityScore*1000) / 1000
		if confidence < opts.MinConfidence {
			continue
		}
		out = append(out, Symbol{Bounds: b, Center: b.Center(), Confidence: confidence})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func overlapsAny(r geometry.Rect, rs []geometry.Rect) bool {
	for _, o := range rs {
		if rectsOverlap(r, o) {
			return true
		}
	}
	return false
}

func rectsOverlap(a, b geometry.Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

func unionRect(a, b geometry.Rect) geometry.Rect {
	x0, y0 := math.Min(a.X, b.X), math.Min(a.Y, b.Y)
	x1, y1 := math.Max(a.X+a.W, b.X+b.W), math.Max(a.Y+a.H, b.Y+b.H)
	return geometry.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
