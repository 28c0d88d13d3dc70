package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Orientation of an axis-aligned wall.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Wall is a straight run of thick linework.
type Wall struct {
	Start       geometry.Point `json:"start"`
	End         geometry.Point `json:"end"`
	Thickness   int            `json:"thickness"`
	Length      float64        `json:"length"`
	Orientation Orientation    `json:"orientation"`
}

// Bounds returns the rectangle covered by the wall.
func (w Wall) Bounds() geometry.Rect {
	half := float64(w.Thickness) / 2
	if w.Orientation == Horizontal {
		return geometry.Rect{X: w.Start.X, Y: w.Start.Y - half, W: w.End.X - w.Start.X, H: float64(w.Thickness)}
	}
	return geometry.Rect{X: w.Start.X - half, Y: w.Start.Y, W: float64(w.Thickness), H: w.End.Y - w.Start.Y}
}

// WallOptions bounds the walls DetectWalls reports.
type WallOptions struct {
	MinLength    int
	MinThickness int
	MaxThickness int
	// Tolerance is how far run ends may wander between rows of one wall.
	Tolerance int
}

// DefaultWallOptions suits plans rasterized at about 96 DPI.
func DefaultWallOptions() WallOptions {
	return WallOptions{MinLength: 40, MinThickness: 2, MaxThickness: 24, Tolerance: 3}
}

// DetectWalls traces horizontal and vertical walls in m.
//
// Each row is scanned for ink runs at least MinLength long. Runs on
// consecutive rows whose ends line up within Tolerance are stacked into one
// band, and bands whose height lies between MinThickness and MaxThickness
// become walls. Vertical walls are found the same way over columns. Thin
// dimension and leader lines fall under MinThickness; filled areas exceed
// MaxThickness.
func DetectWalls(m *Mask, opts WallOptions) []Wall {
	if opts.MinLength <= 0 {
		opts = DefaultWallOptions()
	}
	walls := traceBands(m.W, m.H, func(along, across int) bool { return m.At(along, across) }, opts, Horizontal)
	walls = append(walls, traceBands(m.H, m.W, func(along, across int) bool { return m.At(across, along) }, opts, Vertical)...)

	sort.Slice(walls, func(i, j int) bool {
		return walls[i].Length > walls[j].Length
	})
	return walls
}

type band struct {
	start, end  int // along-axis extent of the first run
	lo, hi      int // union of the along-axis extent
	first, last int // across-axis rows covered
}

// traceBands finds wall bands with ink(along, across) where along is the
// wall direction and across is perpendicular to it.
func traceBands(alongN, acrossN int, ink func(along, across int) bool, opts WallOptions, o Orientation) []Wall {
	var open, done []band

	for across := 0; across < acrossN; across++ {
		var next []band
		matched := make([]bool, len(open))

		for along := 0; along < alongN; {
			if !ink(along, across) {
				along++
				continue
			}
			start := along
			for along < alongN && ink(along, across) {
				along++
			}
			if along-start < opts.MinLength {
				continue
			}

			cont := -1
			for i, b := range open {
				if !matched[i] && abs(b.start-start) <= opts.Tolerance && abs(b.end-along) <= opts.Tolerance {
					cont = i
					break
				}
			}
			if cont >= 0 {
				b := open[cont]
				matched[cont] = true
				b.lo, b.hi, b.last = min(b.lo, start), max(b.hi, along), across
				next = append(next, b)
			} else {
				next = append(next, band{start: start, end: along, lo: start, hi: along, first: across, last: across})
			}
		}

		for i, b := range open {
			if !matched[i] {
				done = append(done, b)
			}
		}
		open = next
	}
	done = append(done, open...)

	var walls []Wall
	for _, b := range done {
		thick := b.last - b.first + 1
		if thick < opts.MinThickness || thick > opts.MaxThickness {
			continue
		}
		mid := float64(b.first+b.last+1) / 2
		w := Wall{Thickness: thick, Length: float64(b.hi - b.lo), Orientation: o}
		if o == Horizontal {
			w.Start, w.End = geometry.Pt(float64(b.lo), mid), geometry.Pt(float64(b.hi), mid)
		} else {
			w.Start, w.End = geometry.Pt(mid, float64(b.lo)), geometry.Pt(mid, float64(b.hi))
		}
		walls = append(walls, w)
	}
	return walls
}

// TotalLength sums the lengths of walls.
func TotalLength(walls []Wall) float64 {
	var sum float64
	for _, w := range walls {
		sum += w.Length
	}
	return math.Round(sum*10) / 10
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
