package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Opening is a gap between two collinear walls, usually a door or a window.
type Opening struct {
	Bounds      geometry.Rect `json:"bounds"`
	Width       float64       `json:"width"`
	Orientation Orientation   `json:"orientation"`
	// Swing is true when a door swing arc was found next to the gap.
	Swing      bool    `json:"swing"`
	Confidence float64 `json:"confidence"`
}

// OpeningOptions bounds the gaps DetectOpenings reports.
type OpeningOptions struct {
	MinGap float64
	MaxGap float64
}

// DefaultOpeningOptions covers doors from about 2 to 4 feet at 96 DPI and a
// quarter-inch scale.
func DefaultOpeningOptions() OpeningOptions {
	return OpeningOptions{MinGap: 12, MaxGap: 80}
}

// DetectOpenings finds gaps between walls that share a centre line. Each
// wall is paired with the nearest wall starting after its end. A gap is reported with higher confidence when a quarter-circle
// door swing of the gap's radius is drawn from either jamb.
func DetectOpenings(m *Mask, walls []Wall, opts OpeningOptions) []Opening {
	if opts.MaxGap <= 0 {
		opts = DefaultOpeningOptions()
	}

	var out []Opening
	for _, a := range walls {
		best := math.Inf(1)
		for _, b := range walls {
			if b.Orientation != a.Orientation {
				continue
			}
			if math.Abs(across(a)-across(b)) > float64(max(a.Thickness, b.Thickness))/2 {
				continue
			}
			if gap := along(b, b.Start) - along(a, a.End); gap > 0 && gap < best {
				best = gap
			}
		}
		if best >= opts.MinGap && best <= opts.MaxGap {
			out = append(out, newOpening(m, a, best, a.Orientation))
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

func newOpening(m *Mask, a Wall, gap float64, o Orientation) Opening {
	t := float64(a.Thickness)
	var r geometry.Rect
	var jambA, jambB geometry.Point
	if o == Horizontal {
		r = geometry.Rect{X: a.End.X, Y: a.End.Y - t/2, W: gap, H: t}
		jambA, jambB = a.End, geometry.Pt(a.End.X+gap, a.End.Y)
	} else {
		r = geometry.Rect{X: a.End.X - t/2, Y: a.End.Y, W: t, H: gap}
		jambA, jambB = a.End, geometry.Pt(a.End.X, a.End.Y+gap)
	}

	swing := hasSwing(m, jambA, gap, o, false) || hasSwing(m, jambB, gap, o, true)
	op := Opening{Bounds: r, Width: gap, Orientation: o, Swing: swing, Confidence: 0.6}
	if swing {
		op.Confidence = 0.9
	}
	return op
}

// hasSwing samples a quarter arc of radius r hinged at jamb, on both sides
// of the wall, and reports whether most samples land on ink. reverse puts
// the arc on the side of the gap that lies toward decreasing coordinates.
func hasSwing(m *Mask, jamb geometry.Point, r float64, o Orientation, reverse bool) bool {
	const samples = 24
	for _, side := range []float64{-1, 1} {
		hits := 0
		// skip the ends, which touch the wall and the door leaf
		for i := 2; i < samples-2; i++ {
			theta := float64(i) / float64(samples-1) * math.Pi / 2
			da, dc := r*math.Cos(theta), side*r*math.Sin(theta)
			if reverse {
				da = -da
			}
			x, y := jamb.X+da, jamb.Y+dc
			if o == Vertical {
				x, y = jamb.X+dc, jamb.Y+da
			}
			if nearInk(m, int(math.Round(x)), int(math.Round(y)), 2) {
				hits++
			}
		}
		if hits*2 >= samples-4 {
			return true
		}
	}
	return false
}

func nearInk(m *Mask, x, y, tol int) bool {
	for dy := -tol; dy <= tol; dy++ {
		for dx := -tol; dx <= tol; dx++ {
			if m.At(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

// Seal returns a copy of m with every opening filled, so that rooms do not
// leak into each other through doorways.
func Seal(m *Mask, openings []Opening) *Mask {
	sealed := m.Clone()
	for _, o := range openings {
		sealed.Fill(o.Bounds)
	}
	return sealed
}

func along(w Wall, p geometry.Point) float64 {
	if w.Orientation == Horizontal {
		return p.X
	}
	return p.Y
}

func across(w Wall) float64 {
	if w.Orientation == Horizontal {
		return w.Start.Y
	}
	return w.Start.X
}
