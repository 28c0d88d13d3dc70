package detection

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// DefaultInkLevel is the gray level below which a pixel counts as ink.
const DefaultInkLevel = 128

// Mask is a binary image of ink pixels.
type Mask struct {
	W, H int
	Pix  []bool
}

// NewMask returns an empty w x h mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// InkMask thresholds img into a mask. level 0 uses DefaultInkLevel.
func InkMask(img image.Image, level uint8) *Mask {
	if level == 0 {
		level = DefaultInkLevel
	}
	gray := effect.Grayscale(img)
	bw := segment.Threshold(gray, level)

	b := bw.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			// Threshold maps values below level to black.
			m.Pix[y*m.W+x] = bw.GrayAt(x+b.Min.X, y+b.Min.Y).Y == 0
		}
	}
	return m
}

// At reports whether (x, y) is ink. Points outside the mask are not.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x]
}

// Set marks (x, y). Points outside the mask are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	m.Pix[y*m.W+x] = v
}

// Clone returns a copy of m.
func (m *Mask) Clone() *Mask {
	c := &Mask{W: m.W, H: m.H, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Fill marks every pixel inside r.
func (m *Mask) Fill(r geometry.Rect) {
	x0, y0, x1, y1 := m.clip(r)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Pix[y*m.W+x] = true
		}
	}
}

// Count returns the number of ink pixels inside r.
func (m *Mask) Count(r geometry.Rect) int {
	x0, y0, x1, y1 := m.clip(r)
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if m.Pix[y*m.W+x] {
				n++
			}
		}
	}
	return n
}

func (m *Mask) clip(r geometry.Rect) (x0, y0, x1, y1 int) {
	x0, y0 = max(0, int(r.X)), max(0, int(r.Y))
	x1, y1 = min(m.W, int(r.X+r.W+0.5)), min(m.H, int(r.Y+r.H+0.5))
	return x0, y0, x1, y1
}

// component is a connected set of pixels with its bounding box.
type component struct {
	pixels                 int
	minX, minY, maxX, maxY int
}

func (c component) bounds() geometry.Rect {
	return geometry.Rect{
		X: float64(c.minX),
		Y: float64(c.minY),
		W: float64(c.maxX - c.minX + 1),
		H: float64(c.maxY - c.minY + 1),
	}
}

func (c component) touchesBorder(w, h int) bool {
	return c.minX == 0 || c.minY == 0 || c.maxX == w-1 || c.maxY == h-1
}

// components labels the connected regions whose pixels equal want. It uses
// an explicit stack so large regions cannot overflow the goroutine stack.
func (m *Mask) components(want bool, diagonal bool) []component {
	visited := make([]bool, len(m.Pix))
	var out []component
	var stack []int

	for start := range m.Pix {
		if visited[start] || m.Pix[start] != want {
			continue
		}
		c := component{minX: m.W, minY: m.H, maxX: -1, maxY: -1}
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.W, i/m.W
			c.pixels++
			c.minX, c.maxX = min(c.minX, x), max(c.maxX, x)
			c.minY, c.maxY = min(c.minY, y), max(c.maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 || !diagonal && dx != 0 && dy != 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					j := ny*m.W + nx
					if !visited[j] && m.Pix[j] == want {
						visited[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		out = append(out, c)
	}
	return out
}
