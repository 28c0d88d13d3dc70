package viewport

import (
	"math"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Default zoom limits.
const (
	DefaultMinScale = 0.25
	DefaultMaxScale = 4.0
)

// State is the current pan and zoom.
type State struct {
	Scale float64 `json:"scale"`
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
}

// Controller owns the viewport state for one session.
type Controller struct {
	state    State
	minScale float64
	maxScale float64
}

// New returns a controller at scale 1 with no pan. Invalid limits fall back
// to the defaults.
func New(minScale, maxScale float64) *Controller {
	if minScale <= 0 || maxScale <= 0 || minScale > maxScale {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	c := &Controller{minScale: minScale, maxScale: maxScale}
	c.FitToDefault()
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Limits returns the zoom range.
func (c *Controller) Limits() (min, max float64) {
	return c.minScale, c.maxScale
}

// ZoomBy multiplies the scale by factor and clamps it. Non-positive factors
// are ignored.
func (c *Controller) ZoomBy(factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	c.state.Scale = c.clamp(c.state.Scale * factor)
}

// ZoomAt zooms like ZoomBy but keeps the document point under anchor fixed
// on screen, as a scroll-wheel zoom does.
func (c *Controller) ZoomAt(factor float64, anchor geometry.Point) {
	before := c.ScreenToDocument(anchor)
	c.ZoomBy(factor)
	after := c.DocumentToScreen(before)
	c.PanBy(anchor.X-after.X, anchor.Y-after.Y)
}

// PanBy moves the document by (dx, dy) screen pixels.
func (c *Controller) PanBy(dx, dy float64) {
	c.state.PanX += dx
	c.state.PanY += dy
}

// FitToDefault resets to scale 1 and no pan.
func (c *Controller) FitToDefault() {
	c.state = State{Scale: c.clamp(1)}
}

// ScreenToDocument maps a pointer position to document pixels.
func (c *Controller) ScreenToDocument(p geometry.Point) geometry.Point {
	pan := geometry.Pt(c.state.PanX, c.state.PanY)
	return p.Sub(pan).Scale(1 / c.state.Scale)
}

// DocumentToScreen maps document pixels to a screen position.
func (c *Controller) DocumentToScreen(p geometry.Point) geometry.Point {
	pan := geometry.Pt(c.state.PanX, c.state.PanY)
	return p.Scale(c.state.Scale).Add(pan)
}

func (c *Controller) clamp(s float64) float64 {
	return math.Max(c.minScale, math.Min(c.maxScale, s))
}
