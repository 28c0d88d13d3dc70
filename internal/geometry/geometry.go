package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in document pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Vec returns the point as a gonum vector.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// FromVec converts a gonum vector back to a Point.
func FromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return FromVec(r2.Add(p.Vec(), q.Vec()))
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return FromVec(r2.Sub(p.Vec(), q.Vec()))
}

// Scale returns p multiplied by f.
func (p Point) Scale(f float64) Point {
	return FromVec(r2.Scale(f, p.Vec()))
}

// Distance returns the Euclidean distance between p1 and p2.
func Distance(p1, p2 Point) float64 {
	return r2.Norm(r2.Sub(p2.Vec(), p1.Vec()))
}

// Rect is an axis-aligned rectangle with its top-left corner at (X, Y).
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectFromDrag builds the rectangle spanned by a drag gesture. Dragging up or
// left is normalized so that W and H are never negative.
func RectFromDrag(start, end Point) Rect {
	return Rect{
		X: math.Min(start.X, end.X),
		Y: math.Min(start.Y, end.Y),
		W: math.Abs(end.X - start.X),
		H: math.Abs(end.Y - start.Y),
	}
}

// Area returns |w*h| for r.
func Area(r Rect) float64 {
	return math.Abs(r.W * r.H)
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Inset grows (d > 0) or shrinks (d < 0) r on every side.
func (r Rect) Inset(d float64) Rect {
	out := Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}

// DistanceToSegment returns the shortest distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point) float64 {
	ab := r2.Sub(b.Vec(), a.Vec())
	lenSq := r2.Dot(ab, ab)
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := r2.Dot(r2.Sub(p.Vec(), a.Vec()), ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := r2.Add(a.Vec(), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p.Vec(), closest))
}
