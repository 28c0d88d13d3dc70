// Package geometry provides the pure arithmetic used by every other part of
// the measurement engine: points, drag rectangles, distances and areas.
//
// # Coordinate System
//
// All values are float64 document-space pixels with the origin at the
// top-left corner of the drawing, X increasing rightward and Y increasing
// downward. Screen-space conversion lives in the viewport package; nothing
// here knows about zoom or pan.
//
// # Rectangles
//
// A Rect is always normalized: (X, Y) is the top-left corner and W, H are
// non-negative. RectFromDrag produces a normalized rectangle regardless of the
// drag direction.
package geometry
