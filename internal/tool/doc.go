// Package tool turns pointer gestures into annotation entities.
//
// Exactly one tool is active at a time and only SetTool changes it. Every
// tool sees the same three-phase gesture: Begin on pointer-down, any number
// of Drag calls on pointer-move, and Commit on pointer-up. Positions arrive
// in screen coordinates and are mapped through the viewport, so thresholds
// apply in document pixels regardless of zoom.
//
// Events that arrive out of order, such as a Drag with no preceding Begin,
// are ignored rather than reported as errors.
package tool
