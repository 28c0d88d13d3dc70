// Package session ties the engine components together for one drawing.
//
// A Session owns the loaded drawing, its calibration, the viewport, the
// tool state machine, the annotation store with its totals, and at most one
// analysis run. Every method is safe for concurrent use; analysis runs on
// its own goroutine and merges into the store between stages.
package session
