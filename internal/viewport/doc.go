// Package viewport maps between screen coordinates and document pixels.
//
// The transform is screen = document*scale + pan. Scale is clamped to a
// configured range; pan is never clamped, so a document may be dragged
// entirely off-screen.
package viewport
