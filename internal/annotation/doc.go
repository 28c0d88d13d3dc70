// Package annotation holds the entities placed on a drawing and the totals
// derived from them.
//
// # Entities
//
// An Entity is a tagged variant discriminated by Kind:
//   - linear: a measurement between P1 and P2
//   - area: a rectangle with its real-world area
//   - highlight: a coloured rectangle, drawn by hand or detected
//   - count: a categorized marker at Point
//   - note: text pinned at Point
//
// Geometry is kept in document pixels. Real-world values are converted when
// the entity is committed and never change afterwards, so re-calibrating a
// drawing does not alter entities that already exist.
//
// # Store
//
// Store is the single source of truth. IDs are assigned by the store, are
// unique for its lifetime and are never handed out twice, even after
// ClearAll. Undo and Redo restore earlier snapshots, bringing back entities
// under the IDs they had before. Store is safe for concurrent use.
//
// # Totals
//
// Aggregator computes totals on demand from the current store contents.
// Nothing is cached between calls, so a total always reflects the latest
// mutation. Values in pixel units (drawings without any scale) are left out
// of real-world totals and reported separately.
package annotation
