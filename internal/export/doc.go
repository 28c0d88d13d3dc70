// Package export serializes the annotations of a drawing together with
// their totals.
//
// A Snapshot has the shape
//
//	{project, document, scale: {unitsPerPixel, unit}, entities: [...], totals: {...}}
//
// and is written either as JSON or as CSV with one row per entity.
package export
