// Package imaging decodes drawings and provides the pixel-level helpers the
// analyzers and tools share.
//
// A Drawing is either a raster image (PNG, JPEG, GIF, TIFF, BMP) or a PDF.
// Raster drawings have one page whose document space is the image's own
// pixel grid. PDF pages are mapped into document space at a fixed DPI
// (DefaultPDFDPI unless the caller asks otherwise), so a US Letter page at
// 96 DPI is 816x1056 document pixels. Each PDF page contributes:
//
//   - a raster: the largest embedded image on the page, resized to the page
//     size, or a blank sheet when the page is pure vector content
//   - a text layer: positioned lines extracted from the page's content
//     stream, already converted to top-left document coordinates
//
// # Coordinate System
//
// All coordinates are document pixels with the origin at the top-left, X
// increasing rightward and Y increasing downward. PDF coordinates, which
// grow upward from the bottom of the page, never leave this package.
//
// # Thread Safety
//
// DrawingCache is safe for concurrent use. A Drawing is immutable after
// Decode and may be shared between goroutines; page rasters are rendered
// once and memoized under the drawing's own lock.
package imaging
