// Package ocr reads text lines from raster drawings using Tesseract.
//
// Recognition needs cgo and an installed Tesseract with the requested
// language data:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Binaries built without cgo still compile; Recognize then returns
// ErrUnavailable and the text-extraction stage reports a failure instead of
// aborting the analysis run.
//
// # Coordinates
//
// Line bounds are in the pixel space of the image passed in, origin at the
// top-left. When a region is recognized with RecognizeRegion the bounds are
// shifted back into the full image.
//
// # Preprocessing
//
// Images are converted to grayscale and, when small, upscaled before
// recognition. Thin blueprint lettering is often under the size Tesseract
// handles well.
package ocr
