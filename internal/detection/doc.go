// Package detection finds the structural elements of a floor plan in a page
// raster: walls, openings, rooms, symbols, text blocks and coloured markup.
//
// # Algorithm Overview
//
// Every detector except DetectMarkup works on an ink Mask, a binary image
// where true marks dark linework:
//
//  1. Thresholding: the page is converted to grayscale and thresholded so
//     that paper, hatching tints and coloured markup drop out.
//  2. Feature extraction: walls are traced as runs of ink, rooms are
//     enclosed background areas found by flood fill, symbols are small
//     connected ink components and text blocks are windows with text-like
//     ink density.
//  3. Filtering: results below size or confidence thresholds are dropped
//     and overlapping candidates are merged.
//
// # Coordinate System
//
// All coordinates are in the pixel space of the input image:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Confidence Scores
//
// Detectors return scores between 0.0 and 1.0:
//   - Rooms: fraction of the bounding box the room actually fills
//   - Openings: 0.9 when a door swing arc is found, 0.6 for a bare gap
//   - Symbols: closeness of the component to a compact, square glyph
//   - Text blocks: edge density and horizontal structure
//
// # Limitations
//
// Walls and openings are found only when axis-aligned. Scanned plans with
// heavy noise or skew produce fragmented walls, and rooms that leak through
// undetected gaps merge with their neighbours.
package detection
