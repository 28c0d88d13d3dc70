// Package scale converts document pixel measurements into real-world units.
//
// A Calibration records how many real units one document pixel represents.
// It is established either from a user declaration ("this 96 px line is
// 4 feet") or from a scale notation printed on the drawing such as
// 1/4" = 1'-0", 1" = 20' or 1:100.
//
// # Powers
//
// Conversions take a power: 1 for lengths, 2 for areas. An area of A square
// pixels converts to A * unitsPerPixel^2 square units.
//
// # Uncalibrated Drawings
//
// ToReal fails with ErrNotCalibrated before a calibration exists. A
// Converter wraps the current calibration together with an explicit default
// scale (1/4" = 1'-0" at 96 DPI unless configured otherwise) and marks values
// produced from the default as assumed. With a zero default the Converter
// falls back to raw pixels and marks the value unscaled.
package scale
