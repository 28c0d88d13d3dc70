package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in")

// DefaultLanguage is the Tesseract language used when none is given.
const DefaultLanguage = "eng"

// minRecognizeSide is the shorter side below which images are upscaled.
const minRecognizeSide = 600

// Line is one recognized line of text.
type Line struct {
	Text       string        `json:"text"`
	Bounds     geometry.Rect `json:"bounds"`
	Confidence float64       `json:"confidence"`
}

// Recognize returns the text lines found in img.
func Recognize(img image.Image, language string) ([]Line, error) {
	if img == nil {
		return nil, errors.New("ocr: nil image")
	}
	if language == "" {
		language = DefaultLanguage
	}

	prepared, factor := prepare(img)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image for OCR: %w", err)
	}

	lines, err := recognizePNG(buf.Bytes(), language)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	out := lines[:0]
	for _, l := range lines {
		l.Text = strings.TrimSpace(l.Text)
		if l.Text == "" {
			continue
		}
		l.Bounds = geometry.Rect{
			X: l.Bounds.X/factor + float64(b.Min.X),
			Y: l.Bounds.Y/factor + float64(b.Min.Y),
			W: l.Bounds.W / factor,
			H: l.Bounds.H / factor,
		}
		out = append(out, l)
	}
	return out, nil
}

// RecognizeRegion recognizes the part of img inside r. Returned bounds are
// in img's coordinates.
func RecognizeRegion(img image.Image, r geometry.Rect, language string) ([]Line, error) {
	rect := image.Rect(int(r.X), int(r.Y), int(r.X+r.W+0.5), int(r.Y+r.H+0.5)).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("ocr: region %v lies outside the image", r)
	}

	cropped := imaging.Crop(img, rect)
	lines, err := Recognize(cropped, language)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].Bounds.X += float64(rect.Min.X)
		lines[i].Bounds.Y += float64(rect.Min.Y)
	}
	return lines, nil
}

// Text joins the recognized lines with newlines.
func Text(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// prepare converts img to grayscale and upscales small inputs. It returns
// the factor by which coordinates were scaled.
func prepare(img image.Image) (image.Image, float64) {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	if short == 0 || short >= minRecognizeSide {
		return gray, 1
	}

	factor := 2.0
	if short*3 < minRecognizeSide {
		factor = 3
	}
	resized := imaging.Resize(gray, int(float64(b.Dx())*factor), int(float64(b.Dy())*factor), imaging.Lanczos)
	return resized, factor
}
