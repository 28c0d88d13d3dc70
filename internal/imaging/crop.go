package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// MaxPreviewSide bounds the longer side of a preview image.
const MaxPreviewSide = 1600

// CropResult contains the cropped image data
type CropResult struct {
	Region      geometry.Rect `json:"region"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	ImageBase64 string        `json:"image_base64"`
	MimeType    string        `json:"mime_type"`
}

// Crop extracts region r of img, scales it by factor and encodes it as a
// PNG. The result is shrunk further if its longer side would exceed
// MaxPreviewSide.
func Crop(img image.Image, r geometry.Rect, factor float64) (*CropResult, error) {
	bounds := img.Bounds()
	rect := image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
	if r.W <= 0 || r.H <= 0 {
		return nil, fmt.Errorf("invalid crop region: width and height must be positive")
	}
	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	var cropped image.Image = imaging.Crop(img, rect)
	if factor <= 0 {
		factor = 1
	}
	w := float64(rect.Dx()) * factor
	h := float64(rect.Dy()) * factor
	if long := math.Max(w, h); long > MaxPreviewSide {
		w, h = w*MaxPreviewSide/long, h*MaxPreviewSide/long
	}
	if int(w) != rect.Dx() || int(h) != rect.Dy() {
		cropped = imaging.Resize(cropped, max(1, int(w)), max(1, int(h)), imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Region:      r,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
