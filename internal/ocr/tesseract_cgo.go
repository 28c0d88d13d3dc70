//go:build cgo

package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Available reports whether recognition can run.
func Available() bool {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version() != ""
}

// Version returns the Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

func recognizePNG(data []byte, language string) ([]Line, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	lines := make([]Line, 0, len(boxes))
	for _, box := range boxes {
		lines = append(lines, Line{
			Text: box.Word,
			Bounds: geometry.Rect{
				X: float64(box.Box.Min.X),
				Y: float64(box.Box.Min.Y),
				W: float64(box.Box.Dx()),
				H: float64(box.Box.Dy()),
			},
			Confidence: float64(box.Confidence) / 100.0,
		})
	}
	return lines, nil
}
