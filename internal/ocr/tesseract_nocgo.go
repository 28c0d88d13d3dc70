//go:build !cgo

package ocr

// Available reports whether recognition can run.
func Available() bool { return false }

// Version returns the Tesseract version.
func Version() string { return "" }

func recognizePNG([]byte, string) ([]Line, error) {
	return nil, ErrUnavailable
}
