package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// Format names a drawing encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatPDF  Format = "pdf"
)

// DefaultPDFDPI maps PDF points to document pixels.
const DefaultPDFDPI = 96.0

var (
	// ErrUnsupportedFormat is returned for bytes that are neither a PDF nor
	// a registered raster format.
	ErrUnsupportedFormat = errors.New("unsupported drawing format")

	// ErrPageOutOfRange is returned for page indexes past the last page.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrNoTextLayer is returned by TextLines for raster drawings.
	ErrNoTextLayer = errors.New("drawing has no text layer")
)

// TextLine is a positioned line of text from a PDF text layer.
type TextLine struct {
	Text   string        `json:"text"`
	Bounds geometry.Rect `json:"bounds"`
}

// PageSize is the size of a page in document pixels.
type PageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Drawing is a decoded drawing.
type Drawing struct {
	Source string
	Format Format
	DPI    float64
	Data   []byte

	sizes []PageSize

	mu      sync.Mutex
	rasters map[int]image.Image
	pdf     *pdfSource
}

// PageCount returns the number of pages.
func (d *Drawing) PageCount() int {
	return len(d.sizes)
}

// PageSize returns the size of page in document pixels.
func (d *Drawing) PageSize(page int) (PageSize, error) {
	if page < 0 || page >= len(d.sizes) {
		return PageSize{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, len(d.sizes))
	}
	return d.sizes[page], nil
}

// Page returns the raster of page. For PDFs it is rendered on first use.
func (d *Drawing) Page(page int) (image.Image, error) {
	size, err := d.PageSize(page)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if img, ok := d.rasters[page]; ok {
		return img, nil
	}
	if d.pdf == nil {
		return nil, fmt.Errorf("%w: page %d", ErrPageOutOfRange, page)
	}

	img, err := d.pdf.render(page, size)
	if err != nil {
		return nil, err
	}
	d.rasters[page] = img
	return img, nil
}

// TextLines returns the text layer of page.
func (d *Drawing) TextLines(page int) ([]TextLine, error) {
	if _, err := d.PageSize(page); err != nil {
		return nil, err
	}
	if d.pdf == nil {
		return nil, ErrNoTextLayer
	}
	return d.pdf.lines(page, d.DPI)
}

// Decode decodes a drawing read from source. PDFs are detected by their
// header; anything else must decode as a registered raster format. A dpi of
// zero uses DefaultPDFDPI.
func Decode(source string, data []byte, dpi float64) (*Drawing, error) {
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}
	d := &Drawing{
		Source:  source,
		DPI:     dpi,
		Data:    data,
		rasters: make(map[int]image.Image),
	}

	if IsPDF(data) {
		src, sizes, err := openPDF(data, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to open PDF %s: %w", source, err)
		}
		d.Format = FormatPDF
		d.pdf = src
		d.sizes = sizes
		return d, nil
	}

	img, format, err := decodeRaster(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", source, err)
	}
	b := img.Bounds()
	d.Format = format
	d.sizes = []PageSize{{Width: b.Dx(), Height: b.Dy()}}
	d.rasters[0] = img
	return d, nil
}

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func decodeRaster(data []byte) (image.Image, Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return img, Format(name), nil
}

// DrawingCache keeps decoded drawings keyed by source so that reloading or
// switching back to a drawing skips the decode.
type DrawingCache struct {
	mu       sync.RWMutex
	drawings map[string]*Drawing
}

// NewDrawingCache creates an empty cache.
func NewDrawingCache() *DrawingCache {
	return &DrawingCache{
		drawings: make(map[string]*Drawing),
	}
}

// Load returns the cached drawing for source, or calls fetch, decodes the
// bytes and caches the result.
func (c *DrawingCache) Load(source string, dpi float64, fetch func() ([]byte, error)) (*Drawing, error) {
	c.mu.RLock()
	if d, ok := c.drawings[source]; ok {
		c.mu.RUnlock()
		return d, nil
	}
	c.mu.RUnlock()

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	d, err := Decode(source, data, dpi)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent load may have finished first; keep its drawing.
	if cached, ok := c.drawings[source]; ok {
		d.Close()
		return cached, nil
	}
	c.drawings[source] = d
	return d, nil
}

// Evict removes source from the cache.
func (c *DrawingCache) Evict(source string) {
	c.mu.Lock()
	if d, ok := c.drawings[source]; ok {
		d.Close()
		delete(c.drawings, source)
	}
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *DrawingCache) Clear() {
	c.mu.Lock()
	for _, d := range c.drawings {
		d.Close()
	}
	c.drawings = make(map[string]*Drawing)
	c.mu.Unlock()
}

// Len returns the number of cached drawings.
func (c *DrawingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.drawings)
}
