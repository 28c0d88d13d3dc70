package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

const pointsPerInch = 72.0

// pdfSource keeps a decoded PDF on disk; the PDF reader works on files.
type pdfSource struct {
	path    string
	heights []float64 // page heights in points
}

func openPDF(data []byte, dpi float64) (*pdfSource, []PageSize, error) {
	f, err := os.CreateTemp("", "blueprint-*.pdf")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	f.Close()

	src := &pdfSource{path: path}
	sizes, err := src.measure(dpi)
	if err != nil {
		src.close()
		return nil, nil, err
	}
	return src, sizes, nil
}

func (s *pdfSource) measure(dpi float64) ([]PageSize, error) {
	r, err := reader.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	n, err := r.PageCount()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	k := dpi / pointsPerInch
	sizes := make([]PageSize, n)
	s.heights = make([]float64, n)
	for i := 0; i < n; i++ {
		page, err := r.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		w, err := page.Width()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		h, err := page.Height()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		s.heights[i] = h
		sizes[i] = PageSize{
			Width:  int(math.Round(w * k)),
			Height: int(math.Round(h * k)),
		}
	}
	return sizes, nil
}

// render returns the largest embedded image on page scaled to size, or a
// blank sheet when the page has none.
func (s *pdfSource) render(page int, size PageSize) (image.Image, error) {
	r, err := reader.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p, err := r.GetPage(page)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page+1, err)
	}
	images, err := r.ExtractPageImages(p)
	if err != nil {
		return nil, fmt.Errorf("page %d images: %w", page+1, err)
	}

	var best *reader.PageImage
	for i := range images {
		if best == nil || images[i].Width*images[i].Height > best.Width*best.Height {
			best = &images[i]
		}
	}
	if best == nil {
		return imaging.New(size.Width, size.Height, color.White), nil
	}

	data, err := best.ToPNG()
	if err != nil {
		return nil, fmt.Errorf("page %d image %s: %w", page+1, best.Name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("page %d image %s: %w", page+1, best.Name, err)
	}
	if b := img.Bounds(); b.Dx() == size.Width && b.Dy() == size.Height {
		return img, nil
	}
	return imaging.Resize(img, size.Width, size.Height, imaging.Lanczos), nil
}

// lines extracts the text layer of page and flips it into top-left
// document coordinates.
func (s *pdfSource) lines(page int, dpi float64) ([]TextLine, error) {
	extracted, err := tabula.Open(s.path).Pages(page + 1).Lines()
	if err != nil {
		return nil, fmt.Errorf("page %d text: %w", page+1, err)
	}

	k := dpi / pointsPerInch
	pageH := s.heights[page]
	out := make([]TextLine, 0, len(extracted))
	for _, l := range extracted {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		out = append(out, TextLine{
			Text: text,
			Bounds: geometry.Rect{
				X: l.BBox.X * k,
				Y: (pageH - l.BBox.Y - l.BBox.Height) * k,
				W: l.BBox.Width * k,
				H: l.BBox.Height * k,
			},
		})
	}
	return out, nil
}

func (s *pdfSource) close() {
	os.Remove(s.path)
}

// Close releases the temporary files of a PDF drawing.
func (d *Drawing) Close() {
	if d.pdf != nil {
		d.pdf.close()
	}
}
