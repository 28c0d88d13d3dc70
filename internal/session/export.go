package session

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/export"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/imaging"
)

// Snapshot captures the annotations and totals for export.
func (s *Session) Snapshot() export.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := export.Snapshot{
		Project:   s.cfg.Project,
		Entities:  s.store.All(),
		Totals:    s.totals.Totals(),
		CreatedAt: time.Now().UTC(),
	}
	if info, err := s.infoLocked(); err == nil {
		snap.Document = export.Document{
			Source:    info.Source,
			PageCount: info.PageCount,
			Page:      info.Page,
			Width:     info.Width,
			Height:    info.Height,
		}
	}
	si := s.Scale()
	snap.Scale = export.Scale{
		UnitsPerPixel: si.Effective.UnitsPerPixel,
		Unit:          si.Effective.Unit,
		Calibrated:    si.Calibration.Calibrated,
		Assumed:       si.Assumed,
	}
	return snap
}

// ExportResult describes a saved export.
type ExportResult struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Bytes    int    `json:"bytes"`
	Entities int    `json:"entities"`
}

// Export writes the snapshot in format to url through the storage
// collaborator. An empty url derives a name from the drawing. Storage
// failures are returned unchanged.
func (s *Session) Export(ctx context.Context, format, url string) (ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return ExportResult{}, err
	}
	snap := s.Snapshot()
	data, err := export.Marshal(snap, f)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode %s export: %w", f, err)
	}

	if url == "" {
		url = defaultExportName(snap.Document.Source, f)
	}
	if err := s.blobs.Put(ctx, url, data, f.ContentType()); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{URL: url, Format: f.String(), Bytes: len(data), Entities: len(snap.Entities)}, nil
}

func defaultExportName(source string, f export.Format) string {
	base := "annotations"
	if source != "" {
		base = strings.TrimSuffix(path.Base(source), path.Ext(source)) + "-annotations"
	}
	return base + f.FileExtension()
}

// View renders region r of the current page, in document pixels, scaled by
// factor. A nil region renders the whole page.
func (s *Session) View(r *geometry.Rect, factor float64) (*imaging.CropResult, error) {
	s.mu.Lock()
	d, page := s.drawing, s.page
	s.mu.Unlock()
	if d == nil {
		return nil, ErrNoDrawing
	}

	img, err := d.Page(page)
	if err != nil {
		return nil, err
	}
	region := geometry.Rect{W: float64(img.Bounds().Dx()), H: float64(img.Bounds().Dy())}
	if r != nil {
		region = *r
	}
	return imaging.Crop(img, region, factor)
}
