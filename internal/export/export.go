package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// Format is an export file format.
type Format int

const (
	FormatJSON Format = iota
	FormatCSV
)

// ParseFormat accepts "json" and "csv".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("unknown export format %q", s)
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// FileExtension returns the usual extension, dot included.
func (f Format) FileExtension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	default:
		return ".json"
	}
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// Scale is the calibration recorded in a snapshot.
type Scale struct {
	UnitsPerPixel float64    `json:"unitsPerPixel"`
	Unit          scale.Unit `json:"unit"`
	Calibrated    bool       `json:"calibrated"`
	Assumed       bool       `json:"assumed,omitempty"`
}

// Document identifies the exported drawing.
type Document struct {
	Source    string `json:"source"`
	PageCount int    `json:"pageCount"`
	Page      int    `json:"page"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Snapshot is the export contract.
type Snapshot struct {
	Project   string              `json:"project"`
	Document  Document            `json:"document"`
	Scale     Scale               `json:"scale"`
	Entities  []annotation.Entity `json:"entities"`
	Totals    annotation.Totals   `json:"totals"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Write encodes snap to w.
func Write(w io.Writer, snap Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, snap)
	case FormatCSV:
		return WriteCSV(w, snap)
	}
	return fmt.Errorf("unsupported export format %v", f)
}

// Marshal encodes snap in memory.
func Marshal(snap Snapshot, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes snap as indented JSON.
func WriteJSON(w io.Writer, snap Snapshot) error {
	if snap.Entities == nil {
		snap.Entities = []annotation.Entity{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// CSVHeader lists the CSV columns.
var CSVHeader = []string{
	"id", "kind", "page", "source", "stage",
	"x1", "y1", "x2", "y2", "width", "height",
	"value", "unit", "label", "category", "color", "text",
	"assumed_scale", "unscaled",
}

// WriteCSV writes one row per entity followed by total rows.
func WriteCSV(w io.Writer, snap Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range snap.Entities {
		if err := cw.Write(entityRow(e)); err != nil {
			return err
		}
	}

	t := snap.Totals
	totals := [][]string{
		totalRow("total_linear", t.Linear, t.Unit, t.LinearLabel),
		totalRow("total_area", t.Area, t.Unit, t.AreaLabel),
	}
	for _, c := range t.Categories() {
		row := make([]string, len(CSVHeader))
		row[0], row[1] = "count_"+c, "total"
		row[11] = strconv.Itoa(t.Counts[c])
		row[14] = c
		totals = append(totals, row)
	}
	if err := cw.WriteAll(totals); err != nil {
		return err
	}
	return cw.Error()
}

func entityRow(e annotation.Entity) []string {
	row := make([]string, len(CSVHeader))
	row[0] = e.ID
	row[1] = string(e.Kind)
	row[2] = strconv.Itoa(e.Page)
	row[3] = string(e.Source)
	row[4] = e.Stage

	switch {
	case e.P1 != nil && e.P2 != nil:
		row[5], row[6] = num(e.P1.X), num(e.P1.Y)
		row[7], row[8] = num(e.P2.X), num(e.P2.Y)
	case e.Rect != nil:
		row[5], row[6] = num(e.Rect.X), num(e.Rect.Y)
		row[7], row[8] = num(e.Rect.X+e.Rect.W), num(e.Rect.Y+e.Rect.H)
		row[9], row[10] = num(e.Rect.W), num(e.Rect.H)
	case e.Point != nil:
		row[5], row[6] = num(e.Point.X), num(e.Point.Y)
	}

	if e.Measured() {
		row[11] = num(e.Value)
		row[12] = string(e.Unit)
		row[13] = e.ValueLabel()
	} else if e.Label != "" {
		row[13] = e.Label
	}
	row[14] = e.Category
	row[15] = e.Color
	row[16] = e.Text
	row[17] = strconv.FormatBool(e.AssumedScale)
	row[18] = strconv.FormatBool(e.Unscaled)
	return row
}

func totalRow(name string, v float64, u scale.Unit, label string) []string {
	row := make([]string, len(CSVHeader))
	row[0], row[1] = name, "total"
	row[11] = num(v)
	row[12] = string(u)
	row[13] = label
	return row
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
