package annotation

import (
	"fmt"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// Kind discriminates entity variants.
type Kind string

const (
	KindLinear    Kind = "linear"
	KindArea      Kind = "area"
	KindHighlight Kind = "highlight"
	KindCount     Kind = "count"
	KindNote      Kind = "note"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindLinear, KindArea, KindHighlight, KindCount, KindNote:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Source records who created an entity.
type Source string

const (
	SourceManual   Source = "manual"
	SourceDetected Source = "detected"
)

// DefaultHighlightColor is used for manual highlights without a colour.
const DefaultHighlightColor = "#FFEB3B"

// Entity is one annotation. Which fields are set depends on Kind.
type Entity struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Page int    `json:"page"`

	P1    *geometry.Point `json:"p1,omitempty"`
	P2    *geometry.Point `json:"p2,omitempty"`
	Rect  *geometry.Rect  `json:"rect,omitempty"`
	Point *geometry.Point `json:"point,omitempty"`

	Value float64    `json:"valueRealUnits,omitempty"`
	Unit  scale.Unit `json:"unit,omitempty"`

	Color      string  `json:"color,omitempty"`
	Category   string  `json:"category,omitempty"`
	Text       string  `json:"text,omitempty"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	Source       Source `json:"source"`
	Stage        string `json:"stage,omitempty"`
	AssumedScale bool   `json:"assumedScale,omitempty"`
	Unscaled     bool   `json:"unscaled,omitempty"`
}

// NewMeasurement builds a linear measurement from p1 to p2.
func NewMeasurement(page int, p1, p2 geometry.Point, v scale.Value) Entity {
	e := Entity{Kind: KindLinear, Page: page, P1: &p1, P2: &p2, Source: SourceManual}
	e.setValue(v)
	return e
}

// NewArea builds an area selection.
func NewArea(page int, r geometry.Rect, v scale.Value) Entity {
	e := Entity{Kind: KindArea, Page: page, Rect: &r, Source: SourceManual}
	e.setValue(v)
	return e
}

// NewHighlight builds a highlight; an empty color gets DefaultHighlightColor.
func NewHighlight(page int, r geometry.Rect, color string, v scale.Value, src Source) Entity {
	if color == "" {
		color = DefaultHighlightColor
	}
	e := Entity{Kind: KindHighlight, Page: page, Rect: &r, Color: color, Source: src}
	e.setValue(v)
	return e
}

// NewCount builds a count marker.
func NewCount(page int, p geometry.Point, category string) Entity {
	return Entity{Kind: KindCount, Page: page, Point: &p, Category: category, Source: SourceManual}
}

// NewNote builds a text note.
func NewNote(page int, p geometry.Point, text string) Entity {
	return Entity{Kind: KindNote, Page: page, Point: &p, Text: text, Source: SourceManual}
}

func (e *Entity) setValue(v scale.Value) {
	e.Value = v.Amount
	e.Unit = v.Unit
	e.AssumedScale = v.Assumed
	e.Unscaled = v.Unscaled
}

// Measured reports whether the entity carries a real-world value.
func (e Entity) Measured() bool {
	switch e.Kind {
	case KindLinear, KindArea, KindHighlight:
		return true
	}
	return false
}

// Power is 1 for lengths and 2 for areas.
func (e Entity) Power() int {
	if e.Kind == KindLinear {
		return 1
	}
	return 2
}

// ValueLabel formats the entity value, or returns "" for unmeasured kinds.
func (e Entity) ValueLabel() string {
	if !e.Measured() {
		return ""
	}
	return scale.LabelValue(scale.Value{
		Amount:   e.Value,
		Unit:     e.Unit,
		Assumed:  e.AssumedScale,
		Unscaled: e.Unscaled,
	}, e.Power())
}

// Anchor is a representative document point for the entity.
func (e Entity) Anchor() geometry.Point {
	switch {
	case e.Point != nil:
		return *e.Point
	case e.Rect != nil:
		return e.Rect.Center()
	case e.P1 != nil && e.P2 != nil:
		return geometry.Pt((e.P1.X+e.P2.X)/2, (e.P1.Y+e.P2.Y)/2)
	}
	return geometry.Point{}
}

// clone copies e so that no pointer field is shared.
func (e Entity) clone() Entity {
	if e.P1 != nil {
		p := *e.P1
		e.P1 = &p
	}
	if e.P2 != nil {
		p := *e.P2
		e.P2 = &p
	}
	if e.Rect != nil {
		r := *e.Rect
		e.Rect = &r
	}
	if e.Point != nil {
		p := *e.Point
		e.Point = &p
	}
	return e
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	Text     *string `json:"text,omitempty"`
	Category *string `json:"category,omitempty"`
	Color    *string `json:"color,omitempty"`
	Label    *string `json:"label,omitempty"`
}

func (p Patch) apply(e *Entity) {
	if p.Text != nil {
		e.Text = *p.Text
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Label != nil {
		e.Label = *p.Label
	}
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Text == nil && p.Category == nil && p.Color == nil && p.Label == nil
}
