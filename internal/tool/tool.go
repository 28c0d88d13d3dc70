package tool

import (
	"fmt"
	"strings"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
	"github.com/ironsheep/blueprint-mcp/internal/viewport"
)

// Name identifies a tool.
type Name string

const (
	Select    Name = "select"
	Measure   Name = "measure"
	Area      Name = "area"
	Count     Name = "count"
	Highlight Name = "highlight"
	Note      Name = "note"
)

// Names lists every tool.
var Names = []Name{Select, Measure, Area, Count, Highlight, Note}

// ParseName validates a tool name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Options holds the gesture thresholds.
type Options struct {
	MinMeasurePx    float64
	MinRectPx       float64
	DefaultCategory string
	HighlightColor  string
	// HitTolerance is in screen pixels.
	HitTolerance float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MinMeasurePx:    5,
		MinRectPx:       5,
		DefaultCategory: "door",
		HighlightColor:  annotation.DefaultHighlightColor,
		HitTolerance:    6,
	}
}

// Deps are the collaborators a Machine reads and writes.
type Deps struct {
	Viewport *viewport.Controller
	Store    *annotation.Store
	// Scale returns the converter in effect at commit time.
	Scale func() scale.Converter
	// Page returns the current page index.
	Page func() int
}

// Preview is the live geometry of a gesture in progress.
type Preview struct {
	Tool  Name            `json:"tool"`
	P1    *geometry.Point `json:"p1,omitempty"`
	P2    *geometry.Point `json:"p2,omitempty"`
	Rect  *geometry.Rect  `json:"rect,omitempty"`
	Value *scale.Value    `json:"value,omitempty"`
	Label string          `json:"label,omitempty"`
}

// Outcome reports what a gesture event did.
type Outcome struct {
	Tool        Name               `json:"tool"`
	Ignored     bool               `json:"ignored,omitempty"`
	Discarded   bool               `json:"discarded,omitempty"`
	Created     *annotation.Entity `json:"created,omitempty"`
	Selected    *annotation.Entity `json:"selected,omitempty"`
	PendingNote *geometry.Point    `json:"pendingNote,omitempty"`
	Preview     *Preview           `json:"preview,omitempty"`
}

type gesture struct {
	start   geometry.Point
	current geometry.Point
}

type pendingNote struct {
	at   geometry.Point
	page int
}

// Machine is the tool state machine for one session.
type Machine struct {
	opts     Options
	deps     Deps
	active   Name
	category string
	color    string
	gesture  *gesture
	note     *pendingNote
	selected string
}

// New returns a machine with the select tool active.
func New(deps Deps, opts Options) *Machine {
	if deps.Page == nil {
		deps.Page = func() int { return 0 }
	}
	if deps.Scale == nil {
		deps.Scale = func() scale.Converter { return scale.Converter{} }
	}
	return &Machine{
		opts:     opts,
		deps:     deps,
		active:   Select,
		category: opts.DefaultCategory,
		color:    opts.HighlightColor,
	}
}

// SetTool activates name, abandoning any gesture or pending note.
func (m *Machine) SetTool(name Name) error {
	if _, err := ParseName(string(name)); err != nil {
		return err
	}
	m.active = name
	m.gesture = nil
	m.note = nil
	return nil
}

// Active returns the active tool.
func (m *Machine) Active() Name {
	return m.active
}

// SetCategory sets the category used by the count tool. Empty restores the
// default.
func (m *Machine) SetCategory(c string) {
	if c = strings.TrimSpace(c); c == "" {
		c = m.opts.DefaultCategory
	}
	m.category = c
}

// Category returns the count category.
func (m *Machine) Category() string {
	return m.category
}

// SetColor sets the highlight colour. Empty restores the default.
func (m *Machine) SetColor(c string) {
	if c = strings.TrimSpace(c); c == "" {
		c = m.opts.HighlightColor
	}
	m.color = c
}

// Selected returns the ID chosen by the select tool, if any.
func (m *Machine) Selected() string {
	return m.selected
}

// ClearSelection forgets the selected entity.
func (m *Machine) ClearSelection() {
	m.selected = ""
}

// Begin starts a gesture at a screen position.
func (m *Machine) Begin(screen geometry.Point) Outcome {
	doc := m.deps.Viewport.ScreenToDocument(screen)
	m.gesture = &gesture{start: doc, current: doc}
	return Outcome{Tool: m.active}
}

// Drag updates the gesture and returns a live preview for tools that have
// one.
func (m *Machine) Drag(screen geometry.Point) Outcome {
	if m.gesture == nil {
		return Outcome{Tool: m.active, Ignored: true}
	}
	m.gesture.current = m.deps.Viewport.ScreenToDocument(screen)
	p := m.preview()
	return Outcome{Tool: m.active, Preview: p}
}

// Commit finishes the gesture at a screen position.
func (m *Machine) Commit(screen geometry.Point) Outcome {
	g := m.gesture
	m.gesture = nil
	if g == nil {
		return Outcome{Tool: m.active, Ignored: true}
	}
	g.current = m.deps.Viewport.ScreenToDocument(screen)

	switch m.active {
	case Select:
		return m.commitSelect(g)
	case Measure:
		return m.commitMeasure(g)
	case Area, Highlight:
		return m.commitRect(g)
	case Count:
		e := annotation.NewCount(m.deps.Page(), g.start, m.category)
		return m.created(e)
	case Note:
		m.note = &pendingNote{at: g.start, page: m.deps.Page()}
		at := g.start
		return Outcome{Tool: m.active, PendingNote: &at}
	}
	return Outcome{Tool: m.active, Ignored: true}
}

// PendingNote returns the position awaiting note text.
func (m *Machine) PendingNote() (geometry.Point, bool) {
	if m.note == nil {
		return geometry.Point{}, false
	}
	return m.note.at, true
}

// ConfirmNote creates the pending note with text. Blank text, or no pending
// note, creates nothing. The pending note is consumed either way.
func (m *Machine) ConfirmNote(text string) Outcome {
	n := m.note
	m.note = nil
	text = strings.TrimSpace(text)
	if n == nil {
		return Outcome{Tool: m.active, Ignored: true}
	}
	if text == "" {
		return Outcome{Tool: m.active, Discarded: true}
	}
	return m.created(annotation.NewNote(n.page, n.at, text))
}

// CancelNote drops the pending note.
func (m *Machine) CancelNote() {
	m.note = nil
}

func (m *Machine) preview() *Preview {
	g := m.gesture
	conv := m.deps.Scale()
	switch m.active {
	case Measure:
		p1, p2 := g.start, g.current
		v := conv.Convert(geometry.Distance(p1, p2), 1)
		return &Preview{Tool: m.active, P1: &p1, P2: &p2, Value: &v, Label: scale.LabelValue(v, 1)}
	case Area, Highlight:
		r := geometry.RectFromDrag(g.start, g.current)
		v := conv.Convert(geometry.Area(r), 2)
		return &Preview{Tool: m.active, Rect: &r, Value: &v, Label: scale.LabelValue(v, 2)}
	}
	return nil
}

func (m *Machine) commitMeasure(g *gesture) Outcome {
	d := geometry.Distance(g.start, g.current)
	if d < m.opts.MinMeasurePx {
		return Outcome{Tool: m.active, Discarded: true}
	}
	v := m.deps.Scale().Convert(d, 1)
	return m.created(annotation.NewMeasurement(m.deps.Page(), g.start, g.current, v))
}

func (m *Machine) commitRect(g *gesture) Outcome {
	r := geometry.RectFromDrag(g.start, g.current)
	if r.W <= m.opts.MinRectPx || r.H <= m.opts.MinRectPx {
		return Outcome{Tool: m.active, Discarded: true}
	}
	v := m.deps.Scale().Convert(geometry.Area(r), 2)
	page := m.deps.Page()
	if m.active == Highlight {
		return m.created(annotation.NewHighlight(page, r, m.color, v, annotation.SourceManual))
	}
	return m.created(annotation.NewArea(page, r, v))
}

func (m *Machine) commitSelect(g *gesture) Outcome {
	tol := m.opts.HitTolerance / m.deps.Viewport.State().Scale
	e, ok := m.deps.Store.HitTest(m.deps.Page(), g.current, tol)
	if !ok {
		m.selected = ""
		return Outcome{Tool: m.active}
	}
	m.selected = e.ID
	return Outcome{Tool: m.active, Selected: &e}
}

func (m *Machine) created(e annotation.Entity) Outcome {
	id := m.deps.Store.Add(e)
	stored, _ := m.deps.Store.Get(id)
	return Outcome{Tool: m.active, Created: &stored}
}
