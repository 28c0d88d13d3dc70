package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/config"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/imaging"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
	"github.com/ironsheep/blueprint-mcp/internal/storage"
	"github.com/ironsheep/blueprint-mcp/internal/tool"
	"github.com/ironsheep/blueprint-mcp/internal/viewport"
	"github.com/ironsheep/blueprint-mcp/internal/vision"
)

var (
	// ErrNoDrawing is returned by operations that need a loaded drawing.
	ErrNoDrawing = errors.New("no drawing loaded")

	// ErrAnalysisRunning is returned when a run is started while another is
	// active.
	ErrAnalysisRunning = errors.New("analysis already running")
)

// Deps are the collaborators of a session. Nil fields get defaults built
// from the configuration.
type Deps struct {
	Blobs   storage.Blob
	Service pipeline.Service
	Cache   *imaging.DrawingCache
}

// DrawingInfo describes the loaded drawing and current page.
type DrawingInfo struct {
	Source    string         `json:"source"`
	Format    imaging.Format `json:"format"`
	PageCount int            `json:"pageCount"`
	Page      int            `json:"page"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	DPI       float64        `json:"dpi"`
}

// Session is one engine instance.
type Session struct {
	cfg   *config.Config
	blobs storage.Blob
	svc   pipeline.Service
	cache *imaging.DrawingCache

	calMu sync.RWMutex
	cal   scale.Calibration

	mu       sync.Mutex
	drawing  *imaging.Drawing
	page     int
	view     *viewport.Controller
	tools    *tool.Machine
	store    *annotation.Store
	totals   *annotation.Aggregator
	analysis *analysis
}

// New creates an empty session.
func New(cfg *config.Config, deps Deps) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Cache == nil {
		deps.Cache = imaging.NewDrawingCache()
	}
	if deps.Blobs == nil {
		deps.Blobs = storage.NewRouter(cfg.Storage.Root)
	}
	if deps.Service == nil {
		deps.Service = NewService(cfg, deps.Cache, deps.Blobs)
	}

	s := &Session{
		cfg:   cfg,
		blobs: deps.Blobs,
		svc:   deps.Service,
		cache: deps.Cache,
	}
	s.reset()
	return s
}

// NewService picks the analysis service: the remote endpoint when one is
// configured, otherwise the built-in detectors.
func NewService(cfg *config.Config, cache *imaging.DrawingCache, blobs storage.Blob) pipeline.Service {
	if cfg.Vision.Endpoint != "" {
		log.Printf("Using vision endpoint %s", cfg.Vision.Endpoint)
		return vision.NewHTTPClient(cfg.Vision.Endpoint, cfg.Vision.APIKey)
	}
	return vision.NewLocalService(vision.DefaultLocalOptions(), cache, blobs.Get)
}

// reset replaces every per-drawing component. Callers hold s.mu or own s
// exclusively.
func (s *Session) reset() {
	s.page = 0
	s.view = viewport.New(s.cfg.Viewport.MinScale, s.cfg.Viewport.MaxScale)
	s.store = annotation.NewStore()
	s.totals = annotation.NewAggregator(s.store, s.cfg.Scale.DefaultUnit)
	s.tools = tool.New(tool.Deps{
		Viewport: s.view,
		Store:    s.store,
		Scale:    s.Converter,
		Page:     func() int { return s.page },
	}, s.cfg.ToolOptions())

	s.calMu.Lock()
	s.cal = scale.Calibration{}
	s.calMu.Unlock()
}

// Load reads a drawing from storage and makes page its current page. The
// calibration, viewport, annotations and tool state start fresh; any
// running analysis is cancelled.
func (s *Session) Load(ctx context.Context, url string, page int) (DrawingInfo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return DrawingInfo{}, errors.New("drawing location is required")
	}
	d, err := s.cache.Load(url, s.cfg.Scale.AssumedDPI, func() ([]byte, error) {
		return s.blobs.Get(ctx, url)
	})
	if err != nil {
		return DrawingInfo{}, err
	}
	if _, err := d.PageSize(page); err != nil {
		return DrawingInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	if s.drawing != nil && s.drawing != d {
		s.cache.Evict(s.drawing.Source)
	}
	s.reset()
	s.drawing = d
	s.page = page
	log.Printf("Loaded %s (%s, %d pages)", url, d.Format, d.PageCount())
	return s.infoLocked()
}

// Info describes the loaded drawing.
func (s *Session) Info() (DrawingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() (DrawingInfo, error) {
	if s.drawing == nil {
		return DrawingInfo{}, ErrNoDrawing
	}
	size, err := s.drawing.PageSize(s.page)
	if err != nil {
		return DrawingInfo{}, err
	}
	return DrawingInfo{
		Source:    s.drawing.Source,
		Format:    s.drawing.Format,
		PageCount: s.drawing.PageCount(),
		Page:      s.page,
		Width:     size.Width,
		Height:    size.Height,
		DPI:       s.drawing.DPI,
	}, nil
}

// SetPage switches the current page. Annotations on other pages are kept;
// any gesture in progress is abandoned.
func (s *Session) SetPage(page int) (DrawingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing == nil {
		return DrawingInfo{}, ErrNoDrawing
	}
	if _, err := s.drawing.PageSize(page); err != nil {
		return DrawingInfo{}, err
	}
	s.page = page
	s.tools.SetTool(s.tools.Active())
	s.tools.ClearSelection()
	return s.infoLocked()
}

// Page returns the current page index.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// ToolState is the active tool and its settings.
type ToolState struct {
	Tool        tool.Name       `json:"tool"`
	Category    string          `json:"category"`
	Selected    string          `json:"selected,omitempty"`
	PendingNote *geometry.Point `json:"pendingNote,omitempty"`
}

// SetTool activates a tool. category applies to the count tool and color to
// the highlight tool; empty values keep the current setting.
func (s *Session) SetTool(name, category, color string) (ToolState, error) {
	n, err := tool.ParseName(name)
	if err != nil {
		return ToolState{}, err
	}
	if color != "" {
		if _, err := imaging.ParseHex(color); err != nil {
			return ToolState{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tools.SetTool(n); err != nil {
		return ToolState{}, err
	}
	if category != "" {
		s.tools.SetCategory(category)
	}
	if color != "" {
		s.tools.SetColor(strings.ToUpper(color))
	}
	return s.toolStateLocked(), nil
}

// Tool reports the tool state.
func (s *Session) Tool() ToolState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolStateLocked()
}

func (s *Session) toolStateLocked() ToolState {
	st := ToolState{
		Tool:     s.tools.Active(),
		Category: s.tools.Category(),
		Selected: s.tools.Selected(),
	}
	if p, ok := s.tools.PendingNote(); ok {
		st.PendingNote = &p
	}
	return st
}

// Gesture phases.
const (
	PhaseBegin  = "begin"
	PhaseDrag   = "drag"
	PhaseCommit = "commit"
)

// Pointer feeds one gesture event, in screen coordinates, to the active
// tool.
func (s *Session) Pointer(phase string, screen geometry.Point) (tool.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing == nil {
		return tool.Outcome{}, ErrNoDrawing
	}
	switch strings.ToLower(phase) {
	case PhaseBegin:
		return s.tools.Begin(screen), nil
	case PhaseDrag:
		return s.tools.Drag(screen), nil
	case PhaseCommit:
		return s.tools.Commit(screen), nil
	}
	return tool.Outcome{}, fmt.Errorf("unknown gesture phase %q", phase)
}

// Click is a begin and commit at the same point.
func (s *Session) Click(screen geometry.Point) (tool.Outcome, error) {
	if _, err := s.Pointer(PhaseBegin, screen); err != nil {
		return tool.Outcome{}, err
	}
	return s.Pointer(PhaseCommit, screen)
}

// ConfirmNote completes the note started by the note tool.
func (s *Session) ConfirmNote(text string) tool.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools.ConfirmNote(text)
}

// CancelNote drops the pending note.
func (s *Session) CancelNote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.CancelNote()
}

// ZoomBy scales the view. With an anchor the document point under it stays
// put.
func (s *Session) ZoomBy(factor float64, anchor *geometry.Point) (viewport.State, error) {
	if factor <= 0 {
		return viewport.State{}, fmt.Errorf("zoom factor must be positive, got %g", factor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if anchor != nil {
		s.view.ZoomAt(factor, *anchor)
	} else {
		s.view.ZoomBy(factor)
	}
	return s.view.State(), nil
}

// PanBy moves the view.
func (s *Session) PanBy(dx, dy float64) viewport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PanBy(dx, dy)
	return s.view.State()
}

// Fit restores the default view.
func (s *Session) Fit() viewport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.FitToDefault()
	return s.view.State()
}

// Viewport returns the view state.
func (s *Session) Viewport() viewport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.State()
}

// ToDocument maps a screen point into document space.
func (s *Session) ToDocument(p geometry.Point) geometry.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ScreenToDocument(p)
}

// ToScreen maps a document point into screen space.
func (s *Session) ToScreen(p geometry.Point) geometry.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.DocumentToScreen(p)
}

// Entities lists the annotations of page in insertion order. A negative
// page lists every page.
func (s *Session) Entities(page int) []annotation.Entity {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()
	if page < 0 {
		return store.All()
	}
	return store.ListByPage(page)
}

// Entity returns one annotation.
func (s *Session) Entity(id string) (annotation.Entity, bool) {
	return s.currentStore().Get(id)
}

// Delete removes an annotation. Deleting the selected entity clears the
// selection.
func (s *Session) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tools.Selected() == id {
		s.tools.ClearSelection()
	}
	return s.store.Remove(id)
}

// Update patches an annotation.
func (s *Session) Update(id string, p annotation.Patch) bool {
	return s.currentStore().Update(id, p)
}

// Clear removes every annotation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.ClearSelection()
	s.store.ClearAll()
}

// Undo reverts the last store mutation.
func (s *Session) Undo() bool {
	return s.currentStore().Undo()
}

// Redo reapplies the last undone mutation.
func (s *Session) Redo() bool {
	return s.currentStore().Redo()
}

// Summary returns the totals over every page, or over page when it is not
// negative. A non-empty unit changes the reporting unit.
func (s *Session) Summary(page int, unit scale.Unit) (annotation.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if unit != "" {
		if !unit.IsLength() {
			return annotation.Totals{}, fmt.Errorf("totals unit %q: want feet, inches or meters", unit)
		}
		s.totals.SetUnit(unit)
	}
	if page < 0 {
		return s.totals.Totals(), nil
	}
	return s.totals.PageTotals(page), nil
}

func (s *Session) currentStore() *annotation.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}
