package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
	"github.com/ironsheep/blueprint-mcp/internal/session"
)

// callTimeout bounds the synchronous tools that reach a collaborator.
const callTimeout = 2 * time.Minute

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "blueprint_load", "blueprint_pointer").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	Meta struct {
		ProgressToken interface{} `json:"progressToken,omitempty"`
	} `json:"_meta"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000;
// arguments that do not decode return -32602.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(&params)
	if err != nil {
		var perr *paramsError
		if errors.As(err, &perr) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// paramsError marks arguments that could not be decoded or are missing.
type paramsError struct {
	err error
}

func (e *paramsError) Error() string { return e.err.Error() }

func (e *paramsError) Unwrap() error { return e.err }

// decode unmarshals tool arguments. Absent arguments leave v at its zero
// value.
func decode(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramsError{err}
	}
	return nil
}

func missing(field string) error {
	return &paramsError{fmt.Errorf("%s is required", field)}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(p *ToolCallParams) (interface{}, error) {
	args := p.Arguments
	switch p.Name {
	// Drawing
	case "blueprint_load":
		return s.handleLoad(args)
	case "blueprint_info":
		return s.session.Info()
	case "blueprint_set_page":
		return s.handleSetPage(args)
	case "blueprint_view":
		return s.handleView(args)

	// Tools and gestures
	case "blueprint_set_tool":
		return s.handleSetTool(args)
	case "blueprint_pointer":
		return s.handlePointer(args)
	case "blueprint_click":
		return s.handleClick(args)
	case "blueprint_note":
		return s.handleNote(args)

	// Viewport
	case "blueprint_zoom":
		return s.handleZoom(args)
	case "blueprint_pan":
		return s.handlePan(args)
	case "blueprint_fit":
		return s.session.Fit(), nil

	// Scale
	case "blueprint_set_scale":
		return s.handleSetScale(args)
	case "blueprint_get_scale":
		return s.session.Scale(), nil
	case "blueprint_detect_scale":
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return s.session.DetectScale(ctx)

	// Annotations
	case "blueprint_list":
		return s.handleList(args)
	case "blueprint_update":
		return s.handleUpdate(args)
	case "blueprint_delete":
		return s.handleDelete(args)
	case "blueprint_clear":
		s.session.Clear()
		return map[string]interface{}{"cleared": true}, nil
	case "blueprint_undo":
		return map[string]interface{}{"undone": s.session.Undo()}, nil
	case "blueprint_redo":
		return map[string]interface{}{"redone": s.session.Redo()}, nil
	case "blueprint_summary":
		return s.handleSummary(args)
	case "blueprint_export":
		return s.handleExport(args)

	// Analysis
	case "blueprint_run_analysis":
		return s.handleRunAnalysis(args, p.Meta.ProgressToken)
	case "blueprint_cancel_analysis":
		return map[string]interface{}{"cancelled": s.session.CancelAnalysis()}, nil
	case "blueprint_analysis_status":
		st, ok := s.session.AnalysisStatus()
		if !ok {
			return nil, errors.New("no analysis has been started")
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", p.Name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Drawing Handlers ===

type loadArgs struct {
	URL  string `json:"url"`
	Page int    `json:"page"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		return nil, missing("url")
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return s.session.Load(ctx, a.URL, a.Page)
}

type pageArgs struct {
	Page *int `json:"page"`
}

func (s *Server) handleSetPage(args json.RawMessage) (interface{}, error) {
	var a pageArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Page == nil {
		return nil, missing("page")
	}
	return s.session.SetPage(*a.Page)
}

type viewArgs struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleView(args json.RawMessage) (interface{}, error) {
	var a viewArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	var region *geometry.Rect
	if a.W != 0 || a.H != 0 {
		r := geometry.RectFromDrag(geometry.Pt(a.X, a.Y), geometry.Pt(a.X+a.W, a.Y+a.H))
		region = &r
	}
	return s.session.View(region, a.Scale)
}

// === Tool and Gesture Handlers ===

type setToolArgs struct {
	Tool     string `json:"tool"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

func (s *Server) handleSetTool(args json.RawMessage) (interface{}, error) {
	var a setToolArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Tool == "" {
		return nil, missing("tool")
	}
	return s.session.SetTool(a.Tool, a.Category, a.Color)
}

type pointArgs struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (a pointArgs) point() (geometry.Point, error) {
	if a.X == nil || a.Y == nil {
		return geometry.Point{}, missing("x and y")
	}
	return geometry.Pt(*a.X, *a.Y), nil
}

type pointerArgs struct {
	Phase string `json:"phase"`
	pointArgs
}

func (s *Server) handlePointer(args json.RawMessage) (interface{}, error) {
	var a pointerArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}
	return s.session.Pointer(a.Phase, p)
}

func (s *Server) handleClick(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	p, err := a.point()
	if err != nil {
		return nil, err
	}
	return s.session.Click(p)
}

type noteArgs struct {
	Text   string `json:"text"`
	Cancel bool   `json:"cancel"`
}

func (s *Server) handleNote(args json.RawMessage) (interface{}, error) {
	var a noteArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Cancel {
		s.session.CancelNote()
		return s.session.Tool(), nil
	}
	return s.session.ConfirmNote(a.Text), nil
}

// === Viewport Handlers ===

type zoomArgs struct {
	Factor  float64  `json:"factor"`
	AnchorX *float64 `json:"anchor_x"`
	AnchorY *float64 `json:"anchor_y"`
}

func (s *Server) handleZoom(args json.RawMessage) (interface{}, error) {
	var a zoomArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Factor == 0 {
		return nil, missing("factor")
	}
	var anchor *geometry.Point
	if a.AnchorX != nil && a.AnchorY != nil {
		p := geometry.Pt(*a.AnchorX, *a.AnchorY)
		anchor = &p
	}
	return s.session.ZoomBy(a.Factor, anchor)
}

type panArgs struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handlePan(args json.RawMessage) (interface{}, error) {
	var a panArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	return s.session.PanBy(a.DX, a.DY), nil
}

// === Scale Handlers ===

type setScaleArgs struct {
	PixelDistance float64  `json:"pixel_distance"`
	X1            *float64 `json:"x1"`
	Y1            *float64 `json:"y1"`
	X2            *float64 `json:"x2"`
	Y2            *float64 `json:"y2"`
	RealValue     float64  `json:"real_value"`
	Unit          string   `json:"unit"`
	Reset         bool     `json:"reset"`
}

func (s *Server) handleSetScale(args json.RawMessage) (interface{}, error) {
	var a setScaleArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.Reset {
		return s.session.ResetScale(), nil
	}
	if a.Unit == "" {
		a.Unit = string(scale.Feet)
	}
	unit, err := scale.ParseUnit(a.Unit)
	if err != nil {
		return nil, &paramsError{err}
	}
	if a.X1 != nil && a.Y1 != nil && a.X2 != nil && a.Y2 != nil {
		return s.session.SetScaleFromPoints(geometry.Pt(*a.X1, *a.Y1), geometry.Pt(*a.X2, *a.Y2), a.RealValue, unit)
	}
	return s.session.SetScale(a.PixelDistance, a.RealValue, unit)
}

// === Annotation Handlers ===

type listArgs struct {
	Page *int   `json:"page"`
	All  bool   `json:"all"`
	Kind string `json:"kind"`
}

func (s *Server) handleList(args json.RawMessage) (interface{}, error) {
	var a listArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	page := s.session.Page()
	switch {
	case a.All:
		page = -1
	case a.Page != nil:
		page = *a.Page
	}

	entities := s.session.Entities(page)
	if a.Kind != "" {
		kind, err := annotation.ParseKind(a.Kind)
		if err != nil {
			return nil, &paramsError{err}
		}
		filtered := entities[:0]
		for _, e := range entities {
			if e.Kind == kind {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}
	if entities == nil {
		entities = []annotation.Entity{}
	}
	return map[string]interface{}{
		"count":    len(entities),
		"entities": entities,
	}, nil
}

type updateArgs struct {
	ID string `json:"id"`
	annotation.Patch
}

func (s *Server) handleUpdate(args json.RawMessage) (interface{}, error) {
	var a updateArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, missing("id")
	}
	if a.Patch.Empty() {
		return nil, &paramsError{errors.New("nothing to update")}
	}
	if !s.session.Update(a.ID, a.Patch) {
		return nil, fmt.Errorf("no annotation with id %s", a.ID)
	}
	e, _ := s.session.Entity(a.ID)
	return e, nil
}

type idArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleDelete(args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, missing("id")
	}
	return map[string]interface{}{"id": a.ID, "deleted": s.session.Delete(a.ID)}, nil
}

type summaryArgs struct {
	Page *int   `json:"page"`
	Unit string `json:"unit"`
}

func (s *Server) handleSummary(args json.RawMessage) (interface{}, error) {
	var a summaryArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	var unit scale.Unit
	if a.Unit != "" {
		u, err := scale.ParseUnit(a.Unit)
		if err != nil {
			return nil, &paramsError{err}
		}
		unit = u
	}
	page := -1
	if a.Page != nil {
		page = *a.Page
	}
	return s.session.Summary(page, unit)
}

type exportArgs struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return s.session.Export(ctx, a.Format, a.URL)
}

// === Analysis Handlers ===

type runAnalysisArgs struct {
	Stages []string `json:"stages"`
}

// handleRunAnalysis starts a run and returns at once. Each settled stage is
// reported with a notifications/progress message carrying the client's
// progress token, or "analysis-<run>" when the client sent none.
func (s *Server) handleRunAnalysis(args json.RawMessage, token interface{}) (interface{}, error) {
	var a runAnalysisArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}

	st, err := s.session.RunAnalysis(a.Stages, func(p session.Progress) {
		tok := token
		if tok == nil {
			tok = fmt.Sprintf("analysis-%d", p.Run)
		}
		res := p.Result
		msg := fmt.Sprintf("%s %s", res.Stage, res.Status)
		if res.Err != nil {
			msg = res.Err.Error()
		}
		s.notify("notifications/progress", map[string]interface{}{
			"progressToken": tok,
			"progress":      res.Index + 1,
			"total":         p.Total,
			"message":       msg,
		})
	})
	if err != nil {
		if errors.Is(err, session.ErrNoDrawing) {
			return nil, fmt.Errorf("load a drawing before running analysis: %w", err)
		}
		return nil, err
	}
	return st, nil
}
