package server

import (
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
	"github.com/ironsheep/blueprint-mcp/internal/tool"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func enum(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func toolNames() []string {
	names := make([]string, len(tool.Names))
	for i, n := range tool.Names {
		names[i] = string(n)
	}
	return names
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Drawing
		{
			Name:        "blueprint_load",
			Description: "Load a drawing (PNG, JPEG, GIF, TIFF, BMP or PDF) from a path or http(s) URL. Starts a fresh session: calibration, view, annotations and tool state are reset.",
			InputSchema: object(map[string]interface{}{
				"url":  prop("string", "Path (relative to the storage root), file:// URL or http(s) URL of the drawing"),
				"page": prop("integer", "Page to show, 0-based. Default 0"),
			}, "url"),
		},
		{
			Name:        "blueprint_info",
			Description: "Describe the loaded drawing: source, format, page count, current page and its size in document pixels.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_set_page",
			Description: "Switch to another page of a multi-page drawing. Annotations are kept per page.",
			InputSchema: object(map[string]interface{}{
				"page": prop("integer", "Page index, 0-based"),
			}, "page"),
		},
		{
			Name:        "blueprint_view",
			Description: "Render the current page, or a region of it in document pixels, as a base64 PNG.",
			InputSchema: object(map[string]interface{}{
				"x":     prop("number", "Left edge of the region"),
				"y":     prop("number", "Top edge of the region"),
				"w":     prop("number", "Region width; omit for the whole page"),
				"h":     prop("number", "Region height; omit for the whole page"),
				"scale": prop("number", "Scale factor for the output image. Default 1.0"),
			}),
		},

		// Tools and gestures
		{
			Name:        "blueprint_set_tool",
			Description: "Activate a tool: select, measure, area, count, highlight or note. Abandons any gesture in progress.",
			InputSchema: object(map[string]interface{}{
				"tool":     enum("Tool to activate", toolNames()...),
				"category": prop("string", "Category for the count tool (e.g. door, outlet). Default door"),
				"color":    prop("string", "Colour for the highlight tool as #RRGGBB"),
			}, "tool"),
		},
		{
			Name:        "blueprint_pointer",
			Description: "Send one pointer event, in screen coordinates, to the active tool. A gesture is begin, any number of drag events, then commit. Drag returns a live preview; commit creates the entity unless the gesture is under 5 document pixels.",
			InputSchema: object(map[string]interface{}{
				"phase": enum("Gesture phase", "begin", "drag", "commit"),
				"x":     prop("number", "Screen X"),
				"y":     prop("number", "Screen Y"),
			}, "phase", "x", "y"),
		},
		{
			Name:        "blueprint_click",
			Description: "Click at a screen position: places a count, opens a note or selects the annotation under the pointer, depending on the active tool.",
			InputSchema: object(map[string]interface{}{
				"x": prop("number", "Screen X"),
				"y": prop("number", "Screen Y"),
			}, "x", "y"),
		},
		{
			Name:        "blueprint_note",
			Description: "Confirm the pending note with text, or cancel it. Blank text creates nothing.",
			InputSchema: object(map[string]interface{}{
				"text":   prop("string", "Note text"),
				"cancel": prop("boolean", "Drop the pending note instead"),
			}),
		},

		// Viewport
		{
			Name:        "blueprint_zoom",
			Description: "Multiply the zoom by factor, clamped to the configured range (default 0.25 to 4). With an anchor the point under it stays fixed.",
			InputSchema: object(map[string]interface{}{
				"factor":   prop("number", "Zoom factor, e.g. 1.2 to zoom in or 0.8 to zoom out"),
				"anchor_x": prop("number", "Screen X to zoom around"),
				"anchor_y": prop("number", "Screen Y to zoom around"),
			}, "factor"),
		},
		{
			Name:        "blueprint_pan",
			Description: "Move the view by (dx, dy) screen pixels.",
			InputSchema: object(map[string]interface{}{
				"dx": prop("number", "Horizontal offset"),
				"dy": prop("number", "Vertical offset"),
			}),
		},
		{
			Name:        "blueprint_fit",
			Description: "Reset the view to zoom 1 with no pan.",
			InputSchema: object(map[string]interface{}{}),
		},

		// Scale
		{
			Name:        "blueprint_set_scale",
			Description: "Calibrate the drawing: a known distance in document pixels (or two document points) equals real_value units. Committed annotations keep their values.",
			InputSchema: object(map[string]interface{}{
				"pixel_distance": prop("number", "Distance in document pixels"),
				"x1":             prop("number", "First point X, instead of pixel_distance"),
				"y1":             prop("number", "First point Y"),
				"x2":             prop("number", "Second point X"),
				"y2":             prop("number", "Second point Y"),
				"real_value":     prop("number", "Real length of that distance"),
				"unit":           enum("Unit of real_value. Default feet", "feet", "inches", "meters"),
				"reset":          prop("boolean", "Drop the calibration and use the default scale"),
			}),
		},
		{
			Name:        "blueprint_get_scale",
			Description: "Report the calibration and the scale conversions currently use.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_detect_scale",
			Description: "Find a printed scale such as 1/4\" = 1'-0\" or 1:100 in the page text and calibrate from it.",
			InputSchema: object(map[string]interface{}{}),
		},

		// Annotations
		{
			Name:        "blueprint_list",
			Description: "List annotations of the current page (or another page, or all pages) in creation order.",
			InputSchema: object(map[string]interface{}{
				"page": prop("integer", "Page index; default the current page"),
				"all":  prop("boolean", "List every page"),
				"kind": enum("Only this kind", "linear", "area", "highlight", "count", "note"),
			}),
		},
		{
			Name:        "blueprint_update",
			Description: "Change the text, category, colour or label of an annotation.",
			InputSchema: object(map[string]interface{}{
				"id":       prop("string", "Annotation ID"),
				"text":     prop("string", "Note text"),
				"category": prop("string", "Count category"),
				"color":    prop("string", "Highlight colour"),
				"label":    prop("string", "Label"),
			}, "id"),
		},
		{
			Name:        "blueprint_delete",
			Description: "Delete an annotation. IDs are never reused.",
			InputSchema: object(map[string]interface{}{
				"id": prop("string", "Annotation ID"),
			}, "id"),
		},
		{
			Name:        "blueprint_clear",
			Description: "Delete every annotation. Can be undone.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_undo",
			Description: "Undo the last annotation change.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_redo",
			Description: "Redo the last undone annotation change.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_summary",
			Description: "Totals: linear length, area, and counts by category. Values committed without a scale are reported separately.",
			InputSchema: object(map[string]interface{}{
				"page": prop("integer", "Only this page; default all pages"),
				"unit": enum("Reporting unit", "feet", "inches", "meters"),
			}),
		},
		{
			Name:        "blueprint_export",
			Description: "Write the annotations and totals as JSON or CSV to a path or http(s) URL.",
			InputSchema: object(map[string]interface{}{
				"format": enum("Export format. Default json", "json", "csv"),
				"url":    prop("string", "Destination; default <drawing>-annotations.<ext> under the storage root"),
			}),
		},

		// Analysis
		{
			Name:        "blueprint_run_analysis",
			Description: "Start the analysis pipeline on the current page. Stages run one after another; each settled stage merges its detections and sends a notifications/progress message. A failed stage is reported and the run continues.",
			InputSchema: object(map[string]interface{}{
				"stages": map[string]interface{}{
					"type":        "array",
					"description": "Stage names in order; default the configured list",
					"items":       enum("Stage", pipeline.DefaultStages...),
				},
			}),
		},
		{
			Name:        "blueprint_cancel_analysis",
			Description: "Stop the running analysis before its next stage. Results of finished stages are kept.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "blueprint_analysis_status",
			Description: "Per-stage status of the current or last analysis run.",
			InputSchema: object(map[string]interface{}{}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
