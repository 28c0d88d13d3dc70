// Package server implements the MCP (Model Context Protocol) server for the
// blueprint measurement tools.
//
// The server exposes one measurement session over JSON-RPC 2.0 on stdio. A
// client loads a drawing, calibrates it, drives the drawing tools with
// pointer events in screen coordinates and reads back annotations and
// totals. The analysis pipeline runs in the background and reports each
// settled stage as a notifications/progress message.
//
// # Protocol
//
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods: initialize, tools/list, tools/call and ping.
//
// # Available Tools
//
// Drawing:
//   - blueprint_load, blueprint_info, blueprint_set_page, blueprint_view
//
// Tools and gestures:
//   - blueprint_set_tool: select, measure, area, count, highlight or note
//   - blueprint_pointer: begin, drag and commit events
//   - blueprint_click, blueprint_note
//
// Viewport:
//   - blueprint_zoom, blueprint_pan, blueprint_fit
//
// Scale:
//   - blueprint_set_scale, blueprint_get_scale, blueprint_detect_scale
//
// Annotations:
//   - blueprint_list, blueprint_update, blueprint_delete, blueprint_clear
//   - blueprint_undo, blueprint_redo
//   - blueprint_summary, blueprint_export
//
// Analysis:
//   - blueprint_run_analysis, blueprint_cancel_analysis,
//     blueprint_analysis_status
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: arguments that do not decode or a missing required argument
//   - -32000: the tool ran and failed
//   - -32601: unknown method
//   - -32700: a line that is not JSON
//
// The data field carries the Go error string.
//
// # Usage
//
//	sess := session.New(cfg, session.Deps{})
//	srv := server.New(sess, cfg.Debug())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
