package server

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()
	if len(tools) != 25 {
		t.Errorf("got %d tools, want 25", len(tools))
	}

	seen := make(map[string]bool)
	for _, tool := range tools {
		if seen[tool.Name] {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		seen[tool.Name] = true
		if !strings.HasPrefix(tool.Name, "blueprint_") {
			t.Errorf("%s: missing blueprint_ prefix", tool.Name)
		}
		if tool.Description == "" {
			t.Errorf("%s: empty description", tool.Name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.InputSchema["type"] != "object" {
				t.Errorf("schema type: got %v", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatalf("properties is %T", tool.InputSchema["properties"])
			}
			for name, p := range props {
				pm, ok := p.(map[string]interface{})
				if !ok {
					t.Errorf("property %s is %T", name, p)
					continue
				}
				if pm["type"] == nil || pm["description"] == nil {
					t.Errorf("property %s: missing type or description", name)
				}
			}
			if req, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range req {
					if _, ok := props[r]; !ok {
						t.Errorf("required %s is not a property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_Enums(t *testing.T) {
	var setTool, run Tool
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case "blueprint_set_tool":
			setTool = tool
		case "blueprint_run_analysis":
			run = tool
		}
	}

	toolEnum := setTool.InputSchema["properties"].(map[string]interface{})["tool"].(map[string]interface{})["enum"].([]string)
	want := []string{"select", "measure", "area", "count", "highlight", "note"}
	if strings.Join(toolEnum, ",") != strings.Join(want, ",") {
		t.Errorf("tool enum: got %v, want %v", toolEnum, want)
	}

	stages := run.InputSchema["properties"].(map[string]interface{})["stages"].(map[string]interface{})
	if stages["type"] != "array" {
		t.Errorf("stages type: got %v", stages["type"])
	}
	items := stages["items"].(map[string]interface{})["enum"].([]string)
	if len(items) != 8 || items[0] != "extract-text" {
		t.Errorf("stage enum: got %v", items)
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list: got %+v", resp)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Result.Tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools over the wire", len(decoded.Result.Tools))
	}
	if decoded.Result.Tools[0].Name != "blueprint_load" {
		t.Errorf("first tool: got %s", decoded.Result.Tools[0].Name)
	}
}
