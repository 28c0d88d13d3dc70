package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		wantLines   int
		wantRegions int
	}{
		{"lines", `{"lines":[{"text":"A","boundingBox":{"x":0,"y":0,"w":1,"h":1}}]}`, false, 1, 0},
		{"regions", `{"regions":[{"color":"#fff","boundingBox":[0,0,10,10],"confidence":0.5}]}`, false, 0, 1},
		{"both", `{"lines":[],"regions":[]}`, false, 0, 0},
		{"neither", `{"status":"ok"}`, true, 0, 0},
		{"array", `[1,2,3]`, true, 0, 0},
		{"garbage", `not json`, true, 0, 0},
		{"bad box", `{"regions":[{"boundingBox":[1,2,3]}]}`, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ParseOutput(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrUnrecognizedResponse) {
					t.Errorf("error: got %v, want ErrUnrecognizedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutput failed: %v", err)
			}
			if len(out.Lines) != tt.wantLines || len(out.Regions) != tt.wantRegions {
				t.Errorf("got %d lines %d regions", len(out.Lines), len(out.Regions))
			}
		})
	}
}

func TestBoxForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want geometry.Rect
	}{
		{"object", `{"x":5,"y":6,"w":10,"h":4}`, geometry.Rect{X: 5, Y: 6, W: 10, H: 4}},
		{"negative size", `{"x":15,"y":10,"w":-10,"h":-4}`, geometry.Rect{X: 5, Y: 6, W: 10, H: 4}},
		{"xywh array", `[5,6,10,4]`, geometry.Rect{X: 5, Y: 6, W: 10, H: 4}},
		{"polygon", `[5,6, 15,6, 15,10, 5,10]`, geometry.Rect{X: 5, Y: 6, W: 10, H: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Box
			if err := json.Unmarshal([]byte(tt.raw), &b); err != nil {
				t.Fatal(err)
			}
			if b.Rect() != tt.want {
				t.Errorf("got %+v, want %+v", b.Rect(), tt.want)
			}
		})
	}
}

func mergeCtx() MergeContext {
	cal, _ := scale.SetFromDeclaration(96, 4, scale.Feet)
	return MergeContext{Page: 1, Scale: scale.NewConverter(cal, 0, scale.Feet)}
}

func box(x, y, w, h float64) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

func TestMergeRules(t *testing.T) {
	out := Output{
		Lines: []Line{
			{Text: `12'-6"`, BoundingBox: box(100, 200, 60, 12)},
			{Text: "KITCHEN", BoundingBox: box(10, 10, 50, 10)},
			{Text: "3500 mm", BoundingBox: box(0, 0, 10, 80)},
		},
		Regions: []Region{
			{Color: "#00FF00", BoundingBox: box(0, 0, 96, 48), Confidence: 0.8, Label: "BEDROOM"},
			{BoundingBox: box(200, 200, 20, 20), Confidence: 0.6},
		},
	}

	tests := []struct {
		stage string
		want  map[annotation.Kind]int
	}{
		{StageExtractText, map[annotation.Kind]int{}},
		{StageDetectLayout, map[annotation.Kind]int{annotation.KindLinear: 1}},
		{StageAnalyzeColors, map[annotation.Kind]int{annotation.KindHighlight: 2}},
		{StageIdentifyRooms, map[annotation.Kind]int{annotation.KindHighlight: 2, annotation.KindNote: 1}},
		{StageFindOpenings, map[annotation.Kind]int{annotation.KindCount: 2}},
		{StageDetectSymbols, map[annotation.Kind]int{annotation.KindCount: 2}},
		{StageExtractDimensions, map[annotation.Kind]int{annotation.KindLinear: 2}},
		{StageCalculateQuantities, map[annotation.Kind]int{annotation.KindNote: 3}},
		{"custom-stage", map[annotation.Kind]int{annotation.KindHighlight: 2, annotation.KindNote: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			es := StagesFor([]string{tt.stage})[0].Merge(out, mergeCtx())
			got := make(map[annotation.Kind]int)
			for _, e := range es {
				got[e.Kind]++
				if e.Page != 1 {
					t.Errorf("entity page: got %d, want 1", e.Page)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("kinds: got %v, want %v", got, tt.want)
			}
			for k, n := range tt.want {
				if got[k] != n {
					t.Errorf("%s: got %d, want %d", k, got[k], n)
				}
			}
		})
	}
}

func TestMergeHighlightValue(t *testing.T) {
	out := Output{Regions: []Region{{BoundingBox: box(0, 0, 96, 48)}}}
	es := mergeHighlights(out, mergeCtx())
	// 96x48 px is 4 ft by 2 ft
	if math.Abs(es[0].Value-8) > 1e-9 || es[0].Unit != scale.Feet {
		t.Errorf("value: got %v %s, want 8 feet", es[0].Value, es[0].Unit)
	}
	if es[0].Color != annotation.DefaultHighlightColor {
		t.Errorf("color: got %q", es[0].Color)
	}
}

func TestMergeCountsCategory(t *testing.T) {
	out := Output{Regions: []Region{{Label: "window"}, {}}}
	es := mergeCounts("door")(out, mergeCtx())
	if es[0].Category != "window" || es[1].Category != "door" {
		t.Errorf("categories: got %q, %q", es[0].Category, es[1].Category)
	}
}

func TestMergeDimensions(t *testing.T) {
	out := Output{Lines: []Line{
		{Text: `12'-6"`, BoundingBox: box(100, 200, 60, 12)},
		{Text: "3500 mm", BoundingBox: box(0, 0, 10, 80)},
	}}
	es := mergeDimensions(out, mergeCtx())
	if len(es) != 2 {
		t.Fatalf("entities: got %d, want 2", len(es))
	}

	h := es[0]
	if h.Value != 12.5 || h.Unit != scale.Feet {
		t.Errorf("horizontal value: got %v %s", h.Value, h.Unit)
	}
	if *h.P1 != geometry.Pt(100, 206) || *h.P2 != geometry.Pt(160, 206) {
		t.Errorf("horizontal endpoints: got %v %v", *h.P1, *h.P2)
	}

	v := es[1]
	if v.Unit != scale.Meters || math.Abs(v.Value-3.5) > 1e-9 {
		t.Errorf("vertical value: got %v %s", v.Value, v.Unit)
	}
	if v.P1.X != 5 || v.P1.Y != 0 || v.P2.Y != 80 {
		t.Errorf("vertical endpoints: got %v %v", *v.P1, *v.P2)
	}
}

func TestMergeLayout(t *testing.T) {
	out := Output{Regions: []Region{
		{BoundingBox: box(0, 100, 400, 6), Confidence: 1, Label: "wall"},
		{BoundingBox: box(200, 0, 6, 96), Confidence: 1, Label: "wall"},
		{BoundingBox: box(20, 20, 100, 20), Confidence: 0.7, Label: "text-block"},
	}}
	es := mergeLayout(out, mergeCtx())
	if len(es) != 2 {
		t.Fatalf("entities: got %d, want 2", len(es))
	}
	for _, e := range es {
		if e.Kind != annotation.KindLinear || e.Label != "wall" || e.Source != annotation.SourceDetected {
			t.Errorf("entity: got %+v", e)
		}
	}
	if *es[0].P1 != geometry.Pt(0, 103) || *es[0].P2 != geometry.Pt(400, 103) {
		t.Errorf("horizontal run: got %v %v", *es[0].P1, *es[0].P2)
	}
	if *es[1].P1 != geometry.Pt(203, 0) || *es[1].P2 != geometry.Pt(203, 96) {
		t.Errorf("vertical run: got %v %v", *es[1].P1, *es[1].P2)
	}

	// 400 px + 96 px at 96 px = 4 ft
	wantLinear := 400.0*4/96 + 4
	if got := annotation.TotalLinear(es, scale.Feet); math.Abs(got-wantLinear) > 1e-9 {
		t.Errorf("total linear: got %v, want %v", got, wantLinear)
	}
	if got := annotation.TotalArea(es, scale.Feet); got != 0 {
		t.Errorf("total area: got %v, want 0", got)
	}
}
