package tool

import (
	"math"
	"testing"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
	"github.com/ironsheep/blueprint-mcp/internal/viewport"
)

type fixture struct {
	view  *viewport.Controller
	store *annotation.Store
	cal   scale.Calibration
	page  int
	m     *Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		view:  viewport.New(viewport.DefaultMinScale, viewport.DefaultMaxScale),
		store: annotation.NewStore(),
	}
	cal, err := scale.SetFromDeclaration(96, 4, scale.Feet)
	if err != nil {
		t.Fatal(err)
	}
	f.cal = cal
	f.m = New(Deps{
		Viewport: f.view,
		Store:    f.store,
		Scale:    func() scale.Converter { return scale.NewConverter(f.cal, scale.DefaultUnitsPerPixel(96), scale.Feet) },
		Page:     func() int { return f.page },
	}, DefaultOptions())
	return f
}

func (f *fixture) drag(t *testing.T, tool Name, from, to geometry.Point) Outcome {
	t.Helper()
	if err := f.m.SetTool(tool); err != nil {
		t.Fatal(err)
	}
	f.m.Begin(from)
	f.m.Drag(to)
	return f.m.Commit(to)
}

func TestMeasure_DiscardThreshold(t *testing.T) {
	tests := []struct {
		name      string
		length    float64
		wantCount int
	}{
		{"4px discarded", 4, 0},
		{"6px kept", 6, 1},
		{"5px kept", 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.drag(t, Measure, geometry.Pt(10, 10), geometry.Pt(10+tt.length, 10))
			if got := f.store.Len(); got != tt.wantCount {
				t.Errorf("entities: got %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestMeasure_ThresholdInDocumentSpace(t *testing.T) {
	f := newFixture(t)
	f.view.ZoomBy(4)
	// 16 screen px at 4x zoom is 4 document px
	f.drag(t, Measure, geometry.Pt(0, 0), geometry.Pt(16, 0))
	if f.store.Len() != 0 {
		t.Errorf("entities: got %d, want 0", f.store.Len())
	}
}

func TestMeasure_Scenario(t *testing.T) {
	f := newFixture(t)
	out := f.drag(t, Measure, geometry.Pt(0, 0), geometry.Pt(96, 0))
	if out.Created == nil {
		t.Fatal("no entity created")
	}
	e := out.Created
	if e.Kind != annotation.KindLinear || e.Unit != scale.Feet {
		t.Errorf("entity: got kind %s unit %s", e.Kind, e.Unit)
	}
	if math.Abs(e.Value-4) > 1e-9 {
		t.Errorf("Value: got %v, want 4", e.Value)
	}
	if e.AssumedScale {
		t.Error("AssumedScale should be false when calibrated")
	}
}

func TestArea_Scenario(t *testing.T) {
	f := newFixture(t)
	out := f.drag(t, Area, geometry.Pt(10, 10), geometry.Pt(110, 60))
	if out.Created == nil {
		t.Fatal("no entity created")
	}
	want := geometry.Rect{X: 10, Y: 10, W: 100, H: 50}
	if *out.Created.Rect != want {
		t.Errorf("Rect: got %+v, want %+v", *out.Created.Rect, want)
	}
	if math.Abs(out.Created.Value-8.68) > 0.01 {
		t.Errorf("Value: got %v, want ~8.68", out.Created.Value)
	}
}

func TestArea_ReverseDrag(t *testing.T) {
	f := newFixture(t)
	out := f.drag(t, Highlight, geometry.Pt(110, 60), geometry.Pt(10, 10))
	if out.Created == nil {
		t.Fatal("no entity created")
	}
	if got := *out.Created.Rect; got != (geometry.Rect{X: 10, Y: 10, W: 100, H: 50}) {
		t.Errorf("Rect: got %+v", got)
	}
	if out.Created.Color != annotation.DefaultHighlightColor {
		t.Errorf("Color: got %q", out.Created.Color)
	}
}

func TestArea_DiscardThin(t *testing.T) {
	tests := []struct {
		name string
		to   geometry.Point
	}{
		{"too narrow", geometry.Pt(5, 100)},
		{"too short", geometry.Pt(100, 5)},
		{"both", geometry.Pt(3, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			out := f.drag(t, Area, geometry.Pt(0, 0), tt.to)
			if !out.Discarded || f.store.Len() != 0 {
				t.Errorf("got %+v with %d entities, want discard", out, f.store.Len())
			}
		})
	}
}

func TestDragPreview(t *testing.T) {
	f := newFixture(t)
	f.m.SetTool(Measure)
	f.m.Begin(geometry.Pt(0, 0))
	out := f.m.Drag(geometry.Pt(48, 0))
	if out.Preview == nil || out.Preview.Label != "2 ft" {
		t.Errorf("preview: got %+v, want label 2 ft", out.Preview)
	}
	if f.store.Len() != 0 {
		t.Error("drag must not create entities")
	}
}

func TestOutOfOrderEvents(t *testing.T) {
	f := newFixture(t)
	f.m.SetTool(Measure)

	if out := f.m.Drag(geometry.Pt(10, 10)); !out.Ignored {
		t.Error("Drag without Begin should be ignored")
	}
	if out := f.m.Commit(geometry.Pt(100, 100)); !out.Ignored {
		t.Error("Commit without Begin should be ignored")
	}

	f.m.Begin(geometry.Pt(0, 0))
	f.m.Commit(geometry.Pt(50, 0))
	if out := f.m.Commit(geometry.Pt(80, 0)); !out.Ignored {
		t.Error("second Commit should be ignored")
	}
	if f.store.Len() != 1 {
		t.Errorf("entities: got %d, want 1", f.store.Len())
	}
}

func TestCount(t *testing.T) {
	f := newFixture(t)
	f.m.SetTool(Count)
	f.m.Begin(geometry.Pt(30, 40))
	out := f.m.Commit(geometry.Pt(30, 40))
	if out.Created == nil || out.Created.Category != "door" {
		t.Fatalf("got %+v, want door count", out.Created)
	}

	f.m.SetCategory("window")
	f.m.Begin(geometry.Pt(1, 1))
	f.m.Commit(geometry.Pt(1, 1))
	counts := annotation.CountsByCategory(f.store.All())
	if counts["door"] != 1 || counts["window"] != 1 {
		t.Errorf("counts: got %v", counts)
	}
}

func TestNote(t *testing.T) {
	t.Run("confirm", func(t *testing.T) {
		f := newFixture(t)
		f.page = 2
		f.drag(t, Note, geometry.Pt(5, 5), geometry.Pt(5, 5))
		if _, ok := f.m.PendingNote(); !ok {
			t.Fatal("no pending note")
		}
		out := f.m.ConfirmNote("  verify header size  ")
		if out.Created == nil {
			t.Fatal("note not created")
		}
		if out.Created.Text != "verify header size" || out.Created.Page != 2 {
			t.Errorf("note: got text %q page %d", out.Created.Text, out.Created.Page)
		}
	})

	t.Run("blank text", func(t *testing.T) {
		f := newFixture(t)
		f.drag(t, Note, geometry.Pt(5, 5), geometry.Pt(5, 5))
		if out := f.m.ConfirmNote("   "); !out.Discarded {
			t.Errorf("got %+v, want discarded", out)
		}
		if f.store.Len() != 0 {
			t.Error("blank note created an entity")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		f := newFixture(t)
		f.drag(t, Note, geometry.Pt(5, 5), geometry.Pt(5, 5))
		f.m.CancelNote()
		if out := f.m.ConfirmNote("late"); !out.Ignored {
			t.Errorf("confirm after cancel: got %+v", out)
		}
		if f.store.Len() != 0 {
			t.Error("cancelled note created an entity")
		}
	})
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	created := f.drag(t, Area, geometry.Pt(10, 10), geometry.Pt(110, 60))

	out := f.drag(t, Select, geometry.Pt(50, 30), geometry.Pt(50, 30))
	if out.Selected == nil || out.Selected.ID != created.Created.ID {
		t.Fatalf("selected: got %+v", out.Selected)
	}
	if f.m.Selected() != created.Created.ID {
		t.Errorf("Selected(): got %q", f.m.Selected())
	}

	f.drag(t, Select, geometry.Pt(500, 500), geometry.Pt(500, 500))
	if f.m.Selected() != "" {
		t.Error("selection should clear on a miss")
	}
}

func TestSetTool(t *testing.T) {
	f := newFixture(t)
	if f.m.Active() != Select {
		t.Errorf("initial tool: got %s, want select", f.m.Active())
	}
	if err := f.m.SetTool("lasso"); err == nil {
		t.Error("expected error for unknown tool")
	}
	if f.m.Active() != Select {
		t.Error("failed SetTool changed the active tool")
	}

	f.m.SetTool(Measure)
	f.m.Begin(geometry.Pt(0, 0))
	f.m.SetTool(Area)
	if out := f.m.Commit(geometry.Pt(100, 100)); !out.Ignored {
		t.Error("SetTool should abandon the gesture in progress")
	}
}

func TestUncalibratedUsesDefault(t *testing.T) {
	f := newFixture(t)
	f.cal = scale.Calibration{}
	out := f.drag(t, Measure, geometry.Pt(0, 0), geometry.Pt(24, 0))
	if out.Created == nil {
		t.Fatal("no entity created")
	}
	if !out.Created.AssumedScale || math.Abs(out.Created.Value-1) > 1e-9 {
		t.Errorf("got value %v assumed %v, want 1 ft assumed", out.Created.Value, out.Created.AssumedScale)
	}
}
