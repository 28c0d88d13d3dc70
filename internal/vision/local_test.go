package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
)

func fillRect(img *image.RGBA, x, y, w, h int, c color.Color) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.Set(xx, yy, c)
		}
	}
}

// floorPlanPNG draws two rooms joined by a door with a swing arc, a
// highlighter stroke in the left room and a fixture symbol in the right.
func floorPlanPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	fillRect(img, 0, 0, 400, 300, color.White)
	fillRect(img, 20, 20, 360, 4, color.Black)
	fillRect(img, 20, 276, 360, 4, color.Black)
	fillRect(img, 20, 20, 4, 260, color.Black)
	fillRect(img, 376, 20, 4, 260, color.Black)
	fillRect(img, 178, 20, 4, 100, color.Black)
	fillRect(img, 178, 160, 4, 120, color.Black)
	for i := 0; i <= 200; i++ {
		theta := float64(i) / 200 * math.Pi / 2
		img.Set(int(math.Round(180+40*math.Sin(theta))), int(math.Round(120+40*math.Cos(theta))), color.Black)
	}

	fillRect(img, 50, 200, 80, 16, color.RGBA{255, 235, 59, 255})

	fillRect(img, 300, 60, 16, 1, color.Black)
	fillRect(img, 300, 75, 16, 1, color.Black)
	fillRect(img, 300, 60, 1, 16, color.Black)
	fillRect(img, 315, 60, 1, 16, color.Black)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testConfig() pipeline.Config {
	return pipeline.Config{PollAttempts: 400, PollInterval: 5 * time.Millisecond}
}

func TestLocalService_Pipeline(t *testing.T) {
	svc := NewLocalService(DefaultLocalOptions(), nil, nil)
	store := annotation.NewStore()
	stages := pipeline.StagesFor([]string{
		pipeline.StageDetectLayout,
		pipeline.StageIdentifyRooms,
		pipeline.StageFindOpenings,
		pipeline.StageDetectSymbols,
		pipeline.StageAnalyzeColors,
		pipeline.StageCalculateQuantities,
	})
	p := pipeline.New(svc, store, stages, testConfig())

	run := p.Start(context.Background(), pipeline.Input{Document: floorPlanPNG(t), ContentType: "image/png"})
	for _, st := range run.Wait() {
		if st.Status != pipeline.StatusSucceeded {
			t.Errorf("stage %s: %s %s", st.Stage, st.Status, st.Error)
		}
	}

	var rooms, doors, symbols, walls int
	var markup []annotation.Entity
	var notes []string
	for _, e := range store.All() {
		switch {
		case e.Kind == annotation.KindCount && e.Category == "door":
			doors++
		case e.Kind == annotation.KindCount && e.Category == "symbol":
			symbols++
		case e.Kind == annotation.KindHighlight && e.Stage == pipeline.StageIdentifyRooms:
			rooms++
		case e.Kind == annotation.KindHighlight && e.Label == "markup":
			markup = append(markup, e)
		case e.Kind == annotation.KindLinear && e.Label == "wall":
			walls++
		case e.Kind == annotation.KindNote:
			notes = append(notes, e.Text)
		}
		if e.Source != annotation.SourceDetected {
			t.Errorf("entity %s should be marked detected", e.ID)
		}
	}

	if rooms != 2 || doors != 1 || symbols != 1 || walls != 6 {
		t.Errorf("rooms=%d doors=%d symbols=%d walls=%d, want 2 1 1 6", rooms, doors, symbols, walls)
	}
	if len(markup) != 1 || markup[0].Color != "#FFEB3B" {
		t.Errorf("markup: got %+v", markup)
	}
	joined := strings.Join(notes, "\n")
	for _, want := range []string{"Rooms: 2 (0 named)", "Openings: 1 (1 doors)", "Symbols: 1", "Markup regions: 1", "Wall runs: 6"} {
		if !strings.Contains(joined, want) {
			t.Errorf("quantities missing %q:\n%s", want, joined)
		}
	}
	if svc.Pending() != 0 {
		t.Errorf("finished operations should be forgotten, %d pending", svc.Pending())
	}
}

func TestLocalService_RoomNamesFromText(t *testing.T) {
	svc := NewLocalService(DefaultLocalOptions(), nil, nil)
	req := pipeline.Request{
		Stage:    pipeline.StageIdentifyRooms,
		Document: floorPlanPNG(t),
		Prior: map[string]pipeline.Output{
			pipeline.StageExtractText: {Lines: []pipeline.Line{
				{Text: "12'-6\"", BoundingBox: pipeline.Box{X: 60, Y: 100, W: 40, H: 12}},
				{Text: "OFFICE", BoundingBox: pipeline.Box{X: 70, Y: 140, W: 50, H: 12}},
				{Text: "STORAGE", BoundingBox: pipeline.Box{X: 250, Y: 140, W: 60, H: 12}},
			}},
		},
	}
	out := analyzeSync(t, svc, req)

	var names []string
	for _, r := range out.Regions {
		names = append(names, r.Label)
	}
	if len(names) != 2 || names[0] != "STORAGE" || names[1] != "OFFICE" {
		t.Errorf("room names: got %q", names)
	}
}

func TestLocalService_ExtractDimensionsFromPrior(t *testing.T) {
	svc := NewLocalService(DefaultLocalOptions(), nil, nil)
	req := pipeline.Request{
		Stage:    pipeline.StageExtractDimensions,
		Document: floorPlanPNG(t),
		Prior: map[string]pipeline.Output{
			pipeline.StageExtractText: {Lines: []pipeline.Line{
				{Text: "KITCHEN"},
				{Text: "12'-6\""},
				{Text: "3.5 m"},
			}},
		},
	}
	out := analyzeSync(t, svc, req)
	if len(out.Lines) != 2 {
		t.Errorf("dimension lines: got %+v", out.Lines)
	}
}

func TestLocalService_Errors(t *testing.T) {
	svc := NewLocalService(DefaultLocalOptions(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, pipeline.Request{Stage: "teleport"}); err == nil {
		t.Error("expected error for unknown stage")
	}
	if _, err := svc.PollStatus(ctx, pipeline.Handle{ID: "local-99"}); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("got %v, want ErrUnknownOperation", err)
	}

	h, err := svc.Analyze(ctx, pipeline.Request{Stage: pipeline.StageDetectLayout, Document: []byte("not an image")})
	if err != nil {
		t.Fatal(err)
	}
	res := pollDone(t, svc, h)
	if res.Status != pipeline.OpFailed || res.Error == "" {
		t.Errorf("undecodable document: got %+v", res)
	}

	h, _ = svc.Analyze(ctx, pipeline.Request{Stage: pipeline.StageDetectLayout, Document: floorPlanPNG(t), Page: 3})
	if res := pollDone(t, svc, h); res.Status != pipeline.OpFailed {
		t.Errorf("page out of range: got %+v", res)
	}
}

func TestLocalService_UncollectedResultsExpire(t *testing.T) {
	opts := DefaultLocalOptions()
	opts.ResultTTL = 20 * time.Millisecond
	svc := NewLocalService(opts, nil, nil)
	ctx := context.Background()

	h, err := svc.Analyze(ctx, pipeline.Request{Stage: pipeline.StageAnalyzeColors, Document: floorPlanPNG(t)})
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for svc.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("operation never expired, %d pending", svc.Pending())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := svc.PollStatus(ctx, h); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expired operation: got %v, want ErrUnknownOperation", err)
	}
}

func TestLocalService_URLFetch(t *testing.T) {
	data := floorPlanPNG(t)
	fetched := 0
	svc := NewLocalService(DefaultLocalOptions(), nil, func(ctx context.Context, url string) ([]byte, error) {
		fetched++
		return data, nil
	})
	for i := 0; i < 2; i++ {
		analyzeSync(t, svc, pipeline.Request{Stage: pipeline.StageAnalyzeColors, URL: "plans/level1.png"})
	}
	if fetched != 1 {
		t.Errorf("drawing should be fetched once and cached, fetched %d times", fetched)
	}
}

func analyzeSync(t *testing.T, svc *LocalService, req pipeline.Request) pipeline.Output {
	t.Helper()
	h, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	res := pollDone(t, svc, h)
	if res.Status != pipeline.OpSucceeded {
		t.Fatalf("%s: %+v", req.Stage, res)
	}
	out, err := pipeline.ParseOutput(res.Result)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func pollDone(t *testing.T, svc *LocalService, h pipeline.Handle) pipeline.PollResult {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		res, err := svc.PollStatus(context.Background(), h)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != pipeline.OpRunning {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("operation %s did not finish", h.ID)
	return pipeline.PollResult{}
}
