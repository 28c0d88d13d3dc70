package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/blueprint-mcp/internal/detection"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/imaging"
	"github.com/ironsheep/blueprint-mcp/internal/ocr"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

type analyzer func(ctx context.Context, in *input) (pipeline.Output, error)

var analyzers = map[string]analyzer{
	pipeline.StageExtractText:         extractText,
	pipeline.StageDetectLayout:        detectLayout,
	pipeline.StageIdentifyRooms:       identifyRooms,
	pipeline.StageFindOpenings:        findOpenings,
	pipeline.StageExtractDimensions:   extractDimensions,
	pipeline.StageDetectSymbols:       detectSymbols,
	pipeline.StageAnalyzeColors:       analyzeColors,
	pipeline.StageCalculateQuantities: calculateQuantities,
}

// Stages lists the stages LocalService understands.
func Stages() []string {
	return append([]string(nil), pipeline.DefaultStages...)
}

// extractText reads the PDF text layer and falls back to OCR for raster
// drawings and scanned pages without one.
func extractText(ctx context.Context, in *input) (pipeline.Output, error) {
	lines, err := in.drawing.TextLines(in.req.Page)
	if err != nil && !errors.Is(err, imaging.ErrNoTextLayer) {
		return pipeline.Output{}, err
	}
	out := pipeline.Output{Lines: []pipeline.Line{}}
	for _, l := range lines {
		out.Lines = append(out.Lines, pipeline.Line{Text: l.Text, BoundingBox: pipeline.Box(l.Bounds), Confidence: 1})
	}
	if len(out.Lines) > 0 {
		return out, nil
	}

	img, err := in.image()
	if err != nil {
		return pipeline.Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Output{}, err
	}
	recognized, err := ocr.Recognize(img, in.req.Language)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("text recognition: %w", err)
	}
	for _, l := range recognized {
		out.Lines = append(out.Lines, pipeline.Line{Text: l.Text, BoundingBox: pipeline.Box(l.Bounds), Confidence: l.Confidence})
	}
	return out, nil
}

// textLines returns the prior extract-text lines, running the stage itself
// when it was not part of the run.
func textLines(ctx context.Context, in *input) ([]pipeline.Line, error) {
	if prior, ok := in.prior(pipeline.StageExtractText); ok {
		return prior.Lines, nil
	}
	out, err := extractText(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Lines, nil
}

func detectLayout(ctx context.Context, in *input) (pipeline.Output, error) {
	walls, err := in.wallList()
	if err != nil {
		return pipeline.Output{}, err
	}
	out := pipeline.Output{Regions: []pipeline.Region{}}
	for _, w := range walls {
		out.Regions = append(out.Regions, pipeline.Region{
			BoundingBox: pipeline.Box(w.Bounds()),
			Confidence:  1,
			Label:       "wall",
		})
	}

	if err := ctx.Err(); err != nil {
		return pipeline.Output{}, err
	}
	m, _ := in.inkMask()
	for _, t := range detection.DetectTextRegions(m, in.opts.MinTextConfidence) {
		out.Regions = append(out.Regions, pipeline.Region{
			BoundingBox: pipeline.Box(t.Bounds),
			Confidence:  t.Confidence,
			Label:       "text-block",
		})
	}
	return out, nil
}

func openings(in *input) ([]detection.Opening, error) {
	walls, err := in.wallList()
	if err != nil {
		return nil, err
	}
	m, _ := in.inkMask()
	return detection.DetectOpenings(m, walls, in.opts.Openings), nil
}

// identifyRooms seals doorways, fills enclosed areas and names each room
// after the first label-like text line inside it.
func identifyRooms(ctx context.Context, in *input) (pipeline.Output, error) {
	ops, err := openings(in)
	if err != nil {
		return pipeline.Output{}, err
	}
	m, _ := in.inkMask()
	rooms := detection.DetectRooms(detection.Seal(m, ops), in.opts.Rooms)

	var lines []pipeline.Line
	if prior, ok := in.prior(pipeline.StageExtractText); ok {
		lines = prior.Lines
	}

	out := pipeline.Output{Regions: []pipeline.Region{}}
	for _, r := range rooms {
		out.Regions = append(out.Regions, pipeline.Region{
			BoundingBox: pipeline.Box(r.Bounds),
			Confidence:  r.Confidence,
			Label:       roomName(r.Bounds, lines),
		})
	}
	return out, ctx.Err()
}

func roomName(r geometry.Rect, lines []pipeline.Line) string {
	for _, l := range lines {
		text := strings.TrimSpace(l.Text)
		if text == "" || !r.Contains(l.BoundingBox.Rect().Center()) {
			continue
		}
		if _, ok := scale.ParseDimension(text); ok {
			continue
		}
		if _, ok := scale.ParseNotation(text); ok {
			continue
		}
		return text
	}
	return ""
}

func findOpenings(ctx context.Context, in *input) (pipeline.Output, error) {
	ops, err := openings(in)
	if err != nil {
		return pipeline.Output{}, err
	}
	out := pipeline.Output{Regions: []pipeline.Region{}}
	for _, o := range ops {
		label := "opening"
		if o.Swing {
			label = "door"
		}
		out.Regions = append(out.Regions, pipeline.Region{
			BoundingBox: pipeline.Box(o.Bounds),
			Confidence:  o.Confidence,
			Label:       label,
		})
	}
	return out, ctx.Err()
}

func extractDimensions(ctx context.Context, in *input) (pipeline.Output, error) {
	lines, err := textLines(ctx, in)
	if err != nil {
		return pipeline.Output{}, err
	}
	out := pipeline.Output{Lines: []pipeline.Line{}}
	for _, l := range lines {
		if _, ok := scale.ParseDimension(l.Text); ok {
			out.Lines = append(out.Lines, l)
		}
	}
	return out, nil
}

// detectSymbols looks for compact glyphs away from walls and known text.
func detectSymbols(ctx context.Context, in *input) (pipeline.Output, error) {
	walls, err := in.wallList()
	if err != nil {
		return pipeline.Output{}, err
	}
	var exclude []geometry.Rect
	for _, w := range walls {
		exclude = append(exclude, w.Bounds().Inset(2))
	}
	if prior, ok := in.prior(pipeline.StageExtractText); ok {
		for _, l := range prior.Lines {
			exclude = append(exclude, l.BoundingBox.Rect())
		}
	}

	m, _ := in.inkMask()
	out := pipeline.Output{Regions: []pipeline.Region{}}
	for _, s := range detection.DetectSymbols(m, in.opts.Symbols, exclude) {
		out.Regions = append(out.Regions, pipeline.Region{
			BoundingBox: pipeline.Box(s.Bounds),
			Confidence:  s.Confidence,
			Label:       "symbol",
		})
	}
	return out, ctx.Err()
}

func analyzeColors(ctx context.Context, in *input) (pipeline.Output, error) {
	img, err := in.image()
	if err != nil {
		return pipeline.Output{}, err
	}
	minArea := in.opts.MinMarkupArea
	if minArea <= 0 {
		minArea = DefaultLocalOptions().MinMarkupArea
	}
	out := pipeline.Output{Regions: []pipeline.Region{}}
	for _, r := range detection.DetectMarkup(img, minArea) {
		out.Regions = append(out.Regions, pipeline.Region{
			Color:       r.Color,
			BoundingBox: pipeline.Box(r.Bounds),
			Confidence:  r.Confidence,
			Label:       "markup",
		})
	}
	return out, ctx.Err()
}

// calculateQuantities tallies the earlier stages into a short schedule
// placed down the left margin of the page.
func calculateQuantities(ctx context.Context, in *input) (pipeline.Output, error) {
	var rows []string
	if o, ok := in.prior(pipeline.StageIdentifyRooms); ok {
		named := 0
		for _, r := range o.Regions {
			if r.Label != "" {
				named++
			}
		}
		rows = append(rows, fmt.Sprintf("Rooms: %d (%d named)", len(o.Regions), named))
	}
	if o, ok := in.prior(pipeline.StageFindOpenings); ok {
		doors := 0
		for _, r := range o.Regions {
			if r.Label == "door" {
				doors++
			}
		}
		rows = append(rows, fmt.Sprintf("Openings: %d (%d doors)", len(o.Regions), doors))
	}
	if o, ok := in.prior(pipeline.StageDetectSymbols); ok {
		rows = append(rows, fmt.Sprintf("Symbols: %d", len(o.Regions)))
	}
	if o, ok := in.prior(pipeline.StageExtractDimensions); ok {
		rows = append(rows, fmt.Sprintf("Dimensions: %d", len(o.Lines)))
	}
	if o, ok := in.prior(pipeline.StageAnalyzeColors); ok {
		rows = append(rows, fmt.Sprintf("Markup regions: %d", len(o.Regions)))
	}
	if o, ok := in.prior(pipeline.StageDetectLayout); ok {
		walls := 0
		for _, r := range o.Regions {
			if r.Label == "wall" {
				walls++
			}
		}
		rows = append(rows, fmt.Sprintf("Wall runs: %d", walls))
	}

	out := pipeline.Output{Lines: []pipeline.Line{}}
	for i, text := range rows {
		out.Lines = append(out.Lines, pipeline.Line{
			Text:        text,
			BoundingBox: pipeline.Box{X: 10, Y: float64(10 + 18*i), W: 160, H: 14},
			Confidence:  1,
		})
	}
	return out, ctx.Err()
}
