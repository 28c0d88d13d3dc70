package pipeline

import (
	"strings"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// Stage names understood by the built-in merge rules.
const (
	StageExtractText         = "extract-text"
	StageDetectLayout        = "detect-layout"
	StageIdentifyRooms       = "identify-rooms"
	StageFindOpenings        = "find-openings"
	StageExtractDimensions   = "extract-dimensions"
	StageDetectSymbols       = "detect-symbols"
	StageAnalyzeColors       = "analyze-colors"
	StageCalculateQuantities = "calculate-quantities"
)

// DefaultStages is the standard stage order.
var DefaultStages = []string{
	StageExtractText,
	StageDetectLayout,
	StageIdentifyRooms,
	StageFindOpenings,
	StageExtractDimensions,
	StageDetectSymbols,
	StageAnalyzeColors,
	StageCalculateQuantities,
}

// MergeContext is what a merge rule needs to build entities.
type MergeContext struct {
	Page  int
	Scale scale.Converter
}

// MergeFunc turns a stage output into entities.
type MergeFunc func(out Output, mc MergeContext) []annotation.Entity

// Stage is a named pipeline step with its merge rule.
type Stage struct {
	Name  string
	Merge MergeFunc
}

// StagesFor builds stages for names. Names without a dedicated rule get
// the generic one.
func StagesFor(names []string) []Stage {
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		stages = append(stages, Stage{Name: n, Merge: mergeRule(n)})
	}
	return stages
}

func mergeRule(name string) MergeFunc {
	switch name {
	case StageExtractText:
		return mergeNothing
	case StageDetectLayout:
		return mergeLayout
	case StageAnalyzeColors:
		return mergeHighlights
	case StageIdentifyRooms:
		return mergeRooms
	case StageFindOpenings:
		return mergeCounts("door")
	case StageDetectSymbols:
		return mergeCounts("symbol")
	case StageExtractDimensions:
		return mergeDimensions
	case StageCalculateQuantities:
		return mergeNotes
	}
	return mergeGeneric
}

// mergeNothing is for stages whose output only feeds later stages.
func mergeNothing(Output, MergeContext) []annotation.Entity {
	return nil
}

func mergeHighlights(out Output, mc MergeContext) []annotation.Entity {
	var es []annotation.Entity
	for _, r := range out.Regions {
		rect := r.BoundingBox.Rect()
		v := mc.Scale.Convert(geometry.Area(rect), 2)
		e := annotation.NewHighlight(mc.Page, rect, r.Color, v, annotation.SourceDetected)
		e.Label = r.Label
		e.Confidence = r.Confidence
		es = append(es, e)
	}
	return es
}

// mergeLayout lays a measurement along the long axis of each wall run so
// wall length reaches the linear total. Other layout regions, such as text
// blocks, carry no quantity and are dropped.
func mergeLayout(out Output, mc MergeContext) []annotation.Entity {
	var es []annotation.Entity
	for _, r := range out.Regions {
		label := strings.TrimSpace(r.Label)
		if label != "" && label != "wall" {
			continue
		}
		rect := r.BoundingBox.Rect()
		c := rect.Center()
		p1, p2 := geometry.Pt(rect.X, c.Y), geometry.Pt(rect.X+rect.W, c.Y)
		if rect.H > rect.W {
			p1, p2 = geometry.Pt(c.X, rect.Y), geometry.Pt(c.X, rect.Y+rect.H)
		}
		e := annotation.NewMeasurement(mc.Page, p1, p2, mc.Scale.Convert(geometry.Distance(p1, p2), 1))
		e.Source = annotation.SourceDetected
		e.Label = "wall"
		e.Confidence = r.Confidence
		es = append(es, e)
	}
	return es
}

// mergeRooms highlights each room and pins its name as a note.
func mergeRooms(out Output, mc MergeContext) []annotation.Entity {
	es := mergeHighlights(out, mc)
	for _, r := range out.Regions {
		if r.Label == "" {
			continue
		}
		n := annotation.NewNote(mc.Page, r.BoundingBox.Rect().Center(), r.Label)
		n.Source = annotation.SourceDetected
		n.Confidence = r.Confidence
		es = append(es, n)
	}
	return es
}

func mergeCounts(fallback string) MergeFunc {
	return func(out Output, mc MergeContext) []annotation.Entity {
		var es []annotation.Entity
		for _, r := range out.Regions {
			cat := strings.TrimSpace(r.Label)
			if cat == "" {
				cat = fallback
			}
			e := annotation.NewCount(mc.Page, r.BoundingBox.Rect().Center(), cat)
			e.Source = annotation.SourceDetected
			e.Confidence = r.Confidence
			es = append(es, e)
		}
		return es
	}
}

// mergeDimensions turns dimension strings into measurements laid along the
// long side of the text box. The value is the written one, not a pixel
// conversion.
func mergeDimensions(out Output, mc MergeContext) []annotation.Entity {
	var es []annotation.Entity
	for _, l := range out.Lines {
		d, ok := scale.ParseDimension(l.Text)
		if !ok {
			continue
		}
		r := l.BoundingBox.Rect()
		c := r.Center()
		p1, p2 := geometry.Pt(r.X, c.Y), geometry.Pt(r.X+r.W, c.Y)
		if r.H > r.W {
			p1, p2 = geometry.Pt(c.X, r.Y), geometry.Pt(c.X, r.Y+r.H)
		}
		e := annotation.NewMeasurement(mc.Page, p1, p2, scale.Value{Amount: d.Value, Unit: d.Unit})
		e.Source = annotation.SourceDetected
		e.Text = d.Text
		e.Confidence = l.Confidence
		es = append(es, e)
	}
	return es
}

func mergeNotes(out Output, mc MergeContext) []annotation.Entity {
	var es []annotation.Entity
	for _, l := range out.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		e := annotation.NewNote(mc.Page, l.BoundingBox.Rect().Center(), text)
		e.Source = annotation.SourceDetected
		e.Confidence = l.Confidence
		es = append(es, e)
	}
	return es
}

func mergeGeneric(out Output, mc MergeContext) []annotation.Entity {
	return append(mergeHighlights(out, mc), mergeNotes(out, mc)...)
}
