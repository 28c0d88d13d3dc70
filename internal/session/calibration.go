package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// ErrNoScaleNotation is returned when auto-detection finds no printed scale.
var ErrNoScaleNotation = errors.New("no scale notation found")

// ScaleInfo reports the calibration and the scale conversions will use.
type ScaleInfo struct {
	Calibration scale.Calibration `json:"calibration"`
	Effective   scale.Calibration `json:"effective"`
	// Assumed is set when conversions fall back to the default scale.
	Assumed bool `json:"assumed"`
	// Unscaled is set when there is no scale at all and values stay in
	// pixels.
	Unscaled bool            `json:"unscaled"`
	Notation *scale.Notation `json:"notation,omitempty"`
}

// Converter returns the converter in effect now. Entities read it at commit
// time, so recalibrating never changes committed values.
func (s *Session) Converter() scale.Converter {
	s.calMu.RLock()
	cal := s.cal
	s.calMu.RUnlock()
	return scale.NewConverter(cal, s.cfg.Scale.DefaultUnitsPerPixel, s.cfg.Scale.DefaultUnit)
}

// Scale describes the current calibration.
func (s *Session) Scale() ScaleInfo {
	cv := s.Converter()
	info := ScaleInfo{Calibration: cv.Current}
	eff, ok := cv.Effective()
	switch {
	case !ok:
		info.Unscaled = true
	case !cv.Current.Calibrated:
		info.Assumed = true
	}
	info.Effective = eff
	return info
}

// SetScale calibrates from a pixel distance declared to be realValue units
// long. On invalid input the calibration is left unchanged.
func (s *Session) SetScale(pixelDistance, realValue float64, unit scale.Unit) (ScaleInfo, error) {
	cal, err := scale.SetFromDeclaration(pixelDistance, realValue, unit)
	if err != nil {
		return s.Scale(), err
	}
	s.calibrate(cal)
	return s.Scale(), nil
}

// SetScaleFromPoints calibrates from two document points whose distance is
// realValue units.
func (s *Session) SetScaleFromPoints(p1, p2 geometry.Point, realValue float64, unit scale.Unit) (ScaleInfo, error) {
	return s.SetScale(geometry.Distance(p1, p2), realValue, unit)
}

// ResetScale returns to the default scale.
func (s *Session) ResetScale() ScaleInfo {
	s.calibrate(scale.Calibration{})
	return s.Scale()
}

func (s *Session) calibrate(cal scale.Calibration) {
	s.calMu.Lock()
	s.cal = cal
	s.calMu.Unlock()

	unit := cal.Unit
	if !cal.Calibrated {
		unit = s.cfg.Scale.DefaultUnit
	}
	s.mu.Lock()
	s.totals.SetUnit(unit)
	s.mu.Unlock()
}

// DetectScale looks for a printed scale such as 1/4" = 1'-0" in the text of
// the current page and calibrates from it at the drawing's resolution. The
// text comes from the extract-text stage of the analysis service; nothing is
// added to the annotation store.
func (s *Session) DetectScale(ctx context.Context) (ScaleInfo, error) {
	s.mu.Lock()
	if s.drawing == nil {
		s.mu.Unlock()
		return ScaleInfo{}, ErrNoDrawing
	}
	in := s.inputLocked()
	dpi := s.drawing.DPI
	s.mu.Unlock()

	p := pipeline.New(s.svc, annotation.NewStore(),
		pipeline.StagesFor([]string{pipeline.StageExtractText}), s.cfg.PipelineConfig())
	var lines []string
	for res := range p.Start(ctx, in).Results() {
		if res.Err != nil {
			return s.Scale(), res.Err
		}
		if res.Output != nil {
			lines = res.Output.Texts()
		}
	}

	n, ok := scale.DetectNotation(lines)
	if !ok {
		return s.Scale(), fmt.Errorf("%w in %d text lines", ErrNoScaleNotation, len(lines))
	}
	cal, err := n.Calibration(dpi)
	if err != nil {
		return s.Scale(), err
	}
	s.calibrate(cal)
	log.Printf("Detected scale %q: %g %s per pixel", n.Text, cal.UnitsPerPixel, cal.Unit)

	info := s.Scale()
	info.Notation = &n
	return info, nil
}
