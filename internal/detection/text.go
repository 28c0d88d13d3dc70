package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// TextRegion is a window likely to contain lettering.
type TextRegion struct {
	Bounds     geometry.Rect `json:"bounds"`
	Confidence float64       `json:"confidence"`
}

// DetectTextRegions finds regions likely to contain text
// This is a heuristic-based approach that looks for areas with medium ink
// density and a mostly horizontal structure
func DetectTextRegions(m *Mask, minConfidence float64) []TextRegion {
	sum := integral(m)

	windowSizes := []struct{ w, h int }{
		{80, 20},  // Small text
		{120, 30}, // Medium text
		{160, 40}, // Large text
	}

	var candidates []TextRegion
	for _, ws := range windowSizes {
		stepX, stepY := ws.w/2, ws.h/2
		for y := 0; y+ws.h <= m.H; y += stepY {
			for x := 0; x+ws.w <= m.W; x += stepX {
				area := ws.w * ws.h
				density := float64(sum.count(x, y, ws.w, ws.h)) / float64(area)

				// Text has medium ink density (not too sparse, not too dense)
				if density < 0.05 || density > 0.4 {
					continue
				}
				horizontal := horizontalScore(m, x, y, ws.w, ws.h)
				confidence := horizontal * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence < minConfidence {
					continue
				}
				candidates = append(candidates, TextRegion{
					Bounds:     geometry.Rect{X: float64(x), Y: float64(y), W: float64(ws.w), H: float64(ws.h)},
					Confidence: math.Round(confidence*1000) / 1000,
				})
			}
		}
	}

	merged := mergeOverlappingRegions(candidates)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// horizontalScore is the share of ink runs that are horizontal. Lettering
// breaks into many short vertical strokes, so rows cross more runs than
// columns do.
func horizontalScore(m *Mask, x, y, w, h int) float64 {
	horizontalRuns, verticalRuns := 0, 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if m.At(col, row) {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}
	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if m.At(col, row) {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlappingRegions combines overlapping text regions
func mergeOverlappingRegions(regions []TextRegion) []TextRegion {
	var merged []TextRegion
	for _, r := range regions {
		found := false
		for i := range merged {
			if rectsOverlap(r.Bounds, merged[i].Bounds) {
				merged[i].Bounds = unionRect(r.Bounds, merged[i].Bounds)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, r)
		}
	}
	return merged
}

// summedArea is an integral image of ink counts.
type summedArea struct {
	w   int
	sum []int
}

func integral(m *Mask) summedArea {
	w := m.W + 1
	s := make([]int, w*(m.H+1))
	for y := 0; y < m.H; y++ {
		row := 0
		for x := 0; x < m.W; x++ {
			if m.Pix[y*m.W+x] {
				row++
			}
			s[(y+1)*w+x+1] = s[y*w+x+1] + row
		}
	}
	return summedArea{w: w, sum: s}
}

func (s summedArea) count(x, y, w, h int) int {
	return s.sum[(y+h)*s.w+x+w] - s.sum[y*s.w+x+w] - s.sum[(y+h)*s.w+x] + s.sum[y*s.w+x]
}
