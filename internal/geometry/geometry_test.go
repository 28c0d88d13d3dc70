package geometry

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Point
		want   float64
	}{
		{"horizontal", Pt(0, 0), Pt(96, 0), 96},
		{"vertical", Pt(5, 10), Pt(5, 2), 8},
		{"3-4-5 triangle", Pt(0, 0), Pt(3, 4), 5},
		{"same point", Pt(7, 7), Pt(7, 7), 0},
		{"negative coords", Pt(-3, -4), Pt(0, 0), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance: got %v, want %v", got, tt.want)
			}
			if back := Distance(tt.p2, tt.p1); math.Abs(back-got) > 1e-9 {
				t.Errorf("Distance not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestRectFromDrag(t *testing.T) {
	want := Rect{X: 10, Y: 10, W: 100, H: 50}

	tests := []struct {
		name       string
		start, end Point
	}{
		{"down-right", Pt(10, 10), Pt(110, 60)},
		{"up-left", Pt(110, 60), Pt(10, 10)},
		{"down-left", Pt(110, 10), Pt(10, 60)},
		{"up-right", Pt(10, 60), Pt(110, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RectFromDrag(tt.start, tt.end)
			if got != want {
				t.Errorf("RectFromDrag: got %+v, want %+v", got, want)
			}
			if got.W < 0 || got.H < 0 {
				t.Errorf("negative size: %+v", got)
			}
		})
	}
}

func TestArea(t *testing.T) {
	if got := Area(Rect{X: 10, Y: 10, W: 100, H: 50}); got != 5000 {
		t.Errorf("Area: got %v, want 5000", got)
	}
	if got := Area(Rect{W: -4, H: 5}); got != 20 {
		t.Errorf("Area of unnormalized rect: got %v, want 20", got)
	}
}

func TestRectContainsAndCenter(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 20}
	if !r.Contains(Pt(10, 20)) {
		t.Error("edge point should be contained")
	}
	if r.Contains(Pt(10.5, 5)) {
		t.Error("outside point should not be contained")
	}
	if c := r.Center(); c != Pt(5, 10) {
		t.Errorf("Center: got %+v", c)
	}
}

func TestDistanceToSegment(t *testing.T) {
	a, b := Pt(0, 0), Pt(10, 0)
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"above middle", Pt(5, 3), 3},
		{"past end", Pt(13, 4), 5},
		{"before start", Pt(-3, -4), 5},
		{"on segment", Pt(2, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceToSegment(tt.p, a, b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if got := DistanceToSegment(Pt(3, 4), Pt(0, 0), Pt(0, 0)); got != 5 {
		t.Errorf("degenerate segment: got %v, want 5", got)
	}
}
