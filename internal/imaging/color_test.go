package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

func TestHex(t *testing.T) {
	tests := []struct {
		c    color.Color
		want string
	}{
		{color.RGBA{255, 235, 59, 255}, "#FFEB3B"},
		{color.Black, "#000000"},
		{color.White, "#FFFFFF"},
	}
	for _, tt := range tests {
		if got := Hex(tt.c); got != tt.want {
			t.Errorf("Hex(%v): got %s, want %s", tt.c, got, tt.want)
		}
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#f00")
	if err != nil {
		t.Fatal(err)
	}
	if Hex(c) != "#FF0000" {
		t.Errorf("short form: got %s", Hex(c))
	}
	if _, err := ParseHex("yellow"); err == nil {
		t.Error("expected error for a colour name")
	}
}

func TestIsMarkup(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want bool
	}{
		{"highlighter yellow", color.RGBA{255, 235, 59, 255}, true},
		{"red pen", color.RGBA{220, 30, 30, 255}, true},
		{"black linework", color.Black, false},
		{"grey hatching", color.RGBA{128, 128, 128, 255}, false},
		{"paper", color.RGBA{250, 248, 240, 255}, false},
		{"transparent", color.RGBA{0, 0, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarkup(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHueBucket(t *testing.T) {
	if HueBucket(color.RGBA{255, 0, 0, 255}, 12) != 0 {
		t.Error("red should be bucket 0")
	}
	if got := HueBucket(color.RGBA{0, 0, 255, 255}, 12); got != 8 {
		t.Errorf("blue: got %d, want 8", got)
	}
}

func TestDominantColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 7 {
				img.Set(x, y, color.RGBA{255, 235, 59, 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	got := DominantColors(img, geometry.Rect{W: 10, H: 10}, 5)
	if len(got) != 2 {
		t.Fatalf("got %d colours, want 2", len(got))
	}
	if got[0].Hex != "#FFEB3B" || got[0].Percentage != 70 {
		t.Errorf("top colour: got %+v", got[0])
	}

	if DominantColors(img, geometry.Rect{X: 50, Y: 50, W: 5, H: 5}, 3) != nil {
		t.Error("region outside the image should give nil")
	}
}
