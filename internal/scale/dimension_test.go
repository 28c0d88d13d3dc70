package scale

import (
	"math"
	"testing"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		text      string
		wantOK    bool
		wantValue float64
		wantUnit  Unit
	}{
		{`12'-6"`, true, 12.5, Feet},
		{`12' 6"`, true, 12.5, Feet},
		{`8'`, true, 8, Feet},
		{`10'-6 1/2"`, true, 10 + 6.5/12, Feet},
		{`LIVING 14'-0" x 12'-0"`, true, 14, Feet},
		{"3500 mm", true, 3.5, Meters},
		{"2.4m", true, 2.4, Meters},
		{"90 cm", true, 0.9, Meters},
		{`36"`, true, 36, Inches},
		{`1/4" = 1'-0"`, false, 0, ""},
		{"BEDROOM", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, ok := ParseDimension(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v (%+v)", ok, tt.wantOK, d)
			}
			if !ok {
				return
			}
			if math.Abs(d.Value-tt.wantValue) > 1e-9 {
				t.Errorf("Value: got %v, want %v", d.Value, tt.wantValue)
			}
			if d.Unit != tt.wantUnit {
				t.Errorf("Unit: got %v, want %v", d.Unit, tt.wantUnit)
			}
		})
	}
}
