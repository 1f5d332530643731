package render_graph

import (
	"math"
	"testing"
)

func TestComputeSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		ratio float64
		scale float64
		want  Size
	}{
		{"identity", 800, 600, 1, 1, Size{800, 600, 1, 1}},
		{"hidpi", 800, 600, 2, 1, Size{1600, 1200, 2, 1}},
		{"scaled floors", 801, 601, 1, 0.5, Size{400, 300, 1, 0.5}},
		{"fractional ratio", 1000, 500, 1.5, 0.5, Size{750, 375, 1.5, 0.5}},
		{"zero client clamps to one", 0, 0, 1, 1, Size{1, 1, 1, 1}},
		{"tiny scale clamps to one", 3, 3, 1, 0.1, Size{1, 1, 1, 0.1}},
		{"invalid ratio treated as one", 10, 10, math.NaN(), 1, Size{10, 10, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSize(tt.w, tt.h, tt.ratio, tt.scale); got != tt.want {
				t.Errorf("ComputeSize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
