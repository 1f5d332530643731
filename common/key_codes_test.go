package common

import "testing"

func TestQualityKeyScale(t *testing.T) {
	tests := []struct {
		key    uint32
		want   float64
		wantOK bool
	}{
		{key: Key1, want: 1, wantOK: true},
		{key: Key3, want: 0.5, wantOK: true},
		{key: Key4, want: 0.25, wantOK: true},
		{key: KeySpace, want: 0, wantOK: false},
	}
	for _, tt := range tests {
		got, ok := QualityKeyScale(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("QualityKeyScale(%d) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}
