package common

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSliceToBytes(t *testing.T) {
	if got := SliceToBytes([]float32(nil)); got != nil {
		t.Errorf("SliceToBytes(nil) = %v, want nil", got)
	}

	data := []float32{1, 0.5}
	b := SliceToBytes(data)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	if got := math.Float32frombits(binary.NativeEndian.Uint32(b[4:])); got != 0.5 {
		t.Errorf("second element = %v, want 0.5", got)
	}
}

func TestStructToBytes(t *testing.T) {
	type params struct {
		Resolution [2]float32
		Frame      uint32
		_          uint32
	}

	if got := StructToBytes[params](nil); got != nil {
		t.Errorf("StructToBytes(nil) = %v, want nil", got)
	}

	p := &params{Resolution: [2]float32{640, 480}, Frame: 7}
	b := StructToBytes(p)
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16", len(b))
	}
	if got := binary.NativeEndian.Uint32(b[8:12]); got != 7 {
		t.Errorf("Frame = %d, want 7", got)
	}
}
