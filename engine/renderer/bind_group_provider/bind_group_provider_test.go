package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewBindGroupProvider_Label(t *testing.T) {
	p := NewBindGroupProvider("taa")
	if got := p.Label(); got != "taa" {
		t.Errorf("Label() = %q, want %q", got, "taa")
	}
	if p.BindGroup() != nil || p.Stale() {
		t.Error("new provider should have no bind group and not be stale")
	}
}

func TestBindGroupProvider_StaleTracking(t *testing.T) {
	p := NewBindGroupProvider("history").(*bindGroupProvider)

	view := &wgpu.TextureView{}
	p.BorrowTextureView(0, view)
	if p.Stale() {
		t.Fatal("binding before the group exists must not mark the provider stale")
	}

	// Simulate a created group without touching the GPU.
	p.bindGroup = &wgpu.BindGroup{}

	p.BorrowTextureView(0, view)
	if p.Stale() {
		t.Error("re-borrowing the same view must not mark the provider stale")
	}

	rebuilt := &wgpu.TextureView{}
	p.BorrowTextureView(0, rebuilt)
	if !p.Stale() {
		t.Error("borrowing a new view should mark the provider stale")
	}
	if p.TextureView(0) != rebuilt {
		t.Error("TextureView() should return the latest borrowed view")
	}
	if !p.borrowed[0] {
		t.Error("borrowed view should be tracked as not owned")
	}
}

func TestWithBuffer(t *testing.T) {
	buf := &wgpu.Buffer{}
	p := NewBindGroupProvider("shared", WithBuffer(2, buf))
	if p.Buffer(2) != buf {
		t.Error("WithBuffer did not store the buffer")
	}
	if p.Buffer(0) != nil {
		t.Error("Buffer() for an unset binding should be nil")
	}
}

func TestBufferWrite_Fits(t *testing.T) {
	tests := []struct {
		name   string
		offset uint64
		size   int
		buffer uint64
		want   bool
	}{
		{"whole buffer", 0, 32, 32, true},
		{"tail", 16, 16, 32, true},
		{"past end", 16, 32, 32, false},
		{"offset beyond buffer", 48, 4, 32, false},
		{"unaligned offset", 2, 4, 32, false},
		{"unaligned length", 0, 6, 32, false},
		{"empty write", 32, 0, 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := BufferWrite{Offset: tt.offset, Data: make([]byte, tt.size)}
			if got := w.Fits(tt.buffer); got != tt.want {
				t.Errorf("Fits(%d) = %v, want %v", tt.buffer, got, tt.want)
			}
		})
	}
}
