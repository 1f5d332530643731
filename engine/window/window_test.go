package window

import (
	"sync"
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func newSizedWindow(fbWidth, fbHeight, clientWidth, clientHeight int, scale float64) *engineWindow {
	w := &engineWindow{}
	w.setFramebufferSize(fbWidth, fbHeight)
	w.setClientSize(clientWidth, clientHeight)
	w.setContentScale(scale)
	return w
}

func TestEngineWindow_PixelRatio(t *testing.T) {
	tests := []struct {
		name string
		w    *engineWindow
		want float64
	}{
		{"retina framebuffer", newSizedWindow(2560, 1440, 1280, 720, 2), 2},
		{"standard display", newSizedWindow(1280, 720, 1280, 720, 1), 1},
		{"no logical size uses content scale", newSizedWindow(1920, 1080, 0, 0, 1.5), 1.5},
		{"nothing known", &engineWindow{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.PixelRatio(); got != tt.want {
				t.Errorf("PixelRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineWindow_ClientSize(t *testing.T) {
	w := newSizedWindow(2560, 1440, 1280, 720, 2)
	if cw, ch := w.ClientSize(); cw != 1280 || ch != 720 {
		t.Errorf("ClientSize() = %dx%d, want 1280x720", cw, ch)
	}

	w = newSizedWindow(800, 600, 0, 0, 1)
	if cw, ch := w.ClientSize(); cw != 800 || ch != 600 {
		t.Errorf("ClientSize() fallback = %dx%d, want 800x600", cw, ch)
	}
}

func TestEngineWindow_ContentScaleIgnoresNonPositive(t *testing.T) {
	w := newSizedWindow(1920, 1080, 0, 0, 1.25)
	w.setContentScale(0)
	w.setContentScale(-2)
	if got := w.PixelRatio(); got != 1.25 {
		t.Errorf("PixelRatio() = %v, want 1.25", got)
	}
}

// Size updates arrive on the platform thread while the render goroutine reads the canvas.
// Run with -race to catch unsynchronized access.
func TestEngineWindow_ConcurrentResize(t *testing.T) {
	w := newSizedWindow(1280, 720, 1280, 720, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			scale := 1 + i%2
			w.setClientSize(1280, 720)
			w.setFramebufferSize(1280*scale, 720*scale)
			w.setContentScale(float64(scale))
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			cw, ch := w.ClientSize()
			if cw != 1280 || ch != 720 {
				t.Errorf("ClientSize() = %dx%d, want 1280x720", cw, ch)
				return
			}
			if r := w.PixelRatio(); r != 1 && r != 2 {
				t.Errorf("PixelRatio() = %v, want 1 or 2", r)
				return
			}
			_ = w.Width() + w.Height()
		}
	}()
	wg.Wait()
}

func TestWindowBuilder_SizeOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{
		WithSize(1024, 768),
		WithSizeLimits(320, 240, 0, 0),
	} {
		opt(w)
	}

	if w.Width() != 1024 || w.Height() != 768 {
		t.Errorf("size = %dx%d, want 1024x768", w.Width(), w.Height())
	}
	if w.minWidth != 320 || w.minHeight != 240 {
		t.Errorf("min = %dx%d, want 320x240", w.minWidth, w.minHeight)
	}
	if glfwLimit(w.maxWidth) != glfw.DontCare || glfwLimit(w.minWidth) != 320 {
		t.Error("zero limits should map to glfw.DontCare")
	}
}
