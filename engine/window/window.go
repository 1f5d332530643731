package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing, key input and the canvas size used by the render graph.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))


	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))




	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int

	// ClientSize returns the logical size of the client area, before device pixel scaling.
	//
	// Returns:
	//   - width: logical width
	//   - height: logical height
	ClientSize() (width, height int)

	// PixelRatio returns the ratio of framebuffer pixels to logical client units.
	//
	// Returns:
	//   - float64: the device pixel ratio, 1 on standard displays
	PixelRatio() float64
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// sizeMu guards width, height, clientWidth, clientHeight and contentScale. The platform
	// thread writes them while the render goroutine reads them through the graph canvas.
	sizeMu sync.RWMutex

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// clientWidth and clientHeight are the logical client area size.
	clientWidth, clientHeight int

	// contentScale is the monitor content scale reported by the platform.
	contentScale float64

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	// onKeyUp is called when a key is released.
	onKeyUp func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window (not yet spawned)
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:        "Default Window Title",
		maxWidth:     1600,
		maxHeight:    1200,
		minWidth:     600,
		minHeight:    200,
		width:        1280,
		height:       720,
		contentScale: 1,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.sizeMu.RLock()
	defer w.sizeMu.RUnlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.sizeMu.RLock()
	defer w.sizeMu.RUnlock()
	return w.height
}

func (w *engineWindow) ClientSize() (int, int) {
	w.sizeMu.RLock()
	defer w.sizeMu.RUnlock()
	if w.clientWidth <= 0 || w.clientHeight <= 0 {
		return w.width, w.height
	}
	return w.clientWidth, w.clientHeight
}

func (w *engineWindow) PixelRatio() float64 {
	w.sizeMu.RLock()
	defer w.sizeMu.RUnlock()
	if w.clientWidth > 0 && w.width > 0 {
		return float64(w.width) / float64(w.clientWidth)
	}
	if w.contentScale > 0 {
		return w.contentScale
	}
	return 1
}

// setFramebufferSize stores the framebuffer size in pixels.
func (w *engineWindow) setFramebufferSize(width, height int) {
	w.sizeMu.Lock()
	defer w.sizeMu.Unlock()
	w.width, w.height = width, height
}

// setClientSize stores the logical client area size.
func (w *engineWindow) setClientSize(width, height int) {
	w.sizeMu.Lock()
	defer w.sizeMu.Unlock()
	w.clientWidth, w.clientHeight = width, height
}

// setContentScale stores the monitor content scale. Non-positive values are ignored.
func (w *engineWindow) setContentScale(scale float64) {
	if scale <= 0 {
		return
	}
	w.sizeMu.Lock()
	defer w.sizeMu.Unlock()
	w.contentScale = scale
}
