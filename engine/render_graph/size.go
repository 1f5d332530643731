package render_graph

import (
	"math"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// Canvas reports the drawable area the graph renders into.
type Canvas interface {
	// ClientSize returns the logical width and height of the drawable area.
	ClientSize() (width, height int)
	// PixelRatio returns the device pixel ratio of the display the canvas is on.
	PixelRatio() float64
}

// StaticCanvas is a fixed-size Canvas for headless rendering and tests.
type StaticCanvas struct {
	Width  int
	Height int
	Ratio  float64
}

var _ Canvas = StaticCanvas{}

func (c StaticCanvas) ClientSize() (int, int) { return c.Width, c.Height }
func (c StaticCanvas) PixelRatio() float64    { return c.Ratio }

// Size is the render-resolution descriptor every pass and history resource is built for.
type Size struct {
	// Width and Height are the render target dimensions in physical pixels, at least 1.
	Width  int
	Height int
	// PixelRatio is the device pixel ratio the size was computed with.
	PixelRatio float64
	// Scale is the quality scale the size was computed with.
	Scale float64
}

// ComputeSize derives the render size from a client size, pixel ratio and quality scale.
// Each dimension is floor(client * ratio * scale) clamped to at least 1. A non-finite or
// non-positive ratio is treated as 1.
//
// Parameters:
//   - clientWidth: the logical canvas width
//   - clientHeight: the logical canvas height
//   - pixelRatio: the device pixel ratio
//   - scale: the quality scale
//
// Returns:
//   - Size: the computed render size
func ComputeSize(clientWidth, clientHeight int, pixelRatio, scale float64) Size {
	if !common.IsFinite(pixelRatio) || pixelRatio <= 0 {
		pixelRatio = 1
	}
	return Size{
		Width:      scaleDimension(clientWidth, pixelRatio, scale),
		Height:     scaleDimension(clientHeight, pixelRatio, scale),
		PixelRatio: pixelRatio,
		Scale:      scale,
	}
}

func scaleDimension(client int, ratio, scale float64) int {
	return max(1, int(math.Floor(float64(client)*ratio*scale)))
}
