package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_graph"
)

// DefaultHistoryUsage lets a history target be written by one compute pass, sampled by the
// next frame's pass, and copied to the surface.
const DefaultHistoryUsage = gpu.TextureUsageStorageBinding | gpu.TextureUsageTextureBinding | gpu.TextureUsageCopySrc

// createHistoryTarget allocates a texture at the render size.
func createHistoryTarget(device gpu.Device, label string, size render_graph.Size, format gpu.TextureFormat, usage gpu.TextureUsage) (gpu.Texture, error) {
	if usage == 0 {
		usage = DefaultHistoryUsage
	}
	tex, err := device.CreateTexture(gpu.TextureDescriptor{
		Label:  fmt.Sprintf("%s %dx%d", label, size.Width, size.Height),
		Width:  uint32(max(1, size.Width)),
		Height: uint32(max(1, size.Height)),
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: history target %q: %w", label, err)
	}
	return tex, nil
}

// HistoryTargetFactory returns a render graph history factory that allocates a texture on
// device at the graph's render size. The graph releases the texture before rebuilding it.
//
// Parameters:
//   - device: the device to allocate on
//   - label: the debug label
//   - format: the texel format
//   - usage: the texture usage bits, or 0 for DefaultHistoryUsage
//
// Returns:
//   - render_graph.HistoryFactory: the factory
func HistoryTargetFactory(device gpu.Device, label string, format gpu.TextureFormat, usage gpu.TextureUsage) render_graph.HistoryFactory {
	if device == nil {
		panic("renderer: HistoryTargetFactory requires a non-nil device")
	}
	return func(size render_graph.Size) (any, error) {
		return createHistoryTarget(device, label, size, format, usage)
	}
}
