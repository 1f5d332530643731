package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// errEncoderConsumed is returned by Finish on an encoder that was already finished or released.
var errEncoderConsumed = errors.New("renderer: command encoder already finished or released")

// wgpuTextureFormatMap maps device-agnostic texture formats to their wgpu equivalents.
var wgpuTextureFormatMap = map[gpu.TextureFormat]wgpu.TextureFormat{
	gpu.TextureFormatRGBA8Unorm:   wgpu.TextureFormatRGBA8Unorm,
	gpu.TextureFormatBGRA8Unorm:   wgpu.TextureFormatBGRA8Unorm,
	gpu.TextureFormatRGBA16Float:  wgpu.TextureFormatRGBA16Float,
	gpu.TextureFormatRGBA32Float:  wgpu.TextureFormatRGBA32Float,
	gpu.TextureFormatR32Float:     wgpu.TextureFormatR32Float,
	gpu.TextureFormatDepth32Float: wgpu.TextureFormatDepth32Float,
}

// wgpuBufferUsage converts a device-agnostic buffer usage set. Both use the WebGPU bit values.
func wgpuBufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	return wgpu.BufferUsage(u)
}

// wgpuTextureUsage converts a device-agnostic texture usage set. Both use the WebGPU bit values.
func wgpuTextureUsage(u gpu.TextureUsage) wgpu.TextureUsage {
	return wgpu.TextureUsage(u)
}

// wgpuDevice adapts the backend's wgpu device and queue to gpu.Device so the render graph,
// compute orchestrator and runner can drive it.
type wgpuDevice struct {
	device *wgpu.Device
	queue  *wgpuQueue
}

var _ gpu.Device = &wgpuDevice{}

func newWGPUDevice(device *wgpu.Device, queue *wgpu.Queue) *wgpuDevice {
	return &wgpuDevice{
		device: device,
		queue:  &wgpuQueue{queue: queue},
	}
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: enc}, nil
}

func (d *wgpuDevice) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: wgpuBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf, size: desc.Size}, nil
}

func (d *wgpuDevice) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	format, ok := wgpuTextureFormatMap[desc.Format]
	if !ok {
		return nil, fmt.Errorf("renderer: unsupported texture format %s", desc.Format)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              max(1, desc.Width),
			Height:             max(1, desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpuTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view, desc: desc}, nil
}

func (d *wgpuDevice) Queue() gpu.Queue {
	return d.queue
}

// wgpuCommandEncoder wraps a wgpu command encoder.
type wgpuCommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) BeginComputePass(label string) gpu.ComputePass {
	return &wgpuComputePass{pass: e.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

// Finish finishes the native encoder and releases it. The encoder stays alive on error so the
// caller's Release frees it.
func (e *wgpuCommandEncoder) Finish() (gpu.CommandBuffer, error) {
	if e.encoder == nil {
		return nil, errEncoderConsumed
	}
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	e.encoder.Release()
	e.encoder = nil
	return &wgpuCommandBuffer{buffer: cb}, nil
}

func (e *wgpuCommandEncoder) Release() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}

// wgpuComputePass wraps a wgpu compute pass encoder. Pipelines and bind groups arrive as
// opaque handles and are unwrapped here.
type wgpuComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (p *wgpuComputePass) SetPipeline(handle any) {
	switch v := handle.(type) {
	case *wgpu.ComputePipeline:
		p.pass.SetPipeline(v)
	case pipeline.Pipeline:
		p.pass.SetPipeline(v.Pipeline())
	default:
		common.Logger().Error("renderer: unsupported pipeline handle", "type", fmt.Sprintf("%T", handle))
	}
}

func (p *wgpuComputePass) SetBindGroup(index uint32, handle any) {
	switch v := handle.(type) {
	case *wgpu.BindGroup:
		p.pass.SetBindGroup(index, v, nil)
	case bind_group_provider.BindGroupProvider:
		p.pass.SetBindGroup(index, v.BindGroup(), nil)
	default:
		common.Logger().Error("renderer: unsupported bind group handle", "index", index, "type", fmt.Sprintf("%T", handle))
	}
}

func (p *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

// End ends the native pass and releases it.
func (p *wgpuComputePass) End() {
	if p.pass == nil {
		return
	}
	if err := p.pass.End(); err != nil {
		common.Logger().Error("renderer: compute pass end failed", "error", err)
	}
	p.pass.Release()
	p.pass = nil
}

// wgpuCommandBuffer wraps a finished wgpu command buffer. Release is idempotent.
type wgpuCommandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (c *wgpuCommandBuffer) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}

// wgpuQueue wraps the device queue.
type wgpuQueue struct {
	queue *wgpu.Queue
}

// Submit submits the command buffers in order and releases them.
func (q *wgpuQueue) Submit(buffers ...gpu.CommandBuffer) {
	cbs := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if cb, ok := b.(*wgpuCommandBuffer); ok && cb.buffer != nil {
			cbs = append(cbs, cb.buffer)
		}
	}
	if len(cbs) > 0 {
		q.queue.Submit(cbs...)
	}
	for _, b := range buffers {
		b.Release()
	}
}

func (q *wgpuQueue) WriteBuffer(buffer gpu.Buffer, offset uint64, data []byte) {
	b, ok := buffer.(*wgpuBuffer)
	if !ok || b.buffer == nil {
		common.Logger().Error("renderer: WriteBuffer on a foreign or released buffer")
		return
	}
	q.queue.WriteBuffer(b.buffer, offset, data)
}

// wgpuBuffer wraps a wgpu buffer.
type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// Buffer returns the underlying wgpu buffer.
func (b *wgpuBuffer) Buffer() *wgpu.Buffer {
	return b.buffer
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

// wgpuTexture wraps a wgpu texture and its default view. Both are released together.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	desc    gpu.TextureDescriptor
}

// View returns the texture's default view, or nil once released.
func (t *wgpuTexture) View() *wgpu.TextureView {
	return t.view
}

func (t *wgpuTexture) Width() uint32 {
	return t.desc.Width
}

func (t *wgpuTexture) Height() uint32 {
	return t.desc.Height
}

func (t *wgpuTexture) Format() gpu.TextureFormat {
	return t.desc.Format
}

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}
