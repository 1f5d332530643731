package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	surfaceCopy          bool
	pendingPresentMode   *PresentMode
	pendingClearColor    *wgpu.Color
}

// Renderer owns the GPU device, the window surface and the compute pipeline cache.
//
// It is the GPU backend for the frame scheduler: Device exposes the device to the render graph
// and compute runner, HistoryFactory builds render-scale textures for graph history resources,
// and BeginFrame/EndFrame/Present put the final image on screen.
type Renderer interface {
	// Device returns the device-agnostic view of the GPU device.
	//
	// Returns:
	//   - gpu.Device: the device consumed by the render graph and compute runner
	Device() gpu.Device

	// Resize reconfigures the surface for a new framebuffer size.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	Resize(width, height int)

	// SetPresentMode sets the present mode. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Pipeline retrieves the cached Pipeline associated with the given key, or nil if not found.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterComputePipelines creates the GPU compute pipeline for each pipeline and caches it
	// by PipelineKey. Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first registration error, wrapped with the pipeline key
	RegisterComputePipelines(pipelines ...pipeline.Pipeline) error

	// InitBindGroup creates missing buffers and (re)creates the bind group for provider.
	// A provider whose group exists and is not stale is left untouched.
	//
	// Parameters:
	//   - provider: the provider to initialize
	//   - descriptor: the layout descriptor, usually from Shader.BindGroupLayoutDescriptor
	//   - bufferUsageOverrides: extra usage bits per binding (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: error if a binding is unfilled or a GPU object could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads staging data into a sampled texture owned by provider.
	//
	// Parameters:
	//   - provider: the provider receiving the view
	//   - bindingKey: the binding index
	//   - stagingData: the RGBA pixels to upload
	//
	// Returns:
	//   - error: error if the texture could not be created
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler owned by provider.
	//
	// Parameters:
	//   - provider: the provider receiving the sampler
	//   - bindingKey: the binding index
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: error if the sampler could not be created
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// BindTexture binds a texture created by Device, typically a history target, into provider
	// without transferring ownership. The provider goes stale when the texture changed.
	//
	// Parameters:
	//   - provider: the provider receiving the view
	//   - bindingKey: the binding index
	//   - tex: a texture created by Device
	//
	// Returns:
	//   - error: error if tex was not created by this renderer or is released
	BindTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, tex gpu.Texture) error

	// WriteBuffers uploads per-frame data into provider buffers.
	//
	// Parameters:
	//   - writes: the buffer writes to apply
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateHistoryTarget creates a render-scale texture sized for size.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the render size the texture is built for
	//   - format: the texel format
	//   - usage: the texture usage bits
	//
	// Returns:
	//   - gpu.Texture: the created texture
	//   - error: error if the texture could not be created
	CreateHistoryTarget(label string, size render_graph.Size, format gpu.TextureFormat, usage gpu.TextureUsage) (gpu.Texture, error)

	// HistoryFactory returns a render graph history factory that builds targets with CreateHistoryTarget.
	//
	// Parameters:
	//   - label: the debug label
	//   - format: the texel format
	//   - usage: the texture usage bits
	//
	// Returns:
	//   - render_graph.HistoryFactory: the factory
	HistoryFactory(label string, format gpu.TextureFormat, usage gpu.TextureUsage) render_graph.HistoryFactory

	// SetPresentSource selects the texture copied to the surface at EndFrame. Nil clears it.
	//
	// Parameters:
	//   - tex: a texture created by Device, or nil
	SetPresentSource(tex gpu.Texture)

	// BeginFrame acquires the surface texture and begins the clear pass.
	//
	// Returns:
	//   - error: ErrFrameInFlight or a surface acquisition error
	BeginFrame() error

	// EndFrame ends the clear pass, copies the present source and submits.
	EndFrame()

	// Present presents the frame.
	Present()

	// Release releases every cached pipeline and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given window.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - w: the window whose surface is rendered to
//   - options: builder options
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) Renderer {
	if w == nil {
		panic("renderer: NewRenderer requires a non-nil window")
	}
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		r.backend.SetClearColor(*r.pendingClearColor)
	}
	r.backend.SetSurfaceCopy(r.surfaceCopy)

	r.backend.ConfigureSurface(w.Width(), w.Height())
	return r
}

func (r *renderer) Device() gpu.Device {
	return r.backend.GPUDevice()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterComputePipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		if p == nil {
			continue
		}
		if _, exists := r.pipelineCache[p.PipelineKey()]; exists {
			continue
		}
		if err := r.backend.RegisterComputePipeline(p); err != nil {
			return fmt.Errorf("renderer: failed to register pipeline %q: %w", p.PipelineKey(), err)
		}
		r.pipelineCache[p.PipelineKey()] = p
		common.Logger().Debug("compute pipeline registered", "key", p.PipelineKey(), "entry_point", p.Shader().EntryPoint())
	}
	return nil
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) BindTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, tex gpu.Texture) error {
	t, ok := tex.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("renderer: %s: binding %d: texture %T was not created by this renderer", provider.Label(), bindingKey, tex)
	}
	if t.View() == nil {
		return fmt.Errorf("renderer: %s: binding %d: texture is released", provider.Label(), bindingKey)
	}
	provider.BorrowTextureView(bindingKey, t.View())
	return nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) CreateHistoryTarget(label string, size render_graph.Size, format gpu.TextureFormat, usage gpu.TextureUsage) (gpu.Texture, error) {
	return createHistoryTarget(r.Device(), label, size, format, usage)
}

func (r *renderer) HistoryFactory(label string, format gpu.TextureFormat, usage gpu.TextureUsage) render_graph.HistoryFactory {
	return HistoryTargetFactory(r.Device(), label, format, usage)
}

func (r *renderer) SetPresentSource(tex gpu.Texture) {
	r.backend.SetPresentSource(tex)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()
	r.backend.Release()
}
