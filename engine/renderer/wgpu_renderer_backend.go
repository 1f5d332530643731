package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrFrameInFlight is returned by BeginFrame while the previous surface texture has not been presented.
var ErrFrameInFlight = errors.New("renderer: previous frame surface not yet presented")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	gpu    *wgpuDevice

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32
	surfaceCopy   bool
	clearColor    wgpu.Color

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state between BeginFrame and Present
	frameEncoder  *wgpu.CommandEncoder
	framePass     *wgpu.RenderPassEncoder
	frameSurface  *wgpu.Texture
	frameView     *wgpu.TextureView
	presentSource *wgpuTexture
}

type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the swapchain for the given framebuffer size.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the present mode applied on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the frame pass clears the surface to.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c wgpu.Color)

	// SetSurfaceCopy enables copying a present source into the surface. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - enabled: true to add copy-destination usage to the surface
	SetSurfaceCopy(enabled bool)

	// SurfaceFormat returns the configured surface format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format, or undefined before ConfigureSurface
	SurfaceFormat() wgpu.TextureFormat

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout and
	// compute pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: error if any GPU object could not be created
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates missing buffers and (re)creates the bind group for provider.
	//
	// Parameters:
	//   - provider: the provider to initialize
	//   - descriptor: the layout descriptor the group is created against
	//   - bufferUsageOverrides: extra usage bits per binding (nil safe)
	//   - bufferSizeOverrides: buffer sizes per binding used instead of MinBindingSize (nil safe)
	//
	// Returns:
	//   - error: error if a binding is unfilled or a GPU object could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads staging data into a new sampled texture and binds its view.
	//
	// Parameters:
	//   - provider: the provider receiving the view
	//   - bindingKey: the binding index
	//   - stagingData: the RGBA pixels to upload
	//
	// Returns:
	//   - error: error if the texture or view could not be created
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and binds it.
	//
	// Parameters:
	//   - provider: the provider receiving the sampler
	//   - bindingKey: the binding index
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: error if the sampler could not be created
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers uploads each write to its provider buffer. Writes to missing buffers, or that
	// do not fit their buffer, are skipped.
	//
	// Parameters:
	//   - writes: the buffer writes to apply
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the surface texture and begins the clear pass.
	//
	// Returns:
	//   - error: ErrFrameInFlight or a surface acquisition error
	BeginFrame() error

	// SetPresentSource selects a texture copied into the surface at EndFrame. Nil clears it.
	//
	// Parameters:
	//   - tex: a texture created by GPUDevice, or nil
	SetPresentSource(tex gpu.Texture)

	// EndFrame ends the clear pass, copies the present source if it matches the surface, and submits.
	EndFrame()

	// Present presents the acquired surface texture.
	Present()

	// GPUDevice returns the device-agnostic view of the device.
	//
	// Returns:
	//   - gpu.Device: the device used by the graph and compute runner
	GPUDevice() gpu.Device

	// Device returns the underlying wgpu device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the underlying wgpu queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// Release releases the surface, device, adapter and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		clearColor:  wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// Post chains commonly bind frame inputs, history and lookup resources in separate groups.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.gpu = newWGPUDevice(w.device, w.queue)

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.surfaceWidth = uint32(max(1, width))
	b.surfaceHeight = uint32(max(1, height))

	usage := wgpu.TextureUsageRenderAttachment
	if b.surfaceCopy {
		usage |= wgpu.TextureUsageCopyDst
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       usage,
		Format:      *b.surfaceFormat,
		Width:       b.surfaceWidth,
		Height:      b.surfaceHeight,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(c wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = c
}

func (b *wgpuRendererBackendImpl) SetSurfaceCopy(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surfaceCopy = enabled
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader()
	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return fmt.Errorf("renderer: %s: shader module: %w", p.PipelineKey(), err)
	}
	defer s.Release()

	descriptors := computeShader.BindGroupLayoutDescriptors()
	groups := make([]int, 0, len(descriptors))
	maxGroup := -1
	for g := range descriptors {
		groups = append(groups, g)
		maxGroup = max(maxGroup, g)
	}
	sort.Ints(groups)

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for _, g := range groups {
		if existing := p.BindGroupLayout(g); existing != nil {
			bindGroupLayouts[g] = existing
			continue
		}
		desc := descriptors[g]
		bgl, bglErr := b.device.CreateBindGroupLayout(&desc)
		if bglErr != nil {
			return fmt.Errorf("renderer: %s: bind group layout for group %d: %w", p.PipelineKey(), g, bglErr)
		}
		p.SetBindGroupLayout(g, bgl)
		bindGroupLayouts[g] = bgl
	}
	// Gaps in the group sequence get an empty layout.
	for g, bgl := range bindGroupLayouts {
		if bgl != nil {
			continue
		}
		empty, emptyErr := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: fmt.Sprintf("%s-group-%d", p.PipelineKey(), g),
		})
		if emptyErr != nil {
			return fmt.Errorf("renderer: %s: empty bind group layout %d: %w", p.PipelineKey(), g, emptyErr)
		}
		p.SetBindGroupLayout(g, empty)
		bindGroupLayouts[g] = empty
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("renderer: %s: pipeline layout: %w", p.PipelineKey(), err)
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		layout.Release()
		return fmt.Errorf("renderer: %s: compute pipeline: %w", p.PipelineKey(), err)
	}

	p.SetComputePipeline(created, layout)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}
	if provider.BindGroup() != nil && !provider.Stale() {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
			entry.StorageTexture.Access != wgpu.StorageTextureAccessUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("renderer: %s: texture binding %d has no texture view", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		case isSampler:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("renderer: %s: sampler binding %d has no sampler", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		default:
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}
			if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
				usage |= overrideUsage
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				var bufErr error
				bufSize := common.Coalesce(bufferSizeOverrides[binding], entry.Buffer.MinBindingSize)
				buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return bufErr
				}
				provider.SetBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTextureView(bindingKey, view)

	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if !w.Fits(buf.GetSize()) {
			common.Logger().Warn("renderer: buffer write skipped", "provider", w.Provider.Label(), "binding", w.Binding, "offset", w.Offset, "bytes", len(w.Data), "size", buf.GetSize())
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return ErrFrameInFlight
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentSource(tex gpu.Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tex == nil {
		b.presentSource = nil
		return
	}
	src, ok := tex.(*wgpuTexture)
	if !ok {
		common.Logger().Warn("renderer: present source was not created by this device")
		return
	}
	b.presentSource = src
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	if err := b.framePass.End(); err != nil {
		common.Logger().Error("renderer: ending frame pass", "error", err)
	}
	b.framePass.Release()
	b.copyPresentSource()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		common.Logger().Error("renderer: finishing frame encoder", "error", err)
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

// copyPresentSource copies the present source into the surface texture when the surface
// accepts copies and the source matches its size and format. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) copyPresentSource() {
	src := b.presentSource
	if src == nil || src.texture == nil || !b.surfaceCopy || b.surfaceFormat == nil {
		return
	}
	format, ok := wgpuTextureFormatMap[src.Format()]
	if !ok || format != *b.surfaceFormat || src.Width() != b.surfaceWidth || src.Height() != b.surfaceHeight {
		return
	}
	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: src.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: b.frameSurface, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: b.surfaceWidth, Height: b.surfaceHeight, DepthOrArrayLayers: 1},
	)
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) GPUDevice() gpu.Device {
	return b.gpu
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.presentSource = nil
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
