package pipeline

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/compute"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups.
	pipelineKey string

	computeShader shader.Shader

	// GPU objects, populated by the Renderer when the pipeline is registered.
	computePipeline  *wgpu.ComputePipeline
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts map[int]*wgpu.BindGroupLayout
	// shared marks layouts supplied by the caller; they are not released with the pipeline.
	shared map[int]bool
}

// Pipeline wraps a compute shader and the GPU compute pipeline built from it.
// Dispatch steps pass a Pipeline directly as their pipeline handle.
type Pipeline interface {
	// PipelineKey returns the unique key for this pipeline.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// Shader returns the compute shader this pipeline was built from.
	//
	// Returns:
	//   - shader.Shader: the compute shader
	Shader() shader.Shader

	// Pipeline returns the GPU compute pipeline, or nil before registration.
	//
	// Returns:
	//   - *wgpu.ComputePipeline: the compute pipeline or nil
	Pipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the bind group layout for a group index, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout or nil
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// Workgroups returns the dispatch size covering the given invocation counts with the shader's workgroup size.
	//
	// Parameters:
	//   - x, y, z: the number of invocations required on each axis
	//
	// Returns:
	//   - [3]uint32: the workgroup counts
	Workgroups(x, y, z uint32) [3]uint32

	// SetComputePipeline stores the GPU compute pipeline and its layout.
	//
	// Parameters:
	//   - cp: the compute pipeline
	//   - layout: the pipeline layout it was created with
	SetComputePipeline(cp *wgpu.ComputePipeline, layout *wgpu.PipelineLayout)

	// SetBindGroupLayout stores a bind group layout created for group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - bgl: the bind group layout
	SetBindGroupLayout(group int, bgl *wgpu.BindGroupLayout)

	// Release releases the GPU objects owned by this pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a new compute Pipeline.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: builder options; WithComputeShader is required
//
// Returns:
//   - Pipeline: the new pipeline
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:      pipelineKey,
		bindGroupLayouts: make(map[int]*wgpu.BindGroupLayout),
		shared:           make(map[int]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.computeShader == nil {
		panic("pipeline: NewPipeline requires a non-nil compute shader")
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) Pipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	return p.bindGroupLayouts[group]
}

func (p *pipeline) Workgroups(x, y, z uint32) [3]uint32 {
	return compute.Workgroups([3]uint32{x, y, z}, p.computeShader.WorkgroupSize())
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline, layout *wgpu.PipelineLayout) {
	p.computePipeline = cp
	p.pipelineLayout = layout
}

func (p *pipeline) SetBindGroupLayout(group int, bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayouts[group] = bgl
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for group, bgl := range p.bindGroupLayouts {
		if bgl != nil && !p.shared[group] {
			bgl.Release()
		}
		delete(p.bindGroupLayouts, group)
	}
}
