package pipeline

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithComputeShader sets the compute shader for this pipeline.
//
// Parameters:
//   - s: the compute shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute shader for this pipeline
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithSharedBindGroupLayout reuses an existing bind group layout for a group instead of
// creating one from the shader. Shared layouts are not released with the pipeline, so
// passes can bind the same BindGroupProvider across pipelines.
//
// Parameters:
//   - group: the bind group index
//   - bgl: the existing layout
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shared layout
func WithSharedBindGroupLayout(group int, bgl *wgpu.BindGroupLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.bindGroupLayouts[group] = bgl
		p.shared[group] = true
	}
}
