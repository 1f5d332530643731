package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const resolveSource = `
struct Params {
    scale: vec4<f32>,
    count: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<f32>;
@group(0) @binding(2) var<storage, read_write> dst: array<f32>;

@compute @workgroup_size(8, 8)
fn resolve(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    dst[i] = src[i] * params.scale.x;
}
`

const textureSource = `
@group(1) @binding(0) var history: texture_2d<f32>;
@group(1) @binding(1) var history_sampler: sampler;
@group(1) @binding(2) var output: texture_storage_2d<rgba16float, write>;

@compute @workgroup_size(16)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`

const vertexOnlySource = `
@vertex
fn vs(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

func TestNewComputeShader_EntryPointAndWorkgroup(t *testing.T) {
	s, err := NewComputeShader("resolve", resolveSource)
	if err != nil {
		t.Fatalf("NewComputeShader() error = %v", err)
	}
	if got := s.EntryPoint(); got != "resolve" {
		t.Errorf("EntryPoint() = %q, want %q", got, "resolve")
	}
	if got, want := s.WorkgroupSize(), [3]uint32{8, 8, 1}; got != want {
		t.Errorf("WorkgroupSize() = %v, want %v", got, want)
	}
	if s.Module() == nil || s.Module().WGSLDescriptor == nil || s.Module().WGSLDescriptor.Code != resolveSource {
		t.Error("Module() should carry the WGSL source")
	}
	if s.Module().Label != "resolve" {
		t.Errorf("Module().Label = %q, want %q", s.Module().Label, "resolve")
	}
}

func TestNewComputeShader_BufferBindings(t *testing.T) {
	s, err := NewComputeShader("resolve", resolveSource)
	if err != nil {
		t.Fatalf("NewComputeShader() error = %v", err)
	}
	desc := s.BindGroupLayoutDescriptor(0)
	if len(desc.Entries) != 3 {
		t.Fatalf("group 0 entries = %d, want 3", len(desc.Entries))
	}

	tests := []struct {
		name     string
		binding  uint32
		typ      wgpu.BufferBindingType
		minBytes uint64
	}{
		{"uniform struct", 0, wgpu.BufferBindingTypeUniform, 32},
		{"read-only storage", 1, wgpu.BufferBindingTypeReadOnlyStorage, 4},
		{"read-write storage", 2, wgpu.BufferBindingTypeStorage, 4},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := desc.Entries[i]
			if e.Binding != tt.binding {
				t.Errorf("Binding = %d, want %d", e.Binding, tt.binding)
			}
			if e.Visibility != wgpu.ShaderStageCompute {
				t.Errorf("Visibility = %v, want compute", e.Visibility)
			}
			if e.Buffer.Type != tt.typ {
				t.Errorf("Buffer.Type = %v, want %v", e.Buffer.Type, tt.typ)
			}
			if e.Buffer.MinBindingSize != tt.minBytes {
				t.Errorf("Buffer.MinBindingSize = %d, want %d", e.Buffer.MinBindingSize, tt.minBytes)
			}
		})
	}

	if got := s.BindGroupVarName(0, 2); got != "dst" {
		t.Errorf("BindGroupVarName(0, 2) = %q, want %q", got, "dst")
	}
	if b, ok := s.BindGroupFromVarName(0, "src"); !ok || b != 1 {
		t.Errorf("BindGroupFromVarName(0, src) = %d, %v; want 1, true", b, ok)
	}
	if _, ok := s.BindGroupFromVarName(3, "src"); ok {
		t.Error("BindGroupFromVarName on an undeclared group should report false")
	}
}

func TestNewComputeShader_TextureBindings(t *testing.T) {
	s, err := NewComputeShader("taa", textureSource)
	if err != nil {
		t.Fatalf("NewComputeShader() error = %v", err)
	}
	if got, want := s.WorkgroupSize(), [3]uint32{16, 1, 1}; got != want {
		t.Errorf("WorkgroupSize() = %v, want %v", got, want)
	}
	if _, ok := s.BindGroupLayoutDescriptors()[0]; ok {
		t.Error("group 0 is not declared and should have no descriptor")
	}

	desc := s.BindGroupLayoutDescriptor(1)
	if len(desc.Entries) != 3 {
		t.Fatalf("group 1 entries = %d, want 3", len(desc.Entries))
	}
	if desc.Label != "taa-group-1" {
		t.Errorf("Label = %q, want %q", desc.Label, "taa-group-1")
	}

	tex := desc.Entries[0]
	if tex.Texture.SampleType != wgpu.TextureSampleTypeFloat || tex.Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("texture entry = %+v, want float 2D", tex.Texture)
	}
	if desc.Entries[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler type = %v, want filtering", desc.Entries[1].Sampler.Type)
	}
	st := desc.Entries[2].StorageTexture
	if st.Format != wgpu.TextureFormatRGBA16Float {
		t.Errorf("storage format = %v, want rgba16float", st.Format)
	}
	if st.Access != wgpu.StorageTextureAccessWriteOnly {
		t.Errorf("storage access = %v, want write-only", st.Access)
	}
}

func TestNewComputeShader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		opts    []ShaderOption
		wantErr error
	}{
		{"vertex only", vertexOnlySource, nil, ErrNoComputeEntryPoint},
		{"unknown entry point", resolveSource, []ShaderOption{WithEntryPoint("missing")}, ErrNoComputeEntryPoint},
		{"malformed", "fn (", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewComputeShader("bad", tt.source, tt.opts...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if s != nil {
				t.Error("shader should be nil on error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithEntryPoint(t *testing.T) {
	s, err := NewComputeShader("resolve", resolveSource, WithEntryPoint("resolve"))
	if err != nil {
		t.Fatalf("NewComputeShader() error = %v", err)
	}
	if s.EntryPoint() != "resolve" {
		t.Errorf("EntryPoint() = %q, want %q", s.EntryPoint(), "resolve")
	}
}

func TestNewComputeShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.wgsl")
	if err := os.WriteFile(path, []byte(resolveSource), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewComputeShaderFromPath("resolve", path)
	if err != nil {
		t.Fatalf("NewComputeShaderFromPath() error = %v", err)
	}
	if s.Key() != "resolve" || s.Source() != resolveSource {
		t.Error("shader should keep its key and file contents")
	}

	if _, err := NewComputeShaderFromPath("missing", filepath.Join(t.TempDir(), "nope.wgsl")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNormalizeWorkgroup(t *testing.T) {
	if got, want := normalizeWorkgroup([3]uint32{64, 0, 0}), [3]uint32{64, 1, 1}; got != want {
		t.Errorf("normalizeWorkgroup() = %v, want %v", got, want)
	}
}
