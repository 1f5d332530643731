package shader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
)

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// wgslStorageAccessMap maps WGSL access mode keywords to their wgpu storage texture access
var wgslStorageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormatMap maps WGSL texel format strings to their corresponding wgpu texture formats.
// These are the formats valid for storage textures.
var wgslTexelFormatMap = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba8sint":   wgpu.TextureFormatRGBA8Sint,
	"rgba16uint":  wgpu.TextureFormatRGBA16Uint,
	"rgba16sint":  wgpu.TextureFormatRGBA16Sint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"r32sint":     wgpu.TextureFormatR32Sint,
	"r32float":    wgpu.TextureFormatR32Float,
	"rg32uint":    wgpu.TextureFormatRG32Uint,
	"rg32sint":    wgpu.TextureFormatRG32Sint,
	"rg32float":   wgpu.TextureFormatRG32Float,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
	"rgba32sint":  wgpu.TextureFormatRGBA32Sint,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

// computeEntryPoint finds the compute entry point to reflect.
//
// Parameters:
//   - mod: the lowered module
//   - name: the requested entry point, or empty for the first compute entry point
//
// Returns:
//   - ir.EntryPoint: the selected entry point
//   - error: ErrNoComputeEntryPoint when no match exists
func computeEntryPoint(mod *ir.Module, name string) (ir.EntryPoint, error) {
	for _, ep := range mod.EntryPoints {
		if ep.Stage != ir.StageCompute {
			continue
		}
		if name == "" || ep.Name == name {
			return ep, nil
		}
	}
	if name != "" {
		return ir.EntryPoint{}, fmt.Errorf("%w: %q", ErrNoComputeEntryPoint, name)
	}
	return ir.EntryPoint{}, ErrNoComputeEntryPoint
}

// normalizeWorkgroup replaces unspecified (zero) workgroup dimensions with 1.
func normalizeWorkgroup(wg [3]uint32) [3]uint32 {
	for i := range wg {
		if wg[i] == 0 {
			wg[i] = 1
		}
	}
	return wg
}

// reflectBindings builds compute-visible bind group layout descriptors for every global
// resource with a @group/@binding. The lowered module provides resource kinds and buffer sizes;
// the parsed declarations provide storage access modes and texel formats.
//
// Parameters:
//   - key: the shader key, used to label the descriptors
//   - ast: the parsed module
//   - mod: the lowered module
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func reflectBindings(key string, ast *wgsl.Module, mod *ir.Module) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	decls := make(map[string]*wgsl.VarDecl, len(ast.GlobalVars))
	for _, v := range ast.GlobalVars {
		decls[v.Name] = v
	}

	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		group := int(gv.Binding.Group)
		entry, ok := layoutEntry(mod, gv, decls[gv.Name])
		if !ok {
			continue
		}
		entries[group] = append(entries[group], entry)
		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][int(gv.Binding.Binding)] = gv.Name
	}

	layouts := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, e := range entries {
		sort.Slice(e, func(i, j int) bool { return e[i].Binding < e[j].Binding })
		layouts[group] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s-group-%d", key, group),
			Entries: e,
		}
	}
	return layouts, names
}

// layoutEntry classifies one bound global into a bind group layout entry.
//
// Parameters:
//   - mod: the lowered module
//   - gv: the bound global variable
//   - decl: the matching parsed declaration, or nil
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated layout entry
//   - bool: false if the global is not a bindable resource
func layoutEntry(mod *ir.Module, gv ir.GlobalVariable, decl *wgsl.VarDecl) (wgpu.BindGroupLayoutEntry, bool) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    gv.Binding.Binding,
		Visibility: wgpu.ShaderStageCompute,
	}
	if int(gv.Type) >= len(mod.Types) {
		return entry, false
	}

	switch gv.Space {
	case ir.SpaceUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = typeSize(mod, gv.Type)
		return entry, true
	case ir.SpaceStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if decl != nil && decl.AccessMode == "read_write" {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		entry.Buffer.MinBindingSize = typeSize(mod, gv.Type)
		return entry, true
	}

	switch inner := mod.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		if inner.Comparison {
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
	case ir.ImageType:
		params := typeParams(decl)
		switch inner.Class {
		case ir.ImageClassStorage:
			entry.StorageTexture.ViewDimension = viewDimension(inner)
			entry.StorageTexture.Access = wgpu.StorageTextureAccessWriteOnly
			if len(params) >= 1 {
				if format, ok := wgslTexelFormatMap[params[0]]; ok {
					entry.StorageTexture.Format = format
				}
			}
			if len(params) >= 2 {
				if access, ok := wgslStorageAccessMap[params[1]]; ok {
					entry.StorageTexture.Access = access
				}
			}
		case ir.ImageClassDepth:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			entry.Texture.ViewDimension = viewDimension(inner)
			entry.Texture.Multisampled = inner.Multisampled
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			if len(params) >= 1 {
				if st, ok := wgslSampleTypeMap[params[0]]; ok {
					entry.Texture.SampleType = st
				}
			}
			entry.Texture.ViewDimension = viewDimension(inner)
			entry.Texture.Multisampled = inner.Multisampled
		}
	default:
		return entry, false
	}
	return entry, true
}

// typeParams returns the names of a declaration's type parameters, e.g. ["rgba8unorm", "write"].
func typeParams(decl *wgsl.VarDecl) []string {
	if decl == nil {
		return nil
	}
	named, ok := decl.Type.(*wgsl.NamedType)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(named.TypeParams))
	for _, p := range named.TypeParams {
		if pn, ok := p.(*wgsl.NamedType); ok {
			out = append(out, pn.Name)
		}
	}
	return out
}

// viewDimension maps an image's dimension and arrayed flag to a texture view dimension.
func viewDimension(img ir.ImageType) wgpu.TextureViewDimension {
	switch img.Dim {
	case ir.Dim1D:
		return wgpu.TextureViewDimension1D
	case ir.Dim3D:
		return wgpu.TextureViewDimension3D
	case ir.DimCube:
		if img.Arrayed {
			return wgpu.TextureViewDimensionCubeArray
		}
		return wgpu.TextureViewDimensionCube
	default:
		if img.Arrayed {
			return wgpu.TextureViewDimension2DArray
		}
		return wgpu.TextureViewDimension2D
	}
}

// typeSize computes the minimum binding size in bytes for a buffer type.
// Runtime-sized arrays report the size of one element.
//
// Parameters:
//   - mod: the lowered module
//   - h: the type handle
//
// Returns:
//   - uint64: the size in bytes, or 0 if unknown
func typeSize(mod *ir.Module, h ir.TypeHandle) uint64 {
	if int(h) >= len(mod.Types) {
		return 0
	}
	switch t := mod.Types[h].Inner.(type) {
	case ir.ScalarType:
		return uint64(t.Width)
	case ir.AtomicType:
		return uint64(t.Scalar.Width)
	case ir.VectorType:
		return uint64(t.Size) * uint64(t.Scalar.Width)
	case ir.MatrixType:
		rows := uint64(t.Rows)
		if rows == 3 {
			rows = 4
		}
		return uint64(t.Columns) * rows * uint64(t.Scalar.Width)
	case ir.ArrayType:
		stride := uint64(t.Stride)
		if stride == 0 {
			stride = typeSize(mod, t.Base)
		}
		if t.Size.Constant == nil {
			return stride
		}
		return uint64(*t.Size.Constant) * stride
	case ir.StructType:
		return uint64(t.Span)
	}
	return 0
}
