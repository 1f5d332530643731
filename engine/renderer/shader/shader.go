package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ErrNoComputeEntryPoint is returned when a WGSL module declares no usable @compute entry point.
var ErrNoComputeEntryPoint = errors.New("shader: no compute entry point")

// shader is the implementation of the Shader interface.
// It holds the reflected compute entry point and bind group layouts needed for pipeline creation.
type shader struct {
	key                        string
	source                     string
	entryPoint                 string
	workGroupSize              [3]uint32
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a parsed WGSL compute shader. It exposes the shader's
// unique key, source code, entry point, workgroup size and the bind group layout descriptors
// reflected from its resource declarations.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the compute entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size of the entry point. Unspecified dimensions are 1.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all reflected bind group layout descriptors.
	// The renderer uses them to create the wgpu.BindGroupLayout GPU objects.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a variable name within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// Module returns the wgpu.ShaderModuleDescriptor built from the source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewComputeShader parses and reflects a WGSL compute shader.
// The source is parsed and lowered with naga, which rejects malformed WGSL before it reaches the device.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the WGSL source code
//   - options: optional configuration such as WithEntryPoint
//
// Returns:
//   - Shader: the reflected shader
//   - error: a parse or lowering error, or ErrNoComputeEntryPoint
func NewComputeShader(key, source string, options ...ShaderOption) (Shader, error) {
	cfg := shaderConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}

	ep, err := computeEntryPoint(mod, cfg.entryPoint)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}

	layouts, names := reflectBindings(key, ast, mod)
	return &shader{
		key:                        key,
		source:                     source,
		entryPoint:                 ep.Name,
		workGroupSize:              normalizeWorkgroup(ep.Workgroup),
		bindGroupLayoutDescriptors: layouts,
		bindingVarNames:            names,
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}, nil
}

// NewComputeShaderFromPath reads WGSL source from a file and calls NewComputeShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - sourcePath: the file path to read WGSL source from
//   - options: optional configuration such as WithEntryPoint
//
// Returns:
//   - Shader: the reflected shader
//   - error: a read, parse or reflection error
func NewComputeShaderFromPath(key, sourcePath string, options ...ShaderOption) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", sourcePath, err)
	}
	return NewComputeShader(key, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
