package shader

// shaderConfig collects construction options for NewComputeShader.
type shaderConfig struct {
	entryPoint string
}

// ShaderOption is a functional option used to configure shader reflection.
type ShaderOption func(*shaderConfig)

// WithEntryPoint selects a named @compute entry point. Without it the first compute entry point is used.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderOption: a function that selects the entry point
func WithEntryPoint(name string) ShaderOption {
	return func(c *shaderConfig) {
		c.entryPoint = name
	}
}
