package adaptive

// ChainBuilderOption is a functional option applied to a chain during construction via NewChain.
type ChainBuilderOption func(*chain)

// WithOnDowngrade registers the callback fired after a pass is disabled.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ChainBuilderOption: a function that applies the callback option to a chain
func WithOnDowngrade(fn ToggleCallback) ChainBuilderOption {
	return func(c *chain) {
		c.onDowngrade = fn
	}
}

// WithOnUpgrade registers the callback fired after a pass is re-enabled.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ChainBuilderOption: a function that applies the callback option to a chain
func WithOnUpgrade(fn ToggleCallback) ChainBuilderOption {
	return func(c *chain) {
		c.onUpgrade = fn
	}
}
