package compute

// RunnerBuilderOption is a functional option applied to a runner during construction via NewRunner.
type RunnerBuilderOption func(*runner)

// WithTasks registers the given tasks in order.
//
// Parameters:
//   - tasks: the tasks to register
//
// Returns:
//   - RunnerBuilderOption: a function that applies the tasks option to a runner
func WithTasks(tasks ...ComputeTask) RunnerBuilderOption {
	return func(r *runner) {
		for _, t := range tasks {
			r.Register(t)
		}
	}
}

// WithRenderCallback sets the callback run after compute submission each frame.
//
// Parameters:
//   - fn: the render callback
//
// Returns:
//   - RunnerBuilderOption: a function that applies the render callback option to a runner
func WithRenderCallback(fn RenderCallback) RunnerBuilderOption {
	return func(r *runner) {
		r.render = fn
	}
}

// WithPostChain sets the chain evaluated at the end of every frame.
//
// Parameters:
//   - chain: the post chain, typically an adaptive.Chain
//
// Returns:
//   - RunnerBuilderOption: a function that applies the post chain option to a runner
func WithPostChain(chain PostChain) RunnerBuilderOption {
	return func(r *runner) {
		r.post = chain
	}
}

// WithDispatchObserver sets the observer notified after each submitted batch.
//
// Parameters:
//   - fn: the observer
//
// Returns:
//   - RunnerBuilderOption: a function that applies the observer option to a runner
func WithDispatchObserver(fn DispatchObserver) RunnerBuilderOption {
	return func(r *runner) {
		r.observer = fn
	}
}

// WithEncoderLabel sets the debug label of the runner's command encoders.
//
// Parameters:
//   - label: the encoder label
//
// Returns:
//   - RunnerBuilderOption: a function that applies the label option to a runner
func WithEncoderLabel(label string) RunnerBuilderOption {
	return func(r *runner) {
		if label != "" {
			r.label = label
		}
	}
}
