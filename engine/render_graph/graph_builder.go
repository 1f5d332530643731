package render_graph

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
)

// GraphBuilderOption is a functional option applied to a graph during construction via NewGraph.
type GraphBuilderOption func(*graph)

// WithQualityScale sets the initial render scale. It is clamped to [minimum, 1] after all options apply.
//
// Parameters:
//   - scale: the initial render scale
//
// Returns:
//   - GraphBuilderOption: a function that applies the quality scale option to a graph
func WithQualityScale(scale float64) GraphBuilderOption {
	return func(g *graph) {
		g.qualityScale = scale
	}
}

// WithMinQualityScale sets the lowest render scale SetQualityScale accepts. Defaults to 0.1.
//
// Parameters:
//   - scale: the minimum render scale in (0, 1]
//
// Returns:
//   - GraphBuilderOption: a function that applies the minimum scale option to a graph
func WithMinQualityScale(scale float64) GraphBuilderOption {
	return func(g *graph) {
		g.minQualityScale = scale
	}
}

// WithResizeCallback registers a function invoked whenever the render size changes,
// typically used to resize the renderer's surface and scaled targets.
//
// Parameters:
//   - fn: the callback receiving the new size
//
// Returns:
//   - GraphBuilderOption: a function that applies the resize callback option to a graph
func WithResizeCallback(fn func(Size)) GraphBuilderOption {
	return func(g *graph) {
		g.onResize = fn
	}
}

// WithDeferredWorkers sets the number of workers running Frame.Go work. Defaults to 4.
//
// Parameters:
//   - n: the maximum number of concurrent deferred functions
//
// Returns:
//   - GraphBuilderOption: a function that applies the worker count option to a graph
func WithDeferredWorkers(n int) GraphBuilderOption {
	return func(g *graph) {
		g.deferredWorkers = n
	}
}

// WithGraphConfig applies the graph section of a loaded configuration.
//
// Parameters:
//   - cfg: the graph configuration
//
// Returns:
//   - GraphBuilderOption: a function that applies every configured value to a graph
func WithGraphConfig(cfg config.GraphConfig) GraphBuilderOption {
	return func(g *graph) {
		g.qualityScale = cfg.QualityScale
		g.minQualityScale = cfg.MinQualityScale
		g.deferredWorkers = cfg.DeferredWorkers
	}
}
