package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/adaptive"
	"github.com/Carmen-Shannon/oxy-frame/engine/compute"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig applies the engine section (tick rate, frame limit), the profiler section and
// the budget used when no pass chain supplies its own tracker. Later options override it.
//
// Parameters:
//   - cfg: the loaded configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg == nil {
			return
		}
		e.cfg = cfg
		e.engineTickRate = tickInterval(cfg.Engine.TickRate)
		e.renderFrameLimit = frameLimit(cfg.Engine.RenderFrameLimit)
		e.profilingEnabled = cfg.Profiler.Enabled
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//   - options: extra profiler options, e.g. profiler.WithReportCallback
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool, options ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
		e.profilerOpts = append(e.profilerOpts, options...)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}

// WithWindow sets the window the engine runs in. Without a window the engine runs headless
// until Quit is called.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer that presents each frame and is resized with the window.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRenderGraph sets the render pass graph ticked every frame.
//
// Parameters:
//   - g: the graph
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderGraph(g render_graph.Graph) EngineBuilderOption {
	return func(e *engine) {
		e.graph = g
	}
}

// WithPassChain sets the adaptive pass chain evaluated after every frame. Its tracker also feeds the profiler.
//
// Parameters:
//   - c: the chain
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPassChain(c adaptive.Chain) EngineBuilderOption {
	return func(e *engine) {
		e.chain = c
	}
}

// WithComputeRunner sets the compute runner that drives each frame.
//
// Parameters:
//   - r: the runner
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithComputeRunner(r compute.Runner) EngineBuilderOption {
	return func(e *engine) {
		e.runner = r
	}
}

// WithBudgetTracker sets the tracker used when no pass chain is configured.
//
// Parameters:
//   - t: the tracker
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBudgetTracker(t profiler.BudgetTracker) EngineBuilderOption {
	return func(e *engine) {
		e.tracker = t
	}
}

// WithClock replaces the wall clock used for frame timestamps.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}
