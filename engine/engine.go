package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/adaptive"
	"github.com/Carmen-Shannon/oxy-frame/engine/compute"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// engine implements the Engine interface.
// Coordinates the logic tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	graph    render_graph.Graph
	chain    adaptive.Chain
	runner   compute.Runner

	// tracker feeds the profiler. It is the chain's tracker when a chain is configured.
	tracker      profiler.BudgetTracker
	ownsTracker  bool
	cfg          *config.Config
	profilerOpts []profiler.ProfilerBuilderOption

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	errorCallback  func(err error)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	now       func() time.Time
	start     time.Time
	lastFrame time.Time

	// pendingResize holds the latest framebuffer size reported by the window thread, packed as w<<32|h.
	pendingResize atomic.Uint64
}

// Engine is the main entry point for the engine.
// It drives the frame scheduler: every render frame runs the compute runner, the render pass
// graph and the adaptive pass chain, then presents.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the GPU renderer, or nil when none is configured.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Graph returns the render pass graph, or nil.
	//
	// Returns:
	//   - render_graph.Graph: the graph
	Graph() render_graph.Graph

	// Chain returns the adaptive pass chain, or nil.
	//
	// Returns:
	//   - adaptive.Chain: the chain
	Chain() adaptive.Chain

	// Runner returns the compute runner, or nil.
	//
	// Returns:
	//   - compute.Runner: the runner
	Runner() compute.Runner

	// Tracker returns the frame budget tracker that feeds the profiler.
	//
	// Returns:
	//   - profiler.BudgetTracker: the tracker
	Tracker() profiler.BudgetTracker

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called at the start of each render frame,
	// before compute work is encoded. Use it to write per-frame uniforms.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetErrorCallback registers the function receiving frame errors. Errors are always logged.
	//
	// Parameters:
	//   - callback: function receiving each frame error
	SetErrorCallback(callback func(err error))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame runs one render frame at timestampMs: the render callback, the compute runner (or the
	// graph and chain when no runner is configured), the budget tracker, present and the profiler.
	//
	// Parameters:
	//   - ctx: forwarded to compute tasks and render passes
	//   - timestampMs: the frame timestamp in milliseconds
	//
	// Returns:
	//   - error: the first runner or graph error
	Frame(ctx context.Context, timestampMs float64) error

	// Run starts the engine loops and blocks until the window closes or Quit is called.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// When both a runner and a graph are configured the runner renders through the graph and
// evaluates the chain after every frame.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		engineTickRate:  time.Second / 60,
		now:             time.Now,
	}

	for _, opt := range options {
		opt(e)
	}
	e.start = e.now()
	e.lastFrame = e.start

	if e.chain != nil {
		e.tracker = e.chain.Tracker()
		e.ownsTracker = false
	}
	if e.tracker == nil {
		budget := config.Default().Budget
		if e.cfg != nil {
			budget = e.cfg.Budget
		}
		e.tracker = profiler.NewBudgetTracker(profiler.WithBudgetConfig(budget))
		e.ownsTracker = true
	}

	profilerOpts := []profiler.ProfilerBuilderOption{profiler.WithClock(e.now)}
	if e.cfg != nil {
		profilerOpts = append(profilerOpts, profiler.WithProfilerConfig(e.cfg.Profiler))
	}
	e.profiler = profiler.NewProfiler(append(profilerOpts, e.profilerOpts...)...)

	if e.runner != nil {
		if e.graph != nil {
			g := e.graph
			e.runner.SetRenderCallback(func(ctx context.Context, _ *compute.FrameContext) error {
				return g.Tick(ctx)
			})
		}
		if e.chain != nil {
			e.runner.SetPostChain(e.chain)
		}
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.pendingResize.Store(uint64(uint32(width))<<32 | uint64(uint32(height)))
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Graph() render_graph.Graph {
	return e.graph
}

func (e *engine) Chain() adaptive.Chain {
	return e.chain
}

func (e *engine) Runner() compute.Runner {
	return e.runner
}

func (e *engine) Tracker() profiler.BudgetTracker {
	return e.tracker
}

func (e *engine) Run() {
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	if e.window != nil && e.window.IsRunning() {
		_ = e.window.Close()
	}
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running.Store(true)
	e.start = e.now()
	e.lastFrame = e.start
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration stamps the frame in milliseconds since Run and calls Frame.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-e.quitChannel
		cancel()
	}()

	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", fmt.Sprint(r))
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			frameStart := e.now()
			ts := float64(frameStart.Sub(e.start)) / float64(time.Millisecond)

			if err := e.Frame(ctx, ts); err != nil {
				common.Logger().Error("frame failed", "timestamp_ms", ts, "error", err)
				if e.errorCallback != nil {
					e.errorCallback(err)
				}
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - e.now().Sub(frameStart); remaining > 0 {
					select {
					case <-e.quitChannel:
						return
					case <-time.After(remaining):
					}
				}
			}
		}
	}
}

func (e *engine) Frame(ctx context.Context, timestampMs float64) error {
	now := e.now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	e.applyResize()

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	var frameErr error
	switch {
	case e.runner != nil:
		frameErr = e.runner.Frame(ctx, timestampMs)
	default:
		if e.graph != nil {
			frameErr = e.graph.Tick(ctx)
		}
		if frameErr == nil && e.chain != nil {
			e.chain.Evaluate(timestampMs)
		}
	}
	if e.ownsTracker {
		e.tracker.Record(timestampMs)
	}

	if e.renderer != nil {
		if err := e.renderer.BeginFrame(); err != nil {
			common.Logger().Debug("present skipped", "error", err)
		} else {
			e.renderer.EndFrame()
			e.renderer.Present()
		}
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(e.tracker.Stats())
	}
	return frameErr
}

// applyResize forwards a pending window resize to the renderer and graph on the render thread.
func (e *engine) applyResize() {
	packed := e.pendingResize.Swap(0)
	if packed == 0 {
		return
	}
	width, height := int(packed>>32), int(uint32(packed))
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	if e.graph != nil {
		e.graph.Refresh()
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetErrorCallback(callback func(err error)) {
	e.errorCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameLimit(fps)
}

// tickInterval converts a tick rate to a ticker interval. Values <= 0 mean 60Hz.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 || !common.IsFinite(fps) {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// frameLimit converts a frame cap to a minimum frame duration. Values <= 0 mean uncapped.
func frameLimit(fps float64) time.Duration {
	if fps <= 0 || !common.IsFinite(fps) {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
