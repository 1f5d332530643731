// Package render_graph orders render passes by their dependencies, scales the render
// resolution and owns the per-size history resources passes read across frames.
package render_graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frame/common"
)

const (
	defaultMinQualityScale = 0.1
	defaultDeferredWorkers = 4
	deferredQueueSize      = 256
)

var (
	// ErrEmptyPassID is returned by AddPass for a config without an ID.
	ErrEmptyPassID = errors.New("render_graph: pass id must not be empty")
	// ErrDuplicatePass is returned by AddPass when the ID is already registered.
	ErrDuplicatePass = errors.New("render_graph: duplicate pass id")
	// ErrPassCycle is returned by AddPass when the new constraints form a cycle.
	ErrPassCycle = errors.New("render_graph: pass constraints form a cycle")
	// ErrNilExecutor is returned by AddPass for a config without an Executor.
	ErrNilExecutor = errors.New("render_graph: pass executor must not be nil")
	// ErrGraphDisposed is returned by Tick after Dispose.
	ErrGraphDisposed = errors.New("render_graph: graph disposed")
)

// Graph runs registered passes in dependency order once per Tick.
type Graph interface {
	// AddPass registers a pass.
	//
	// Parameters:
	//   - cfg: the pass id, ordering constraints, initial state and executor
	//
	// Returns:
	//   - PassHandle: the handle used to toggle or remove the pass
	//   - error: ErrEmptyPassID, ErrNilExecutor, ErrDuplicatePass or ErrPassCycle
	AddPass(cfg PassConfig) (PassHandle, error)

	// Pass looks up a registered pass by id.
	//
	// Returns:
	//   - PassHandle: the handle, or nil
	//   - bool: false if no pass has the id
	Pass(id string) (PassHandle, bool)

	// Order returns the ids of every registered pass in execution order, including disabled ones.
	Order() []string

	// Tick refreshes the render size from the canvas and runs every enabled pass in order.
	// Each pass, including its deferred work, settles before the next one starts. The first
	// failure stops the tick and is returned wrapped with the pass id.
	//
	// Parameters:
	//   - ctx: forwarded to every executor and deferred function
	//
	// Returns:
	//   - error: the first pass failure, or nil
	Tick(ctx context.Context) error

	// SetQualityScale sets the render scale, clamped to [minimum, 1], and recomputes the size.
	// Non-finite values are ignored. History resources rebuild lazily on their next Get.
	SetQualityScale(scale float64)

	// QualityScale returns the current render scale.
	QualityScale() float64

	// Size returns the current render size.
	Size() Size

	// Refresh recomputes the render size from the canvas immediately.
	Refresh()

	// HistoryHandle returns the handle for key, creating it on first use. Calling it again for
	// a live key replaces that handle's factory.
	//
	// Parameters:
	//   - key: the cache key
	//   - factory: builds the resource for a render size
	//
	// Returns:
	//   - HistoryHandle: the handle for key
	HistoryHandle(key string, factory HistoryFactory) HistoryHandle

	// DisposeHistory disposes the resource under key. Unknown keys are ignored.
	DisposeHistory(key string)

	// InvalidateHistory marks every history resource stale so it rebuilds on next access.
	InvalidateHistory()

	// PassTimings returns the wall time each pass took during the last Tick.
	PassTimings() map[string]time.Duration

	// Dispose releases every history resource and stops the deferred worker pool.
	Dispose()
}

type graph struct {
	canvas Canvas

	passes []*pass
	byID   map[string]*pass
	order  []*pass
	// orderValid is cleared whenever the pass set changes.
	orderValid bool
	nextSeq    uint64

	qualityScale    float64
	minQualityScale float64
	size            Size
	hasSize         bool
	onResize        func(Size)

	histories         map[string]*history
	historyGeneration uint64

	deferredWorkers int
	pool            worker.DynamicWorkerPool
	frameIndex      uint64
	timings         map[string]time.Duration
	disposed        bool
}

var _ Graph = &graph{}

// NewGraph creates a Graph rendering into canvas at full quality scale unless overridden by options.
//
// Parameters:
//   - canvas: the drawable area to size render targets from
//   - options: variadic GraphBuilderOption functions
//
// Returns:
//   - Graph: the constructed graph
func NewGraph(canvas Canvas, options ...GraphBuilderOption) Graph {
	if canvas == nil {
		panic("render_graph: NewGraph requires a non-nil Canvas")
	}

	g := &graph{
		canvas:          canvas,
		byID:            make(map[string]*pass),
		qualityScale:    1,
		minQualityScale: defaultMinQualityScale,
		histories:       make(map[string]*history),
		deferredWorkers: defaultDeferredWorkers,
		timings:         make(map[string]time.Duration),
	}

	for _, opt := range options {
		opt(g)
	}

	if !common.IsFinite(g.minQualityScale) || g.minQualityScale <= 0 {
		g.minQualityScale = defaultMinQualityScale
	}
	g.minQualityScale = min(g.minQualityScale, 1)
	if !common.IsFinite(g.qualityScale) {
		g.qualityScale = 1
	}
	g.qualityScale = common.Clamp(g.qualityScale, g.minQualityScale, 1)
	g.deferredWorkers = max(1, g.deferredWorkers)
	g.pool = worker.NewDynamicWorkerPool(g.deferredWorkers, deferredQueueSize, time.Second)
	g.Refresh()
	return g
}

func (g *graph) AddPass(cfg PassConfig) (PassHandle, error) {
	if cfg.ID == "" {
		return nil, ErrEmptyPassID
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilExecutor, cfg.ID)
	}
	if _, ok := g.byID[cfg.ID]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePass, cfg.ID)
	}

	p := &pass{
		graph:    g,
		seq:      g.nextSeq,
		id:       cfg.ID,
		before:   cfg.Before,
		after:    cfg.After,
		enabled:  !cfg.Disabled,
		executor: cfg.Executor,
	}

	candidate := append(slices.Clone(g.passes), p)
	order := sortPasses(candidate)
	if len(order) != len(candidate) {
		return nil, fmt.Errorf("%w: adding %q", ErrPassCycle, cfg.ID)
	}

	warnDangling(p, g.byID)
	g.nextSeq++
	g.passes = candidate
	g.byID[p.id] = p
	g.order = order
	g.orderValid = true
	return p, nil
}

func (g *graph) removePass(p *pass) {
	if cur, ok := g.byID[p.id]; !ok || cur != p {
		return
	}
	delete(g.byID, p.id)
	g.passes = slices.DeleteFunc(g.passes, func(q *pass) bool { return q == p })
	g.orderValid = false
}

func (g *graph) Pass(id string) (PassHandle, bool) {
	p, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return p, true
}

func (g *graph) executionOrder() []*pass {
	if !g.orderValid {
		g.order = sortPasses(g.passes)
		g.orderValid = true
	}
	return g.order
}

func (g *graph) Order() []string {
	order := g.executionOrder()
	ids := make([]string, len(order))
	for i, p := range order {
		ids[i] = p.id
	}
	return ids
}

func (g *graph) Tick(ctx context.Context) error {
	if g.disposed {
		return ErrGraphDisposed
	}
	g.Refresh()

	index := g.frameIndex
	g.frameIndex++
	clear(g.timings)

	// Snapshot so passes may add or remove passes mid-tick without disturbing this frame.
	order := slices.Clone(g.executionOrder())
	for _, p := range order {
		if p.removed || !p.enabled {
			continue
		}

		start := time.Now()
		frame := &Frame{
			PassID: p.id,
			Index:  index,
			Size:   g.size,
			ctx:    ctx,
			pool:   g.pool,
		}
		execErr := runRecovered(func() error { return p.executor.Execute(ctx, frame) })
		deferredErr := frame.settle()
		g.timings[p.id] = time.Since(start)

		if err := errors.Join(execErr, deferredErr); err != nil {
			return fmt.Errorf("render_graph: pass %q: %w", p.id, err)
		}
	}
	return nil
}

func (g *graph) SetQualityScale(scale float64) {
	if !common.IsFinite(scale) {
		return
	}
	g.qualityScale = common.Clamp(scale, g.minQualityScale, 1)
	g.Refresh()
}

func (g *graph) QualityScale() float64 {
	return g.qualityScale
}

func (g *graph) Size() Size {
	return g.size
}

func (g *graph) Refresh() {
	w, h := g.canvas.ClientSize()
	size := ComputeSize(w, h, g.canvas.PixelRatio(), g.qualityScale)
	if g.hasSize && size == g.size {
		return
	}
	g.size = size
	g.hasSize = true
	common.Logger().Debug("render_graph: size changed", "width", size.Width, "height", size.Height, "scale", size.Scale)
	if g.onResize != nil {
		g.onResize(size)
	}
}

func (g *graph) HistoryHandle(key string, factory HistoryFactory) HistoryHandle {
	if factory == nil {
		panic("render_graph: HistoryHandle requires a non-nil factory")
	}
	if h, ok := g.histories[key]; ok {
		h.factory = factory
		return h
	}
	h := &history{
		graph:   g,
		key:     key,
		factory: factory,
	}
	g.histories[key] = h
	return h
}

func (g *graph) DisposeHistory(key string) {
	if h, ok := g.histories[key]; ok {
		h.Dispose()
	}
}

func (g *graph) InvalidateHistory() {
	g.historyGeneration++
}

func (g *graph) PassTimings() map[string]time.Duration {
	return maps.Clone(g.timings)
}

func (g *graph) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	for _, key := range slices.Sorted(maps.Keys(g.histories)) {
		g.histories[key].Dispose()
	}
	g.pool.Stop()
}
