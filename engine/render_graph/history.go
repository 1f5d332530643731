package render_graph

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// HistoryFactory builds a history resource for the given render size.
type HistoryFactory func(size Size) (any, error)

// Releaser is implemented by history resources that own GPU memory.
// The graph calls Release before replacing or disposing the resource.
type Releaser interface {
	Release()
}

// HistoryHandle gives access to a graph-owned resource that persists across frames and is
// rebuilt whenever the render size changes or history is invalidated.
type HistoryHandle interface {
	// Key returns the cache key of the resource.
	Key() string

	// Get returns the resource for the current render size, building it with the latest
	// factory when it is missing, stale or invalidated.
	//
	// Returns:
	//   - any: the resource
	//   - error: the factory error, or ErrHistoryDisposed after Dispose
	Get() (any, error)

	// UpdateFactory replaces the factory used by the next rebuild. The current resource is kept.
	UpdateFactory(factory HistoryFactory)

	// Dispose releases the resource and forgets the key. Calling it again is a no-op.
	Dispose()
}

// ErrHistoryDisposed is returned by HistoryHandle.Get after the handle was disposed.
var ErrHistoryDisposed = errors.New("render_graph: history resource disposed")

type history struct {
	graph      *graph
	key        string
	factory    HistoryFactory
	resource   any
	built      bool
	size       Size
	generation uint64
	disposed   bool
}

var _ HistoryHandle = &history{}

func (h *history) Key() string { return h.key }

func (h *history) Get() (any, error) {
	if h.disposed {
		return nil, ErrHistoryDisposed
	}
	size := h.graph.size
	if h.built && h.size == size && h.generation == h.graph.historyGeneration {
		return h.resource, nil
	}

	h.release()
	res, err := h.factory(size)
	if err != nil {
		return nil, fmt.Errorf("render_graph: history %q: %w", h.key, err)
	}
	h.resource = res
	h.size = size
	h.generation = h.graph.historyGeneration
	h.built = true
	common.Logger().Debug("render_graph: history rebuilt", "key", h.key, "width", size.Width, "height", size.Height)
	return res, nil
}

func (h *history) UpdateFactory(factory HistoryFactory) {
	if factory != nil {
		h.factory = factory
	}
}

func (h *history) Dispose() {
	if h.disposed {
		return
	}
	h.disposed = true
	h.release()
	if cur, ok := h.graph.histories[h.key]; ok && cur == h {
		delete(h.graph.histories, h.key)
	}
}

func (h *history) release() {
	if h.built {
		if r, ok := h.resource.(Releaser); ok {
			r.Release()
		}
	}
	h.resource = nil
	h.built = false
}
