package render_graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// Executor runs a pass's work for one frame.
type Executor interface {
	Execute(ctx context.Context, frame *Frame) error
}

// ExecuteFunc adapts a plain function to Executor.
type ExecuteFunc func(ctx context.Context, frame *Frame) error

// Execute calls f(ctx, frame).
func (f ExecuteFunc) Execute(ctx context.Context, frame *Frame) error {
	return f(ctx, frame)
}

// PassConfig describes a pass to register with AddPass.
type PassConfig struct {
	// ID uniquely names the pass.
	ID string
	// Before names a pass this one must run before.
	Before string
	// After names a pass this one must run after.
	After string
	// Disabled registers the pass switched off.
	Disabled bool
	// Executor performs the pass's work.
	Executor Executor
}

// PassHandle controls a registered pass.
type PassHandle interface {
	// ID returns the pass identifier.
	ID() string
	// IsEnabled reports whether the pass runs on Tick.
	IsEnabled() bool
	// Enable switches the pass on.
	Enable()
	// Disable switches the pass off without removing it.
	Disable()
	// Remove deregisters the pass. Calling it again is a no-op.
	Remove()
}

type pass struct {
	graph    *graph
	seq      uint64
	id       string
	before   string
	after    string
	enabled  bool
	removed  bool
	executor Executor
}

var _ PassHandle = &pass{}

func (p *pass) ID() string      { return p.id }
func (p *pass) IsEnabled() bool { return p.enabled }
func (p *pass) Enable()         { p.enabled = true }
func (p *pass) Disable()        { p.enabled = false }

func (p *pass) Remove() {
	if p.removed {
		return
	}
	p.removed = true
	p.graph.removePass(p)
}

// Frame is handed to every executing pass. Work scheduled with Go runs on the graph's
// worker pool and is joined before the next pass starts. A Frame is only valid until its
// pass settles; Go calls after that are dropped.
type Frame struct {
	// PassID is the pass being executed.
	PassID string
	// Index counts graph ticks starting at 0.
	Index uint64
	// Size is the render size for this tick.
	Size Size

	ctx     context.Context
	pool    worker.DynamicWorkerPool
	mu      sync.Mutex
	done    *sync.Cond // signalled when pending drops to 0; guarded by mu
	pending int
	err     error
	nextID  int
	settled bool
}

// Go schedules deferred work for the current pass. The first error or panic from any
// deferred function fails the pass. Deferred work may itself call Go. Calls made after
// the pass settled are logged and dropped.
//
// Parameters:
//   - fn: the work to run, receiving the tick's context
func (f *Frame) Go(fn func(ctx context.Context) error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		common.Logger().Warn("render_graph: deferred work dropped, pass already settled", "pass", f.PassID, "frame", f.Index)
		return
	}
	f.pending++
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	f.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer f.finish()
			err := runRecovered(func() error { return fn(f.ctx) })
			if err != nil {
				f.fail(err)
			}
			return nil, err
		},
	})
}

func (f *Frame) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending--
	if f.pending == 0 && f.done != nil {
		f.done.Broadcast()
	}
}

func (f *Frame) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

// settle waits for deferred work, marks the frame settled and returns the first deferred failure.
func (f *Frame) settle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		f.done = sync.NewCond(&f.mu)
	}
	for f.pending > 0 {
		f.done.Wait()
	}
	f.settled = true
	return f.err
}

// ErrPassPanic wraps a panic raised by a pass executor or its deferred work.
var ErrPassPanic = errors.New("render_graph: pass panicked")

func runRecovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPassPanic, r)
		}
	}()
	return fn()
}
