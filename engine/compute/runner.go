package compute

import (
	"context"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// RenderCallback renders the frame after compute work was submitted.
type RenderCallback func(ctx context.Context, fc *FrameContext) error

// DispatchObserver receives the tasks that executed in a submitted batch.
type DispatchObserver func(executed []ComputeTask, fc *FrameContext)

// PostChain is evaluated with the frame timestamp once the frame has rendered.
type PostChain interface {
	Evaluate(timestampMs float64)
}

// Runner holds a registry of compute tasks and runs them as one submission per frame.
type Runner interface {
	// Register adds task, or replaces the registered task with the same id in place.
	Register(task ComputeTask)

	// Unregister removes the task with id. Unknown ids are ignored.
	Unregister(id string)

	// Clear removes every registered task.
	Clear()

	// Tasks returns the registered tasks in execution order.
	Tasks() []ComputeTask

	// Initialize runs tasks once as a single batch with frame index 0 and zero delta time.
	// Frame state is not advanced and neither the render callback nor the post chain runs.
	//
	// Parameters:
	//   - ctx: the context for the batch
	//   - tasks: the tasks to run
	//   - timestampMs: optional timestamp for the context, 0 when omitted
	//
	// Returns:
	//   - error: the first task or device error
	Initialize(ctx context.Context, tasks []ComputeTask, timestampMs ...float64) error

	// Frame runs transient then registered tasks as a single submission, then the render
	// callback, then the post chain. Any error aborts the rest of the frame.
	//
	// Parameters:
	//   - ctx: forwarded to the render callback
	//   - timestampMs: the frame timestamp in milliseconds
	//   - transient: tasks that run this frame only, ahead of the registry
	//
	// Returns:
	//   - error: the first task, device or render error
	Frame(ctx context.Context, timestampMs float64, transient ...ComputeTask) error

	// SetRenderCallback replaces the render callback. nil disables rendering.
	SetRenderCallback(fn RenderCallback)

	// SetPostChain replaces the post chain. nil disables post evaluation.
	SetPostChain(chain PostChain)

	// SetDispatchObserver replaces the dispatch observer. nil disables it.
	SetDispatchObserver(fn DispatchObserver)

	// FrameIndex returns the index the next Frame call will use.
	FrameIndex() uint64
}

type runner struct {
	device gpu.Device
	label  string
	tasks  []ComputeTask

	frameIndex    uint64
	lastTimestamp float64
	hasLast       bool

	render   RenderCallback
	post     PostChain
	observer DispatchObserver
}

var _ Runner = &runner{}

// NewRunner creates a Runner submitting to device.
//
// Parameters:
//   - device: the GPU device
//   - options: variadic RunnerBuilderOption functions
//
// Returns:
//   - Runner: the constructed runner
func NewRunner(device gpu.Device, options ...RunnerBuilderOption) Runner {
	if device == nil {
		panic("compute: NewRunner requires a non-nil Device")
	}
	r := &runner{
		device: device,
		label:  "compute-runner",
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *runner) Register(task ComputeTask) {
	if task == nil {
		return
	}
	for i, t := range r.tasks {
		if t.ID() == task.ID() {
			r.tasks[i] = task
			return
		}
	}
	r.tasks = append(r.tasks, task)
}

func (r *runner) Unregister(id string) {
	r.tasks = slices.DeleteFunc(r.tasks, func(t ComputeTask) bool { return t.ID() == id })
}

func (r *runner) Clear() {
	r.tasks = nil
}

func (r *runner) Tasks() []ComputeTask {
	return slices.Clone(r.tasks)
}

func (r *runner) Initialize(ctx context.Context, tasks []ComputeTask, timestampMs ...float64) error {
	fc := &FrameContext{}
	if len(timestampMs) > 0 {
		fc.Timestamp = timestampMs[0]
	}
	return r.runBatch(tasks, fc)
}

func (r *runner) Frame(ctx context.Context, timestampMs float64, transient ...ComputeTask) error {
	fc := &FrameContext{
		Timestamp:  timestampMs,
		FrameIndex: r.frameIndex,
	}
	if common.IsFinite(timestampMs) {
		if r.hasLast {
			fc.DeltaTime = max(0, timestampMs-r.lastTimestamp) / 1000
		}
		r.lastTimestamp = timestampMs
		r.hasLast = true
	}
	r.frameIndex++

	batch := make([]ComputeTask, 0, len(transient)+len(r.tasks))
	batch = append(batch, transient...)
	batch = append(batch, r.tasks...)
	if err := r.runBatch(batch, fc); err != nil {
		return err
	}

	if r.render != nil {
		if err := r.render(ctx, fc); err != nil {
			return fmt.Errorf("compute: render callback: %w", err)
		}
	}
	if r.post != nil {
		r.post.Evaluate(timestampMs)
	}
	return nil
}

// runBatch encodes every runnable task into one lazily created encoder and submits it once.
func (r *runner) runBatch(tasks []ComputeTask, fc *FrameContext) error {
	var encoder gpu.CommandEncoder
	var executed []ComputeTask

	for _, task := range tasks {
		if task == nil {
			continue
		}
		if c, ok := task.(ConditionalTask); ok && !c.When(fc) {
			continue
		}
		if encoder == nil {
			enc, err := r.device.CreateCommandEncoder(r.label)
			if err != nil {
				return fmt.Errorf("compute: failed to create command encoder: %w", err)
			}
			encoder = enc
		}
		if err := task.Encode(r.device, encoder, fc); err != nil {
			encoder.Release()
			return fmt.Errorf("compute: task %q: %w", task.ID(), err)
		}
		executed = append(executed, task)
	}

	if encoder == nil {
		return nil
	}

	cb, err := encoder.Finish()
	if err != nil {
		encoder.Release()
		return fmt.Errorf("compute: failed to finish command encoder: %w", err)
	}
	r.device.Queue().Submit(cb)
	common.Logger().Debug("compute: submitted frame batch", "frame", fc.FrameIndex, "tasks", len(executed))

	for _, task := range executed {
		if s, ok := task.(SubmitAwareTask); ok {
			s.AfterSubmit(fc)
		}
	}
	if r.observer != nil {
		r.observer(executed, fc)
	}
	return nil
}

func (r *runner) SetRenderCallback(fn RenderCallback) {
	r.render = fn
}

func (r *runner) SetPostChain(chain PostChain) {
	r.post = chain
}

func (r *runner) SetDispatchObserver(fn DispatchObserver) {
	r.observer = fn
}

func (r *runner) FrameIndex() uint64 {
	return r.frameIndex
}
