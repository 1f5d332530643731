package compute

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// FrameContext describes the frame a task is encoding for.
type FrameContext struct {
	// Timestamp is the frame timestamp in milliseconds.
	Timestamp float64
	// DeltaTime is the time since the previous frame in seconds, 0 on the first frame.
	DeltaTime float64
	// FrameIndex counts frames starting at 0.
	FrameIndex uint64
}

// ComputeTask encodes GPU work into the runner's shared encoder.
type ComputeTask interface {
	// ID identifies the task in the runner's registry.
	ID() string
	// Encode records the task's work. The encoder is shared by every task in the batch.
	Encode(device gpu.Device, encoder gpu.CommandEncoder, fc *FrameContext) error
}

// ConditionalTask is a ComputeTask that can skip a frame.
type ConditionalTask interface {
	When(fc *FrameContext) bool
}

// SubmitAwareTask is a ComputeTask notified after its batch was submitted.
type SubmitAwareTask interface {
	AfterSubmit(fc *FrameContext)
}

// Task is a ComputeTask assembled from functions. Nil functions are skipped; a nil
// WhenFunc always runs.
type Task struct {
	Name            string
	EncodeFunc      func(device gpu.Device, encoder gpu.CommandEncoder, fc *FrameContext) error
	WhenFunc        func(fc *FrameContext) bool
	AfterSubmitFunc func(fc *FrameContext)
}

var (
	_ ComputeTask     = &Task{}
	_ ConditionalTask = &Task{}
	_ SubmitAwareTask = &Task{}
)

func (t *Task) ID() string { return t.Name }

func (t *Task) Encode(device gpu.Device, encoder gpu.CommandEncoder, fc *FrameContext) error {
	if t.EncodeFunc == nil {
		return nil
	}
	return t.EncodeFunc(device, encoder, fc)
}

func (t *Task) When(fc *FrameContext) bool {
	return t.WhenFunc == nil || t.WhenFunc(fc)
}

func (t *Task) AfterSubmit(fc *FrameContext) {
	if t.AfterSubmitFunc != nil {
		t.AfterSubmitFunc(fc)
	}
}

// DispatchTask runs a fixed list of dispatch steps as a ComputeTask. Prepare runs before
// encoding each frame, typically to upload uniforms or pick steps.
type DispatchTask struct {
	Name      string
	Steps     []DispatchStep
	Condition func(fc *FrameContext) bool
	Prepare   func(device gpu.Device, fc *FrameContext) error
}

var (
	_ ComputeTask     = &DispatchTask{}
	_ ConditionalTask = &DispatchTask{}
)

func (t *DispatchTask) ID() string { return t.Name }

func (t *DispatchTask) When(fc *FrameContext) bool {
	return t.Condition == nil || t.Condition(fc)
}

func (t *DispatchTask) Encode(device gpu.Device, encoder gpu.CommandEncoder, fc *FrameContext) error {
	if t.Prepare != nil {
		if err := t.Prepare(device, fc); err != nil {
			return err
		}
	}
	active, err := activeSteps(t.Steps)
	if err != nil {
		return err
	}
	encodeSteps(encoder, active)
	return nil
}
