package compute

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

var (
	// ErrNilPipeline is returned when an active step has no pipeline.
	ErrNilPipeline = errors.New("compute: dispatch step has a nil pipeline")
	// ErrNilBindGroup is returned when an active step binds a nil group.
	ErrNilBindGroup = errors.New("compute: dispatch step has a nil bind group")
	// ErrWorkgroupCountZero is returned when an active step dispatches zero workgroups on any axis.
	ErrWorkgroupCountZero = errors.New("compute: dispatch step has a zero workgroup count")
)

// BindGroupBinding places a bind group at an explicit group index.
type BindGroupBinding struct {
	Index uint32
	Group any
}

// DispatchStep is one compute pass: a pipeline, its bind groups and a workgroup count.
type DispatchStep struct {
	// Label names the compute pass for debugging.
	Label string
	// Pipeline is the backend compute pipeline handle.
	Pipeline any
	// BindGroups are set in slice order at their explicit indices.
	BindGroups []BindGroupBinding
	// Workgroups is the dispatch size on x, y and z.
	Workgroups [3]uint32
	// When skips the step when it returns false. A nil When always runs.
	When func() bool
	// BeforeDispatch runs after the pass opens and before the pipeline is set.
	BeforeDispatch func(pass gpu.ComputePass)
	// AfterDispatch runs after the dispatch and before the pass ends.
	AfterDispatch func(pass gpu.ComputePass)
}

func (s DispatchStep) active() bool {
	return s.When == nil || s.When()
}

func (s DispatchStep) validate() error {
	if s.Pipeline == nil {
		return fmt.Errorf("%w: %q", ErrNilPipeline, s.Label)
	}
	for _, b := range s.BindGroups {
		if b.Group == nil {
			return fmt.Errorf("%w: %q at index %d", ErrNilBindGroup, s.Label, b.Index)
		}
	}
	if s.Workgroups[0] == 0 || s.Workgroups[1] == 0 || s.Workgroups[2] == 0 {
		return fmt.Errorf("%w: %q dispatches %v", ErrWorkgroupCountZero, s.Label, s.Workgroups)
	}
	return nil
}

// activeSteps evaluates every When once and validates the steps that will run.
func activeSteps(steps []DispatchStep) ([]DispatchStep, error) {
	active := make([]DispatchStep, 0, len(steps))
	for _, s := range steps {
		if !s.active() {
			continue
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		active = append(active, s)
	}
	return active, nil
}

// encodeSteps records one compute pass per step into encoder. Steps must already be filtered and validated.
func encodeSteps(encoder gpu.CommandEncoder, steps []DispatchStep) {
	for _, s := range steps {
		pass := encoder.BeginComputePass(s.Label)
		if s.BeforeDispatch != nil {
			s.BeforeDispatch(pass)
		}
		pass.SetPipeline(s.Pipeline)
		for _, b := range s.BindGroups {
			pass.SetBindGroup(b.Index, b.Group)
		}
		pass.DispatchWorkgroups(s.Workgroups[0], s.Workgroups[1], s.Workgroups[2])
		if s.AfterDispatch != nil {
			s.AfterDispatch(pass)
		}
		pass.End()
	}
}

// Workgroups returns the number of workgroups needed to cover invocations on each axis.
// A zero workgroup size on an axis is treated as 1.
//
// Parameters:
//   - invocations: the total threads required on x, y and z
//   - workgroupSize: the shader's @workgroup_size
//
// Returns:
//   - [3]uint32: the ceiling of invocations / workgroupSize per axis
func Workgroups(invocations, workgroupSize [3]uint32) [3]uint32 {
	var out [3]uint32
	for i := range out {
		size := max(1, workgroupSize[i])
		out[i] = (invocations[i] + size - 1) / size
	}
	return out
}
