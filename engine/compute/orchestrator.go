// Package compute batches GPU compute dispatches into command submissions and runs a
// persistent set of compute tasks once per frame.
package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// Orchestrator encodes ordered dispatch steps into command buffers.
type Orchestrator interface {
	// Encode opens an encoder, records every active step and returns the finished command
	// buffer without submitting it.
	//
	// Parameters:
	//   - steps: the steps in dispatch order
	//
	// Returns:
	//   - gpu.CommandBuffer: the finished buffer
	//   - error: a validation or device error
	Encode(steps []DispatchStep) (gpu.CommandBuffer, error)

	// EncodeInto records every active step into an encoder owned by the caller.
	//
	// Parameters:
	//   - encoder: the open encoder
	//   - steps: the steps in dispatch order
	//
	// Returns:
	//   - int: the number of steps encoded
	//   - error: a validation error, in which case nothing was recorded
	EncodeInto(encoder gpu.CommandEncoder, steps []DispatchStep) (int, error)

	// Submit encodes the active steps and enqueues the result. When no step is active no
	// encoder is created and nothing is submitted.
	//
	// Parameters:
	//   - steps: the steps in dispatch order
	//
	// Returns:
	//   - error: a validation or device error
	Submit(steps []DispatchStep) error
}

type orchestrator struct {
	device gpu.Device
	label  string
}

var _ Orchestrator = &orchestrator{}

// NewOrchestrator creates an Orchestrator encoding against device.
//
// Parameters:
//   - device: the GPU device
//
// Returns:
//   - Orchestrator: the constructed orchestrator
func NewOrchestrator(device gpu.Device) Orchestrator {
	if device == nil {
		panic("compute: NewOrchestrator requires a non-nil Device")
	}
	return &orchestrator{device: device, label: "compute-orchestrator"}
}

func (o *orchestrator) Encode(steps []DispatchStep) (gpu.CommandBuffer, error) {
	active, err := activeSteps(steps)
	if err != nil {
		return nil, err
	}
	return o.encode(active)
}

func (o *orchestrator) encode(active []DispatchStep) (gpu.CommandBuffer, error) {
	encoder, err := o.device.CreateCommandEncoder(o.label)
	if err != nil {
		return nil, fmt.Errorf("compute: failed to create command encoder: %w", err)
	}
	encodeSteps(encoder, active)
	cb, err := encoder.Finish()
	if err != nil {
		encoder.Release()
		return nil, fmt.Errorf("compute: failed to finish command encoder: %w", err)
	}
	return cb, nil
}

func (o *orchestrator) EncodeInto(encoder gpu.CommandEncoder, steps []DispatchStep) (int, error) {
	active, err := activeSteps(steps)
	if err != nil {
		return 0, err
	}
	encodeSteps(encoder, active)
	return len(active), nil
}

func (o *orchestrator) Submit(steps []DispatchStep) error {
	active, err := activeSteps(steps)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	cb, err := o.encode(active)
	if err != nil {
		return err
	}
	o.device.Queue().Submit(cb)
	common.Logger().Debug("compute: submitted dispatch batch", "steps", len(active))
	return nil
}
