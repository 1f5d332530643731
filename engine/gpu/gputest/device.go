// Package gputest provides a recording gpu.Device for tests. Every call is appended to a
// shared event log so tests can assert the exact order of encoder, pass and queue operations.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// Event is a single recorded GPU call.
type Event struct {
	// Op names the call, e.g. "CreateCommandEncoder", "SetPipeline", "Submit".
	Op string
	// Label is the encoder or pass label where the call takes one.
	Label string
	// Args holds the call arguments in order.
	Args []any
}

// String formats the event as Op(label) for readable test failures.
func (e Event) String() string {
	if e.Label != "" {
		return fmt.Sprintf("%s(%s)", e.Op, e.Label)
	}
	return e.Op
}

// Device is a recording gpu.Device. The zero value is not usable; use NewDevice.
type Device struct {
	mu     sync.Mutex
	events []Event
	queue  *Queue
	// liveEncoders counts encoders neither finished nor released.
	liveEncoders int

	// FailEncoder makes CreateCommandEncoder return an error.
	FailEncoder bool
	// FailFinish makes CommandEncoder.Finish return an error.
	FailFinish bool
	// FailBuffer makes CreateBuffer return an error.
	FailBuffer bool
	// FailTexture makes CreateTexture return an error.
	FailTexture bool
}

var _ gpu.Device = &Device{}

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("gputest: injected failure")

// ErrEncoderConsumed is returned by Finish on an encoder that was already finished or released.
var ErrEncoderConsumed = errors.New("gputest: encoder already finished or released")

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	d := &Device{}
	d.queue = &Queue{device: d}
	return d
}

func (d *Device) record(op, label string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, Event{Op: op, Label: label, Args: args})
}

// Events returns a copy of every recorded call in order.
func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Ops returns the Op name of every recorded call in order.
func (d *Device) Ops() []string {
	events := d.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Op
	}
	return out
}

// Count returns how many times op was recorded.
func (d *Device) Count(op string) int {
	n := 0
	for _, e := range d.Events() {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Reset clears the event log.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

// CreateCommandEncoder records the call and returns a recording encoder.
func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	if d.FailEncoder {
		return nil, ErrInjected
	}
	d.record("CreateCommandEncoder", label)
	d.mu.Lock()
	d.liveEncoders++
	d.mu.Unlock()
	return &Encoder{device: d, label: label}, nil
}

// LiveEncoders returns how many encoders were created and are still held, i.e. neither
// finished successfully nor released.
func (d *Device) LiveEncoders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveEncoders
}

func (d *Device) freeEncoder() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveEncoders--
}

// CreateBuffer records the call and returns an in-memory buffer.
func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if d.FailBuffer {
		return nil, ErrInjected
	}
	d.record("CreateBuffer", desc.Label, desc.Size, desc.Usage)
	return &Buffer{device: d, Desc: desc, Data: make([]byte, desc.Size)}, nil
}

// CreateTexture records the call and returns a texture stub.
func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if d.FailTexture {
		return nil, ErrInjected
	}
	d.record("CreateTexture", desc.Label, desc.Width, desc.Height, desc.Format)
	return &Texture{device: d, Desc: desc}, nil
}

// Queue returns the recording queue.
func (d *Device) Queue() gpu.Queue {
	return d.queue
}

// Encoder is a recording gpu.CommandEncoder. A successful Finish frees it; Release frees an
// unfinished encoder once and is a no-op afterwards.
type Encoder struct {
	device   *Device
	label    string
	finished bool
	released bool
}

// BeginComputePass records the call and returns a recording pass.
func (e *Encoder) BeginComputePass(label string) gpu.ComputePass {
	e.device.record("BeginComputePass", label)
	return &Pass{device: e.device, label: label}
}

// Finish records the call and returns a command buffer tagged with the encoder label.
func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	if e.finished || e.released {
		return nil, ErrEncoderConsumed
	}
	if e.device.FailFinish {
		return nil, ErrInjected
	}
	e.finished = true
	e.device.freeEncoder()
	e.device.record("Finish", e.label)
	return &CommandBuffer{device: e.device, Label: e.label}, nil
}

// Release records the call for an encoder that was neither finished nor released.
func (e *Encoder) Release() {
	if e.finished || e.released {
		return
	}
	e.released = true
	e.device.freeEncoder()
	e.device.record("ReleaseEncoder", e.label)
}

// Pass is a recording gpu.ComputePass.
type Pass struct {
	device *Device
	label  string
}

func (p *Pass) SetPipeline(pipeline any) {
	p.device.record("SetPipeline", p.label, pipeline)
}

func (p *Pass) SetBindGroup(index uint32, group any) {
	p.device.record("SetBindGroup", p.label, index, group)
}

func (p *Pass) DispatchWorkgroups(x, y, z uint32) {
	p.device.record("DispatchWorkgroups", p.label, x, y, z)
}

func (p *Pass) End() {
	p.device.record("End", p.label)
}

// CommandBuffer is a recording gpu.CommandBuffer.
type CommandBuffer struct {
	device *Device
	Label  string
}

func (c *CommandBuffer) Release() {
	c.device.record("ReleaseCommandBuffer", c.Label)
}

// Queue is a recording gpu.Queue.
type Queue struct {
	device *Device
}

// Submit records the call with the submitted buffers as arguments.
func (q *Queue) Submit(buffers ...gpu.CommandBuffer) {
	args := make([]any, len(buffers))
	for i, b := range buffers {
		args[i] = b
	}
	q.device.record("Submit", "", args...)
}

// WriteBuffer records the call and copies data into the in-memory buffer when it fits.
func (q *Queue) WriteBuffer(buffer gpu.Buffer, offset uint64, data []byte) {
	q.device.record("WriteBuffer", "", buffer, offset, len(data))
	if b, ok := buffer.(*Buffer); ok && offset+uint64(len(data)) <= uint64(len(b.Data)) {
		copy(b.Data[offset:], data)
	}
}

// Buffer is an in-memory gpu.Buffer.
type Buffer struct {
	device   *Device
	Desc     gpu.BufferDescriptor
	Data     []byte
	Released bool
}

func (b *Buffer) Size() uint64 { return b.Desc.Size }

func (b *Buffer) Release() {
	b.Released = true
	b.device.record("ReleaseBuffer", b.Desc.Label)
}

// Texture is a stub gpu.Texture.
type Texture struct {
	device   *Device
	Desc     gpu.TextureDescriptor
	Released bool
}

func (t *Texture) Width() uint32             { return t.Desc.Width }
func (t *Texture) Height() uint32            { return t.Desc.Height }
func (t *Texture) Format() gpu.TextureFormat { return t.Desc.Format }

func (t *Texture) Release() {
	t.Released = true
	t.device.record("ReleaseTexture", t.Desc.Label)
}
