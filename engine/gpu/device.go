// Package gpu defines the narrow device surface the frame scheduler encodes work against.
// The WebGPU renderer implements it for real hardware and gputest implements it for tests.
package gpu

// Device creates command encoders and resources and exposes the submission queue.
type Device interface {
	// CreateCommandEncoder opens a new command encoder.
	//
	// Parameters:
	//   - label: a debug label for the encoder
	//
	// Returns:
	//   - CommandEncoder: the opened encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer size, usage and label
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if allocation failed
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a 2D GPU texture.
	//
	// Parameters:
	//   - desc: the texture extent, format, usage and label
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: an error if allocation failed
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// Queue returns the device's submission queue.
	Queue() Queue
}

// CommandEncoder records compute passes into a command buffer.
type CommandEncoder interface {
	// BeginComputePass opens a compute pass on the encoder.
	BeginComputePass(label string) ComputePass

	// Finish closes the encoder, frees its native handle and returns the recorded command
	// buffer. The encoder must not be used afterwards. On error the encoder is still held
	// and must be released.
	Finish() (CommandBuffer, error)

	// Release frees an encoder that will not be finished. Release after a successful
	// Finish is a no-op.
	Release()
}

// ComputePass records pipeline binds and dispatches. Pipelines and bind groups are opaque
// handles owned by the backend that created them.
type ComputePass interface {
	SetPipeline(pipeline any)
	SetBindGroup(index uint32, group any)
	DispatchWorkgroups(x, y, z uint32)
	End()
}

// CommandBuffer is a finished, submittable batch of GPU commands.
type CommandBuffer interface {
	Release()
}

// Queue submits command buffers and uploads buffer data.
type Queue interface {
	Submit(buffers ...CommandBuffer)
	WriteBuffer(buffer Buffer, offset uint64, data []byte)
}

// Buffer is an allocated GPU buffer.
type Buffer interface {
	Size() uint64
	Release()
}

// Texture is an allocated GPU texture.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat
	Release()
}
