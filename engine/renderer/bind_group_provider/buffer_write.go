package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Fits reports whether the write is a valid queue write into a buffer of bufferSize bytes:
// offset and length are multiples of 4 and the data ends inside the buffer.
//
// Parameters:
//   - bufferSize: the target buffer size in bytes
//
// Returns:
//   - bool: true if the write can be enqueued
func (w BufferWrite) Fits(bufferSize uint64) bool {
	n := uint64(len(w.Data))
	if w.Offset%4 != 0 || n%4 != 0 {
		return false
	}
	return w.Offset <= bufferSize && n <= bufferSize-w.Offset
}
