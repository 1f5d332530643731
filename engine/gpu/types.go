package gpu

// BufferUsage is a bit set describing how a buffer may be bound.
type BufferUsage uint32

const (
	BufferUsageMapRead  BufferUsage = 1 << 0
	BufferUsageMapWrite BufferUsage = 1 << 1
	BufferUsageCopySrc  BufferUsage = 1 << 2
	BufferUsageCopyDst  BufferUsage = 1 << 3
	BufferUsageIndex    BufferUsage = 1 << 4
	BufferUsageVertex   BufferUsage = 1 << 5
	BufferUsageUniform  BufferUsage = 1 << 6
	BufferUsageStorage  BufferUsage = 1 << 7
	BufferUsageIndirect BufferUsage = 1 << 8
)

// TextureUsage is a bit set describing how a texture may be bound.
type TextureUsage uint32

const (
	TextureUsageCopySrc          TextureUsage = 1 << 0
	TextureUsageCopyDst          TextureUsage = 1 << 1
	TextureUsageTextureBinding   TextureUsage = 1 << 2
	TextureUsageStorageBinding   TextureUsage = 1 << 3
	TextureUsageRenderAttachment TextureUsage = 1 << 4
)

// TextureFormat identifies the texel layout of a texture.
type TextureFormat int

const (
	TextureFormatRGBA8Unorm TextureFormat = iota
	TextureFormatBGRA8Unorm
	TextureFormatRGBA16Float
	TextureFormatRGBA32Float
	TextureFormatR32Float
	TextureFormatDepth32Float
)

// String returns the WGSL spelling of the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	case TextureFormatRGBA32Float:
		return "rgba32float"
	case TextureFormatR32Float:
		return "r32float"
	case TextureFormatDepth32Float:
		return "depth32float"
	default:
		return "unknown"
	}
}

// BufferDescriptor describes a buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a 2D texture allocation.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
}
