package common

// Virtual key codes delivered to window key callbacks.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32 // Space (ASCII)
	Key1     = 49 // 1 key (ASCII)
	Key2     = 50 // 2 key (ASCII)
	Key3     = 51 // 3 key (ASCII)
	Key4     = 52 // 4 key (ASCII)
	KeyP     = 80 // P key (ASCII)
)

// Additional non-printable keys
const (
	KeyEscape = 256 // Escape (GLFW)
)

// QualityKeyScale maps the number-row keys to render quality scales.
// Returns false for any other key.
//
// Parameters:
//   - keyCode: the key code reported by the window
//
// Returns:
//   - float64: the quality scale bound to the key
//   - bool: whether the key is bound
func QualityKeyScale(keyCode uint32) (float64, bool) {
	switch keyCode {
	case Key1:
		return 1, true
	case Key2:
		return 0.75, true
	case Key3:
		return 0.5, true
	case Key4:
		return 0.25, true
	}
	return 0, false
}
