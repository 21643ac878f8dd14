//go:build windows

package capture

// New returns the capture backend for this platform
func New() (Capturer, error) {
	return NewGDICapturer(), nil
}
