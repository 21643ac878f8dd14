//go:build windows

package window

// NewBackend returns the window backend for this platform
func NewBackend() (Backend, error) {
	return NewWin32Backend(), nil
}
