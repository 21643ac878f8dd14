package capture

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidRegion is returned for regions without a positive width and height
var ErrInvalidRegion = errors.New("capture region must have a positive size")

// Region is an absolute rectangle in screen coordinates
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the region has a positive area
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Rect returns the region as an image rectangle in screen coordinates
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Capturer defines the interface for desktop capture backends
type Capturer interface {
	// CaptureRegion copies the desktop contents at r into a new buffer of
	// exactly r.Width x r.Height pixels
	CaptureRegion(r Region) (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string

	// Close releases the backend's resources
	Close() error
}
