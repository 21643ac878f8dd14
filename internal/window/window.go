// Package window finds the target process and tracks where its main window's
// client area sits on screen.
package window

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrProcessNotFound is returned when no process matches any candidate name
	ErrProcessNotFound = errors.New("target process not found")
	// ErrWindowGone is returned when a window handle no longer refers to a live window
	ErrWindowGone = errors.New("window is gone")
)

// Handle is a platform window handle (HWND on Windows, XID on X11)
type Handle uintptr

// Point is a screen coordinate
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Unknown is the origin recorded before any window has been seen and after the
// tracked process is lost. No real window reports it.
var Unknown = Point{X: math.MinInt32, Y: math.MinInt32}

// Rect is a rectangle in window-local coordinates
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Geometry is the placement of a window's client area
type Geometry struct {
	Client Rect  `json:"client"`
	Origin Point `json:"origin"`
}

// UnknownGeometry returns the geometry of a window that has not been seen
func UnknownGeometry() Geometry {
	return Geometry{Origin: Unknown}
}

// Valid reports whether the origin is known and the client area is non-empty
func (g Geometry) Valid() bool {
	return g.Origin != Unknown && g.Client.Width() > 0 && g.Client.Height() > 0
}

func (g Geometry) String() string {
	if g.Origin == Unknown {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d@(%d,%d)", g.Client.Width(), g.Client.Height(), g.Origin.X, g.Origin.Y)
}

// Process is a running instance of the target application
type Process struct {
	PID    int32  `json:"pid"`
	Name   string `json:"name"`
	Exe    string `json:"exe"`
	Window Handle `json:"window"`
}

// Target is a snapshot of the tracked process and its last known geometry.
// Process is nil while nothing is tracked.
type Target struct {
	Process  *Process `json:"process,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// Backend queries the windowing system
type Backend interface {
	// MainWindow returns the top-level window owned by pid
	MainWindow(pid int32) (Handle, error)

	// Geometry returns the client rect of h and the screen position of its
	// top-left corner. ErrWindowGone means h is no longer valid.
	Geometry(h Handle) (Geometry, error)

	// Name returns the backend name (e.g., "win32", "x11")
	Name() string

	Close() error
}
