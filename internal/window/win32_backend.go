//go:build windows

package window

import (
	"fmt"
	"sync"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// enumState is the search in progress. EnumWindows runs the callback
// synchronously, so enumMu held around the call guards enumCurrent.
type enumState struct {
	pid   uint32
	found windows.HWND
}

// enumProc is created once; Windows limits the number of callbacks a
// process can allocate.
var (
	enumOnce    sync.Once
	enumProc    uintptr
	enumMu      sync.Mutex
	enumCurrent *enumState
)

func mainWindowCallback(hwnd windows.HWND, _ uintptr) uintptr {
	state := enumCurrent

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != state.pid {
		return 1
	}
	// The main window is a visible top-level window without an owner
	if !win.IsWindowVisible(win.HWND(hwnd)) || win.GetWindow(win.HWND(hwnd), win.GW_OWNER) != 0 {
		return 1
	}
	state.found = hwnd
	return 0
}

// Win32Backend queries windows through user32
type Win32Backend struct{}

// NewWin32Backend creates a new Win32 backend
func NewWin32Backend() *Win32Backend {
	enumOnce.Do(func() {
		enumProc = windows.NewCallback(mainWindowCallback)
	})
	return &Win32Backend{}
}

// Name returns the backend name
func (b *Win32Backend) Name() string {
	return "win32"
}

// Close is a no-op
func (b *Win32Backend) Close() error {
	return nil
}

// MainWindow returns the first visible, unowned top-level window of pid
func (b *Win32Backend) MainWindow(pid int32) (Handle, error) {
	state := &enumState{pid: uint32(pid)}

	enumMu.Lock()
	enumCurrent = state
	// EnumWindows reports an error when the callback stops early
	_ = windows.EnumWindows(enumProc, nil)
	enumCurrent = nil
	enumMu.Unlock()

	if state.found == 0 {
		return 0, fmt.Errorf("no window for pid %d: %w", pid, ErrWindowGone)
	}
	return Handle(state.found), nil
}

// Geometry returns the client rect of h and the screen position of its origin
func (b *Win32Backend) Geometry(h Handle) (Geometry, error) {
	hwnd := win.HWND(h)

	var rc win.RECT
	if !win.GetClientRect(hwnd, &rc) {
		return Geometry{}, fmt.Errorf("GetClientRect: %w", ErrWindowGone)
	}

	var pt win.POINT
	if !win.ClientToScreen(hwnd, &pt) {
		return Geometry{}, fmt.Errorf("ClientToScreen: %w", ErrWindowGone)
	}

	return Geometry{
		Client: Rect{
			Left:   int(rc.Left),
			Top:    int(rc.Top),
			Right:  int(rc.Right),
			Bottom: int(rc.Bottom),
		},
		Origin: Point{X: int(pt.X), Y: int(pt.Y)},
	}, nil
}
