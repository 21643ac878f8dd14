//go:build windows

package capture

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetShellWindow = user32.NewProc("GetShellWindow")
)

func getShellWindow() win.HWND {
	r, _, _ := procGetShellWindow.Call()
	return win.HWND(r)
}

// GDICapturer copies from the desktop device context with BitBlt
type GDICapturer struct {
	mu sync.Mutex
}

// NewGDICapturer creates a new GDI capturer
func NewGDICapturer() *GDICapturer {
	return &GDICapturer{}
}

// Name returns the capturer name
func (c *GDICapturer) Name() string {
	return "GDI"
}

// Close is a no-op; device contexts are acquired per capture
func (c *GDICapturer) Close() error {
	return nil
}

// CaptureRegion copies r from the shell window's device context. Every device
// context and GDI object acquired here is released before returning.
func (c *GDICapturer) CaptureRegion(r Region) (*image.RGBA, error) {
	if !r.Valid() {
		return nil, ErrInvalidRegion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	width, height := int32(r.Width), int32(r.Height)

	shell := getShellWindow()
	screenDC := win.GetDC(shell)
	if screenDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer win.ReleaseDC(shell, screenDC)

	memDC := win.CreateCompatibleDC(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer win.DeleteDC(memDC)

	bitmap := win.CreateCompatibleBitmap(screenDC, width, height)
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(bitmap))

	previous := win.SelectObject(memDC, win.HGDIOBJ(bitmap))
	if previous == 0 {
		return nil, fmt.Errorf("SelectObject failed")
	}
	ok := win.BitBlt(memDC, 0, 0, width, height, screenDC, int32(r.X), int32(r.Y), win.SRCCOPY)
	// The bitmap must be deselected before GetDIBits reads it
	win.SelectObject(memDC, previous)
	if !ok {
		return nil, fmt.Errorf("BitBlt failed")
	}

	var bi win.BITMAPINFO
	bi.BmiHeader.BiSize = uint32(unsafe.Sizeof(bi.BmiHeader))
	bi.BmiHeader.BiWidth = width
	bi.BmiHeader.BiHeight = -height // top-down rows
	bi.BmiHeader.BiPlanes = 1
	bi.BmiHeader.BiBitCount = 32
	bi.BmiHeader.BiCompression = win.BI_RGB

	raw := make([]byte, r.Width*r.Height*4)
	if win.GetDIBits(screenDC, bitmap, 0, uint32(height), &raw[0], &bi, win.DIB_RGB_COLORS) == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	bgraToRGBA(img.Pix, raw)
	return img, nil
}
