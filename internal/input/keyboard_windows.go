//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

// keyboardInput mirrors the Win32 INPUT union for keyboard events. The
// trailing padding brings it to sizeof(INPUT), which SendInput checks.
type keyboardInput struct {
	typ uint32
	ki  win.KEYBDINPUT
	_   [8]byte
}

// Win32Keyboard injects scan codes through SendInput
type Win32Keyboard struct{}

// NewKeyboard returns the keyboard for this platform
func NewKeyboard() (Keyboard, error) {
	return &Win32Keyboard{}, nil
}

func (k *Win32Keyboard) Foreground() window.Handle {
	return window.Handle(win.GetForegroundWindow())
}

func (k *Win32Keyboard) SetForeground(h window.Handle) bool {
	return win.SetForegroundWindow(win.HWND(h))
}

// SendKeys sends every code as a scan-code event in a single SendInput call
func (k *Win32Keyboard) SendKeys(codes []uint16, up bool) error {
	if len(codes) == 0 {
		return nil
	}

	flags := uint32(win.KEYEVENTF_SCANCODE)
	if up {
		flags |= win.KEYEVENTF_KEYUP
	}

	inputs := make([]keyboardInput, len(codes))
	for i, code := range codes {
		inputs[i].typ = win.INPUT_KEYBOARD
		inputs[i].ki.WScan = code
		inputs[i].ki.DwFlags = flags
	}

	sent := win.SendInput(uint32(len(inputs)), unsafe.Pointer(&inputs[0]), int32(unsafe.Sizeof(inputs[0])))
	if int(sent) != len(inputs) {
		return fmt.Errorf("SendInput injected %d of %d events", sent, len(inputs))
	}
	return nil
}

func (k *Win32Keyboard) Close() error {
	return nil
}
