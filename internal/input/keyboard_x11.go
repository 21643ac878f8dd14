//go:build !windows

package input

import (
	"encoding/binary"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

// evdev keycodes are the PC scan codes offset by 8
const keycodeOffset = 8

// X11Keyboard injects key events through the XTEST extension and switches
// focus with _NET_ACTIVE_WINDOW requests.
type X11Keyboard struct {
	conn         *xgb.Conn
	root         xproto.Window
	activeWindow xproto.Atom
}

// NewKeyboard returns the keyboard for this platform
func NewKeyboard() (Keyboard, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("XTEST extension unavailable: %w", err)
	}

	name := "_NET_ACTIVE_WINDOW"
	atom, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to intern %s: %w", name, err)
	}

	return &X11Keyboard{
		conn:         conn,
		root:         xproto.Setup(conn).DefaultScreen(conn).Root,
		activeWindow: atom.Atom,
	}, nil
}

func (k *X11Keyboard) Foreground() window.Handle {
	reply, err := xproto.GetProperty(
		k.conn,
		false,
		k.root,
		k.activeWindow,
		xproto.AtomWindow,
		0,
		1,
	).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0
	}
	return window.Handle(binary.LittleEndian.Uint32(reply.Value))
}

// SetForeground asks the window manager to activate h
func (k *X11Keyboard) SetForeground(h window.Handle) bool {
	if h == 0 {
		return false
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(h),
		Type:   k.activeWindow,
		// source indication 2: request from a pager, honoured without focus stealing checks
		Data: xproto.ClientMessageDataUnionData32New([]uint32{2, xproto.TimeCurrentTime, 0, 0, 0}),
	}
	err := xproto.SendEventChecked(
		k.conn,
		false,
		k.root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
	return err == nil
}

func (k *X11Keyboard) SendKeys(codes []uint16, up bool) error {
	eventType := byte(xproto.KeyPress)
	if up {
		eventType = xproto.KeyRelease
	}

	for _, code := range codes {
		err := xtest.FakeInputChecked(
			k.conn,
			eventType,
			byte(code+keycodeOffset),
			xproto.TimeCurrentTime,
			k.root,
			0, 0,
			0,
		).Check()
		if err != nil {
			return fmt.Errorf("fake input for scan code %#x: %w", code, err)
		}
	}
	return nil
}

func (k *X11Keyboard) Close() error {
	k.conn.Close()
	return nil
}
