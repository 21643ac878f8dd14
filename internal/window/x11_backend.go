//go:build !windows

package window

import (
	"encoding/binary"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
)

// X11Backend locates windows through EWMH properties on the root window
type X11Backend struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Backend{
		conn:  conn,
		root:  screen.Root,
		atoms: make(map[string]xproto.Atom),
	}, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// MainWindow returns the first managed window whose _NET_WM_PID is pid.
// Windows are taken from _NET_CLIENT_LIST, falling back to the children of
// the root window when the window manager does not publish it.
func (b *X11Backend) MainWindow(pid int32) (Handle, error) {
	log := logger.WithComponent("x11-backend")

	candidates, err := b.clientList()
	if err != nil || len(candidates) == 0 {
		log.Debug().Err(err).Msg("MainWindow: _NET_CLIENT_LIST unavailable, falling back to QueryTree")
		tree, err := xproto.QueryTree(b.conn, b.root).Reply()
		if err != nil {
			return 0, fmt.Errorf("failed to query window tree: %w", err)
		}
		candidates = tree.Children
	}

	for _, win := range candidates {
		if owner, ok := b.windowPID(win); ok && owner == uint32(pid) {
			log.Debug().Uint32("winID", uint32(win)).Int32("pid", pid).Msg("MainWindow: matched window")
			return Handle(win), nil
		}
	}
	return 0, fmt.Errorf("no window for pid %d: %w", pid, ErrWindowGone)
}

// Geometry returns the window's size and the root coordinates of its origin
func (b *X11Backend) Geometry(h Handle) (Geometry, error) {
	if h == 0 {
		return Geometry{}, ErrWindowGone
	}
	win := xproto.Window(h)

	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("get geometry: %w", ErrWindowGone)
	}

	pos, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("translate coordinates: %w", ErrWindowGone)
	}

	return Geometry{
		Client: Rect{Right: int(geom.Width), Bottom: int(geom.Height)},
		Origin: Point{X: int(pos.DstX), Y: int(pos.DstY)},
	}, nil
}

// clientList reads _NET_CLIENT_LIST (an array of 32-bit window IDs)
func (b *X11Backend) clientList() ([]xproto.Window, error) {
	atom, err := b.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(
		b.conn,
		false,
		b.root,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	windows := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		windows = append(windows, xproto.Window(binary.LittleEndian.Uint32(reply.Value[i:])))
	}
	return windows, nil
}

// windowPID reads _NET_WM_PID from win
func (b *X11Backend) windowPID(win xproto.Window) (uint32, bool) {
	atom, err := b.getAtom("_NET_WM_PID")
	if err != nil {
		return 0, false
	}

	reply, err := xproto.GetProperty(
		b.conn,
		false,
		win,
		atom,
		xproto.AtomCardinal,
		0,
		1,
	).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(reply.Value), true
}

// getAtom gets an atom ID by name, caching the result
func (b *X11Backend) getAtom(name string) (xproto.Atom, error) {
	if atom, ok := b.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}
