//go:build !windows

package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
)

// Root properties naming the wallpaper pixmap, in lookup order. Wallpaper
// setters (feh, nitrogen, xwallpaper, most desktops) publish at least one.
var backgroundAtoms = []string{"_XROOTPMAP_ID", "ESETROOT_PMAP_ID"}

// X11Capturer captures regions of the desktop background. The source is the
// root background pixmap, so windows on top of the wallpaper are not part of
// the image. Without a published pixmap it falls back to the root window.
type X11Capturer struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	atoms  map[string]xproto.Atom
	mu     sync.Mutex
}

// NewX11Capturer creates a new X11 capturer
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	logger.WithComponent("x11-capturer").Debug().
		Uint8("depth", screen.RootDepth).
		Uint16("width", screen.WidthInPixels).
		Uint16("height", screen.HeightInPixels).
		Msg("Connected to X server")

	return &X11Capturer{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		atoms:  make(map[string]xproto.Atom),
	}, nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "X11"
}

// Close closes the X11 connection
func (c *X11Capturer) Close() error {
	c.conn.Close()
	return nil
}

// CaptureRegion captures a region of the desktop background. Parts of r
// outside the background are left opaque black.
func (c *X11Capturer) CaptureRegion(r Region) (*image.RGBA, error) {
	if !r.Valid() {
		return nil, ErrInvalidRegion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The pixmap is replaced whenever the wallpaper changes; look it up per capture
	source := xproto.Drawable(c.root)
	if pixmap, ok := c.backgroundPixmap(); ok {
		source = xproto.Drawable(pixmap)
	}

	geom, err := xproto.GetGeometry(c.conn, source).Reply()
	if err != nil && source != xproto.Drawable(c.root) {
		// Stale property pointing at a freed pixmap
		source = xproto.Drawable(c.root)
		geom, err = xproto.GetGeometry(c.conn, source).Reply()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drawable geometry: %w", err)
	}
	if geom.Depth != 24 && geom.Depth != 32 {
		return nil, fmt.Errorf("unsupported depth %d", geom.Depth)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	fillOpaque(img)

	visible := r.Rect().Intersect(image.Rect(0, 0, int(geom.Width), int(geom.Height)))
	if visible.Empty() {
		return img, nil
	}

	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		source,
		int16(visible.Min.X), int16(visible.Min.Y),
		uint16(visible.Dx()), uint16(visible.Dy()),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if len(reply.Data) < visible.Dx()*visible.Dy()*4 {
		return nil, fmt.Errorf("short image data: %d bytes for %dx%d", len(reply.Data), visible.Dx(), visible.Dy())
	}

	pasteBGRA(img, visible.Sub(r.Rect().Min), reply.Data)
	return img, nil
}

// backgroundPixmap returns the wallpaper pixmap published on the root window
func (c *X11Capturer) backgroundPixmap() (xproto.Pixmap, bool) {
	for _, name := range backgroundAtoms {
		atom, err := c.getAtom(name)
		if err != nil {
			continue
		}
		reply, err := xproto.GetProperty(c.conn, false, c.root, atom,
			xproto.AtomPixmap, 0, 1).Reply()
		if err != nil {
			continue
		}
		if pixmap, ok := pixmapFromProperty(reply); ok {
			return pixmap, true
		}
	}
	return 0, false
}

// pixmapFromProperty decodes a single PIXMAP property value
func pixmapFromProperty(reply *xproto.GetPropertyReply) (xproto.Pixmap, bool) {
	if reply == nil || reply.Format != 32 || reply.Type != xproto.AtomPixmap || len(reply.Value) < 4 {
		return 0, false
	}
	pixmap := xproto.Pixmap(xgb.Get32(reply.Value))
	return pixmap, pixmap != 0
}

func (c *X11Capturer) getAtom(name string) (xproto.Atom, error) {
	if atom, ok := c.atoms[name]; ok {
		return atom, nil
	}

	// onlyIfExists: a missing atom means nobody ever set the property
	reply, err := xproto.InternAtom(c.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Atom == xproto.AtomNone {
		return 0, fmt.Errorf("atom %s is not interned", name)
	}
	c.atoms[name] = reply.Atom
	return reply.Atom, nil
}
