package wallpaper

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
)

// changeOps are the events treated as "the wallpaper changed"
const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Chmod

// Watcher reports changes in the directory holding the wallpaper. Events
// arriving while the watcher is disabled are dropped.
type Watcher struct {
	dir     string
	fs      *fsnotify.Watcher
	enabled atomic.Bool
	log     *zerolog.Logger
}

// NewWatcher starts watching the directory containing path
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir: dir,
		fs:  fw,
		log: logger.WithComponent("wallpaper"),
	}
	w.enabled.Store(true)
	return w, nil
}

// Dir returns the watched directory
func (w *Watcher) Dir() string {
	return w.dir
}

// SetEnabled turns event delivery on or off
func (w *Watcher) SetEnabled(enabled bool) {
	w.enabled.Store(enabled)
}

// Enabled reports whether events are delivered
func (w *Watcher) Enabled() bool {
	return w.enabled.Load()
}

// Run calls onChange for every change event until ctx is cancelled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	w.log.Info().Str("dir", w.dir).Msg("Watching wallpaper directory")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&changeOps == 0 {
				continue
			}
			if !w.Enabled() {
				w.log.Debug().Str("event", ev.String()).Msg("Dropped event while disabled")
				continue
			}
			w.log.Debug().Str("event", ev.String()).Msg("Wallpaper directory changed")
			onChange()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}
