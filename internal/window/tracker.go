package window

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
)

// Sink receives human-readable status lines
type Sink interface {
	Log(text string)
}

// TrackerOptions configures a Tracker
type TrackerOptions struct {
	// Names are the candidate process names, searched in order
	Names         []string
	PollInterval  time.Duration
	SearchBackoff time.Duration
}

// Tracker polls for the target process and records its window geometry.
// Every change of the window's screen origin, including the first time the
// window is seen, invokes the change callback once.
type Tracker struct {
	finder  Finder
	backend Backend
	sink    Sink
	opts    TrackerOptions
	log     *zerolog.Logger

	mu       sync.RWMutex
	target   *Process
	geometry Geometry
	onChange func(ctx context.Context)

	sleep func(ctx context.Context, d time.Duration) bool
}

// NewTracker creates a tracker in the "nothing tracked" state
func NewTracker(finder Finder, backend Backend, sink Sink, opts TrackerOptions) *Tracker {
	return &Tracker{
		finder:   finder,
		backend:  backend,
		sink:     sink,
		opts:     opts,
		log:      logger.WithComponent("tracker"),
		geometry: UnknownGeometry(),
		sleep:    sleepContext,
	}
}

// OnChange sets the callback run synchronously when the window origin changes
func (t *Tracker) OnChange(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Snapshot returns the tracked process and its last known geometry
func (t *Tracker) Snapshot() Target {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Target{Geometry: t.geometry}
	if t.target != nil {
		p := *t.target
		snap.Process = &p
	}
	return snap
}

// Run polls until ctx is cancelled
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Info().
		Strs("names", t.opts.Names).
		Dur("poll", t.opts.PollInterval).
		Str("backend", t.backend.Name()).
		Msg("Tracking target process")

	for {
		wait := t.Tick(ctx)
		if !t.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
}

// Tick performs one poll and returns how long to wait before the next one
func (t *Tracker) Tick(ctx context.Context) time.Duration {
	t.mu.RLock()
	target := t.target
	t.mu.RUnlock()

	if target == nil {
		t.sink.Log("Attempting to find the osu! process...")

		p, err := t.discover(ctx)
		if err != nil {
			if !errors.Is(err, ErrProcessNotFound) {
				t.log.Warn().Err(err).Msg("Process search failed")
			}
			t.sink.Log("Failed to find the osu! process.\nRetrying in " + t.opts.SearchBackoff.String())
			return t.opts.SearchBackoff
		}

		t.mu.Lock()
		t.target = p
		t.mu.Unlock()
		target = p

		t.log.Debug().
			Int32("pid", p.PID).
			Str("name", p.Name).
			Str("exe", p.Exe).
			Uint64("window", uint64(p.Window)).
			Msg("Target process acquired")
		t.sink.Log("Found osu! process!")
	}

	geom, err := t.backend.Geometry(target.Window)
	if err != nil {
		t.log.Debug().Err(err).Int32("pid", target.PID).Msg("Window query failed, dropping target")
		t.mu.Lock()
		t.target = nil
		t.geometry = UnknownGeometry()
		t.mu.Unlock()
		return t.opts.PollInterval
	}

	t.mu.Lock()
	changed := geom.Origin != t.geometry.Origin
	t.geometry = geom
	onChange := t.onChange
	t.mu.Unlock()

	if changed {
		t.log.Debug().Str("geometry", geom.String()).Msg("Window moved")
		if onChange != nil {
			onChange(ctx)
		}
	}
	return t.opts.PollInterval
}

// discover returns the first process matching the first candidate name that
// has any running instance.
func (t *Tracker) discover(ctx context.Context) (*Process, error) {
	for _, name := range t.opts.Names {
		procs, err := t.finder.Find(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(procs) == 0 {
			continue
		}

		p := procs[0]
		h, err := t.backend.MainWindow(p.PID)
		if err != nil {
			// Still tracked; the geometry query fails and forces a new search
			t.log.Debug().Err(err).Int32("pid", p.PID).Msg("No main window yet")
		}
		p.Window = h
		return &p, nil
	}
	return nil, ErrProcessNotFound
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
