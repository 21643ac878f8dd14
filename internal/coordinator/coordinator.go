// Package coordinator runs the capture-and-replace cycle. Cycles are
// serialized: whichever trigger arrives while a cycle is in progress waits
// for it to finish.
package coordinator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/smoogipooo/osu--Background-Overlay/internal/capture"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skin"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

// Status lines emitted through the sink
const (
	msgUpdated     = "Wallpaper changed!"
	msgDefaultSkin = "Can't change the background of the default skin. Please select another skin inside osu!"
	msgUnresolved  = "Couldn't find the selected skin in the osu! configuration file."
)

var (
	// ErrNoImage is returned by PreviewJPEG before the first capture
	ErrNoImage = errors.New("no image captured yet")

	errNoInstallDir = errors.New("install directory of the target is unknown")
)

// TargetSource provides the tracked process and its geometry
type TargetSource interface {
	Snapshot() window.Target
}

// SkinResolver resolves the active skin of an installation
type SkinResolver interface {
	Resolve(installDir, userName string) (skin.Reference, error)
}

// FileGuard protects and writes the skin background file
type FileGuard interface {
	EnsureBackup(dir string) (bool, error)
	Replace(dir string, img image.Image) error
}

// Notifier tells the target application to reload its skin
type Notifier interface {
	Notify(ctx context.Context, target window.Handle)
}

// Gate switches wallpaper change notifications on and off
type Gate interface {
	SetEnabled(enabled bool)
}

// Sink receives human-readable status lines
type Sink interface {
	Log(text string)
}

// Options configures a Coordinator
type Options struct {
	// UserName selects the per-user config file of the target
	UserName string
	// Debounce is waited before wallpaper-triggered cycles
	Debounce time.Duration
}

// Coordinator owns the output image and drives one cycle at a time
type Coordinator struct {
	targets  TargetSource
	resolver SkinResolver
	guard    FileGuard
	capturer capture.Capturer
	notifier Notifier
	sink     Sink
	gate     Gate
	opts     Options
	log      *zerolog.Logger

	slot  capture.Slot
	mu    sync.Mutex
	state atomic.Int32

	reqMu   sync.Mutex
	pending map[Source]bool
	wake    chan struct{}

	statusMu sync.RWMutex
	status   Status

	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a coordinator in the Idle state
func New(targets TargetSource, resolver SkinResolver, guard FileGuard, capturer capture.Capturer,
	notifier Notifier, sink Sink, opts Options) *Coordinator {
	return &Coordinator{
		targets:  targets,
		resolver: resolver,
		guard:    guard,
		capturer: capturer,
		notifier: notifier,
		sink:     sink,
		opts:     opts,
		log:      logger.WithComponent("coordinator"),
		pending:  make(map[Source]bool),
		wake:     make(chan struct{}, 1),
		sleep:    sleepContext,
	}
}

// SetGate sets the notification source suppressed while a cycle runs
func (c *Coordinator) SetGate(g Gate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = g
}

// State returns Idle or Updating
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run performs one cycle for src, waiting for any cycle in progress first
func (c *Coordinator) Run(ctx context.Context, src Source) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Store(int32(Updating))
	defer c.state.Store(int32(Idle))

	if c.gate != nil {
		c.gate.SetEnabled(false)
		defer c.gate.SetEnabled(true)
	}

	if src == SourceWallpaper && c.opts.Debounce > 0 {
		if !c.sleep(ctx, c.opts.Debounce) {
			c.record(src, Cancelled, ctx.Err())
			return Cancelled
		}
	}

	outcome, err := c.cycle(ctx)
	c.record(src, outcome, err)
	return outcome
}

func (c *Coordinator) cycle(ctx context.Context) (Outcome, error) {
	target := c.targets.Snapshot()
	if target.Process == nil {
		return NoTarget, nil
	}
	if target.Process.Exe == "" {
		return ResolveFailed, errNoInstallDir
	}

	ref, err := c.resolver.Resolve(filepath.Dir(target.Process.Exe), c.opts.UserName)
	if err != nil {
		return ResolveFailed, err
	}
	switch ref.State {
	case skin.Unresolved:
		c.sink.Log(msgUnresolved)
		return Unresolved, nil
	case skin.Default:
		c.sink.Log(msgDefaultSkin)
		return DefaultSkin, nil
	}

	created, err := c.guard.EnsureBackup(ref.Dir)
	if err != nil {
		return BackupFailed, err
	}
	if created {
		c.log.Info().Str("skin", ref.Name).Msg("Backed up original background")
	}

	geom := target.Geometry
	if !geom.Valid() {
		return NoGeometry, nil
	}
	region := capture.Region{
		X:      geom.Origin.X,
		Y:      geom.Origin.Y,
		Width:  geom.Client.Width(),
		Height: geom.Client.Height(),
	}

	if outcome, err := c.replace(ref.Dir, region); err != nil {
		return outcome, err
	}

	c.notifier.Notify(ctx, target.Process.Window)
	c.sink.Log(msgUpdated)
	return Updated, nil
}

// replace captures region into the slot and writes it to dir while holding
// the slot. The previous image is dropped before the capture starts.
func (c *Coordinator) replace(dir string, region capture.Region) (Outcome, error) {
	lease := c.slot.Acquire()
	defer lease.Release()

	lease.Discard()

	img, err := c.capturer.CaptureRegion(region)
	if err != nil {
		return CaptureFailed, err
	}
	lease.Store(img)

	if err := c.guard.Replace(dir, img); err != nil {
		return WriteFailed, err
	}

	c.log.Debug().
		Str("region", region.String()).
		Uint64("generation", lease.Generation()).
		Msg("Background written")
	return Updated, nil
}

func (c *Coordinator) record(src Source, outcome Outcome, err error) {
	ev := c.log.Debug()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("source", src.String()).Str("outcome", outcome.String()).Msg("Cycle finished")

	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	c.status.Runs++
	if outcome == Updated {
		c.status.Updates++
	}
	c.status.LastSource = src.String()
	c.status.LastOutcome = outcome.String()
	c.status.LastError = ""
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.status.LastRun = time.Now()
}

// Status returns counters and the result of the last cycle
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	s := c.status
	c.statusMu.RUnlock()

	s.State = c.State().String()
	return s
}

// PreviewJPEG encodes the last captured image. Encoding happens under the
// slot lease, writing the bytes out is left to the caller.
func (c *Coordinator) PreviewJPEG() ([]byte, error) {
	lease := c.slot.Acquire()
	defer lease.Release()

	img := lease.Current()
	if img == nil {
		return nil, ErrNoImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Request queues a cycle for src. Requests for a source that is already
// queued are merged.
func (c *Coordinator) Request(src Source) {
	c.reqMu.Lock()
	c.pending[src] = true
	c.reqMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Dispatch runs queued requests until ctx is cancelled
func (c *Coordinator) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}

		for _, src := range c.takePending() {
			c.Run(ctx, src)
		}
	}
}

func (c *Coordinator) takePending() []Source {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	var srcs []Source
	for _, src := range []Source{SourceManual, SourceGeometry, SourceWallpaper} {
		if c.pending[src] {
			srcs = append(srcs, src)
			delete(c.pending, src)
		}
	}
	return srcs
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
