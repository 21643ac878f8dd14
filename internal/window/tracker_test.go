package window

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeFinder struct {
	procs map[string][]Process
	calls []string
	err   error
}

func (f *fakeFinder) Find(ctx context.Context, name string) ([]Process, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.procs[name], nil
}

type fakeBackend struct {
	windows  map[int32]Handle
	geometry map[Handle]Geometry
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		windows:  make(map[int32]Handle),
		geometry: make(map[Handle]Geometry),
	}
}

func (b *fakeBackend) MainWindow(pid int32) (Handle, error) {
	h, ok := b.windows[pid]
	if !ok {
		return 0, ErrWindowGone
	}
	return h, nil
}

func (b *fakeBackend) Geometry(h Handle) (Geometry, error) {
	g, ok := b.geometry[h]
	if !ok {
		return Geometry{}, ErrWindowGone
	}
	return g, nil
}

func (b *fakeBackend) Name() string { return "fake" }
func (b *fakeBackend) Close() error { return nil }

type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) Log(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *recordingSink) contains(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func geomAt(x, y, w, h int) Geometry {
	return Geometry{Client: Rect{Right: w, Bottom: h}, Origin: Point{X: x, Y: y}}
}

func testOptions() TrackerOptions {
	return TrackerOptions{
		Names:         []string{"osu!", "osu!test"},
		PollInterval:  100 * time.Millisecond,
		SearchBackoff: time.Second,
	}
}

func newTestTracker(finder Finder, backend Backend) (*Tracker, *recordingSink, *int) {
	sink := &recordingSink{}
	tr := NewTracker(finder, backend, sink, testOptions())
	count := 0
	tr.OnChange(func(ctx context.Context) { count++ })
	return tr, sink, &count
}

func TestTrackerFirstAcquisitionTriggers(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{
		"osu!": {{PID: 42, Name: "osu!.exe", Exe: `C:\osu!\osu!.exe`}},
	}}
	backend := newFakeBackend()
	backend.windows[42] = 7
	backend.geometry[7] = geomAt(10, 10, 200, 150)

	tr, sink, count := newTestTracker(finder, backend)

	if wait := tr.Tick(context.Background()); wait != 100*time.Millisecond {
		t.Errorf("wait = %v, want poll interval", wait)
	}
	if *count != 1 {
		t.Fatalf("change callback ran %d times, want 1", *count)
	}
	if !sink.contains("Found osu! process!") {
		t.Errorf("missing acquisition log line, got %v", sink.lines)
	}

	snap := tr.Snapshot()
	if snap.Process == nil || snap.Process.PID != 42 || snap.Process.Window != 7 {
		t.Fatalf("unexpected snapshot process %+v", snap.Process)
	}
	if snap.Geometry != geomAt(10, 10, 200, 150) {
		t.Errorf("unexpected geometry %v", snap.Geometry)
	}
}

func TestTrackerIdenticalOriginsDoNotTrigger(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{"osu!": {{PID: 1}}}}
	backend := newFakeBackend()
	backend.windows[1] = 1
	backend.geometry[1] = geomAt(10, 10, 200, 150)

	tr, _, count := newTestTracker(finder, backend)
	ctx := context.Background()

	tr.Tick(ctx)
	tr.Tick(ctx)
	if *count != 1 {
		t.Fatalf("callback ran %d times after identical ticks, want 1", *count)
	}

	// A resize without a move keeps the origin
	backend.geometry[1] = geomAt(10, 10, 800, 600)
	tr.Tick(ctx)
	if *count != 1 {
		t.Errorf("callback ran %d times after resize in place, want 1", *count)
	}
	if tr.Snapshot().Geometry.Client.Width() != 800 {
		t.Error("geometry should still be refreshed on every tick")
	}

	backend.geometry[1] = geomAt(20, 10, 800, 600)
	tr.Tick(ctx)
	if *count != 2 {
		t.Errorf("callback ran %d times after move, want 2", *count)
	}
}

func TestTrackerProcessNotFoundBacksOff(t *testing.T) {
	finder := &fakeFinder{}
	tr, sink, count := newTestTracker(finder, newFakeBackend())

	if wait := tr.Tick(context.Background()); wait != time.Second {
		t.Errorf("wait = %v, want search backoff", wait)
	}
	if *count != 0 {
		t.Error("callback should not run without a target")
	}
	if got := strings.Join(finder.calls, ","); got != "osu!,osu!test" {
		t.Errorf("searched %q, want primary then fallback name", got)
	}
	if !sink.contains("Failed to find the osu! process.") {
		t.Errorf("missing retry log line, got %v", sink.lines)
	}
}

func TestTrackerFallbackNameAndFirstEnumerated(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{
		"osu!test": {{PID: 9}, {PID: 3}},
	}}
	backend := newFakeBackend()
	backend.windows[9] = 90
	backend.windows[3] = 30
	backend.geometry[90] = geomAt(0, 0, 10, 10)
	backend.geometry[30] = geomAt(0, 0, 10, 10)

	tr, _, _ := newTestTracker(finder, backend)
	tr.Tick(context.Background())

	snap := tr.Snapshot()
	if snap.Process == nil || snap.Process.PID != 9 {
		t.Fatalf("tracked %+v, want first enumerated pid 9", snap.Process)
	}
}

func TestTrackerPrimaryNameWins(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{
		"osu!":     {{PID: 5}},
		"osu!test": {{PID: 6}},
	}}
	backend := newFakeBackend()
	backend.windows[5] = 50
	backend.geometry[50] = geomAt(0, 0, 10, 10)

	tr, _, _ := newTestTracker(finder, backend)
	tr.Tick(context.Background())

	if p := tr.Snapshot().Process; p == nil || p.PID != 5 {
		t.Fatalf("tracked %+v, want pid 5", p)
	}
	if len(finder.calls) != 1 {
		t.Errorf("fallback name should not be searched, calls = %v", finder.calls)
	}
}

func TestTrackerLossResetsAndRediscovers(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{"osu!": {{PID: 1}}}}
	backend := newFakeBackend()
	backend.windows[1] = 1
	backend.geometry[1] = geomAt(10, 10, 200, 150)

	tr, _, count := newTestTracker(finder, backend)
	ctx := context.Background()
	tr.Tick(ctx)

	// Window disappears
	delete(backend.geometry, 1)
	if wait := tr.Tick(ctx); wait != 100*time.Millisecond {
		t.Errorf("wait after loss = %v, want poll interval", wait)
	}
	snap := tr.Snapshot()
	if snap.Process != nil {
		t.Error("target should be cleared after a failed geometry query")
	}
	if snap.Geometry.Origin != Unknown || snap.Geometry.Valid() {
		t.Errorf("geometry should reset to unknown, got %v", snap.Geometry)
	}
	if *count != 1 {
		t.Errorf("loss should not trigger a cycle, callback ran %d times", *count)
	}

	// Process comes back at the same place: first contact again
	backend.geometry[1] = geomAt(10, 10, 200, 150)
	tr.Tick(ctx)
	if *count != 2 {
		t.Errorf("rediscovery should trigger a cycle, callback ran %d times", *count)
	}
}

func TestTrackerNoMainWindowYet(t *testing.T) {
	finder := &fakeFinder{procs: map[string][]Process{"osu!": {{PID: 1}}}}
	tr, _, count := newTestTracker(finder, newFakeBackend())

	tr.Tick(context.Background())
	if tr.Snapshot().Process != nil {
		t.Error("process without a window should be dropped after the geometry query")
	}
	if *count != 0 {
		t.Error("callback should not run")
	}
}

func TestTrackerSearchError(t *testing.T) {
	finder := &fakeFinder{err: errors.New("boom")}
	tr, _, _ := newTestTracker(finder, newFakeBackend())

	if wait := tr.Tick(context.Background()); wait != time.Second {
		t.Errorf("wait = %v, want search backoff", wait)
	}
}

func TestTrackerRunStopsOnCancel(t *testing.T) {
	tr, _, _ := newTestTracker(&fakeFinder{}, newFakeBackend())

	ticks := 0
	ctx, cancel := context.WithCancel(context.Background())
	tr.sleep = func(ctx context.Context, d time.Duration) bool {
		ticks++
		if ticks == 3 {
			cancel()
			return false
		}
		return true
	}

	if err := tr.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if ticks != 3 {
		t.Errorf("ran %d ticks, want 3", ticks)
	}
}

func TestGeometryValid(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want bool
	}{
		{"normal", geomAt(10, 10, 200, 150), true},
		{"negative origin", geomAt(-1920, 0, 200, 150), true},
		{"unknown", UnknownGeometry(), false},
		{"zero width", geomAt(0, 0, 0, 150), false},
		{"minimized", geomAt(-32000, -32000, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		process, want string
		match         bool
	}{
		{"osu!.exe", "osu!", true},
		{"osu!", "osu!", true},
		{"OSU!.EXE", "osu!", true},
		{"osu!test.exe", "osu!", false},
		{"osu!test", "osu!test.exe", true},
		{"notosu!", "osu!", false},
	}
	for _, tt := range tests {
		if got := MatchName(tt.process, tt.want); got != tt.match {
			t.Errorf("MatchName(%q, %q) = %v, want %v", tt.process, tt.want, got, tt.match)
		}
	}
}

func TestProcessFinderFindsSelf(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot determine own executable: %v", err)
	}
	name := filepath.Base(exe)
	// Linux truncates process names to 15 characters
	if len(trimExe(name)) >= 15 {
		t.Skipf("executable name %q too long to match reliably", name)
	}

	procs, err := NewProcessFinder().Find(context.Background(), name)
	if err != nil {
		t.Skipf("process listing unavailable: %v", err)
	}
	for _, p := range procs {
		if int(p.PID) == os.Getpid() {
			return
		}
	}
	t.Errorf("own pid %d not found among %d processes named %q", os.Getpid(), len(procs), name)
}
