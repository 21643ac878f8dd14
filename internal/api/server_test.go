package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smoogipooo/osu--Background-Overlay/internal/config"
	"github.com/smoogipooo/osu--Background-Overlay/internal/coordinator"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

type fakeCoordinator struct {
	mu       sync.Mutex
	requests []coordinator.Source
	preview  []byte
}

func (c *fakeCoordinator) PreviewJPEG() ([]byte, error) {
	if c.preview == nil {
		return nil, coordinator.ErrNoImage
	}
	return c.preview, nil
}

func (c *fakeCoordinator) Status() coordinator.Status {
	return coordinator.Status{State: "idle", Runs: 3, Updates: 2, LastOutcome: "updated"}
}

func (c *fakeCoordinator) Request(src coordinator.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, src)
}

type fakeTargets struct{}

func (fakeTargets) Snapshot() window.Target {
	return window.Target{
		Process: &window.Process{PID: 42, Name: "osu!.exe"},
		Geometry: window.Geometry{
			Client: window.Rect{Right: 800, Bottom: 600},
			Origin: window.Point{X: 10, Y: 20},
		},
	}
}

type staticConfig struct{}

func (staticConfig) Get() *config.Config { return config.Defaults() }

func newTestServer(t *testing.T) (*httptest.Server, *fakeCoordinator, *logger.Sink) {
	t.Helper()
	coord := &fakeCoordinator{}
	sink := logger.NewSink("test")
	srv := httptest.NewServer(NewServer(coord, fakeTargets{}, sink, staticConfig{}).Handler())
	t.Cleanup(srv.Close)
	return srv, coord, sink
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["version"] != Version {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Target.Process == nil || body.Target.Process.PID != 42 {
		t.Errorf("unexpected target %+v", body.Target)
	}
	if body.Target.Geometry.Origin != (window.Point{X: 10, Y: 20}) {
		t.Errorf("unexpected origin %+v", body.Target.Geometry.Origin)
	}
	if body.Coordinator.Runs != 3 || body.Coordinator.LastOutcome != "updated" {
		t.Errorf("unexpected coordinator status %+v", body.Coordinator)
	}
}

func TestConfig(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var cfg config.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.BackgroundName != "menu-background.jpg" {
		t.Errorf("background_name = %q", cfg.BackgroundName)
	}
}

func TestRefreshQueuesManualCycle(t *testing.T) {
	srv, coord, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if len(coord.requests) != 1 || coord.requests[0] != coordinator.SourceManual {
		t.Errorf("requests = %v, want one manual request", coord.requests)
	}
}

func TestRefreshRejectsGet(t *testing.T) {
	srv, coord, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/refresh")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if len(coord.requests) != 0 {
		t.Error("GET must not queue a cycle")
	}
}

func TestMethodMismatchIs405(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/status"},
		{http.MethodDelete, "/api/config"},
		{http.MethodPut, "/api/refresh"},
		{http.MethodPost, "/api/preview.jpg"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tt.method, tt.path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: status = %d, want 404", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/status", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestLogStream(t *testing.T) {
	srv, _, sink := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/log/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The handler subscribes after the upgrade; keep logging until a line arrives
	got := make(chan logger.Line, 1)
	go func() {
		var line logger.Line
		if err := conn.ReadJSON(&line); err == nil {
			got <- line
		}
	}()

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case line := <-got:
			if line.Text != "Wallpaper changed!" {
				t.Errorf("line = %q", line.Text)
			}
			return
		case <-ticker.C:
			sink.Log("Wallpaper changed!")
		case <-deadline:
			t.Fatal("no line received")
		}
	}
}

func TestPreview(t *testing.T) {
	srv, coord, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/preview.jpg")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status before first capture = %d, want 404", resp.StatusCode)
	}

	coord.preview = []byte{0xff, 0xd8, 0xff}
	resp, err = http.Get(srv.URL + "/api/preview.jpg")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("status = %d, Content-Type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
