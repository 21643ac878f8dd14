package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/smoogipooo/osu--Background-Overlay/internal/config"
	"github.com/smoogipooo/osu--Background-Overlay/internal/coordinator"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Coordinator is the part of the coordinator exposed over HTTP
type Coordinator interface {
	Status() coordinator.Status
	Request(src coordinator.Source)
	PreviewJPEG() ([]byte, error)
}

// TargetSource provides the tracked process
type TargetSource interface {
	Snapshot() window.Target
}

// LogSource streams status lines
type LogSource interface {
	Subscribe() chan logger.Line
	Unsubscribe(ch chan logger.Line)
}

// ConfigSource provides the running configuration
type ConfigSource interface {
	Get() *config.Config
}

// Server represents the local status API
type Server struct {
	router   *mux.Router
	coord    Coordinator
	targets  TargetSource
	logs     LogSource
	cfg      ConfigSource
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(coord Coordinator, targets TargetSource, logs LogSource, cfg ConfigSource) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		coord:   coord,
		targets: targets,
		logs:    logs,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, served on loopback only
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes. Routes are registered on the root
// router with their full path: a PathPrefix subrouter answers a method
// mismatch with 404 instead of 405.
func (s *Server) setupRoutes() {
	r := s.router

	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/config", s.handleGetConfig).Methods("GET")

	r.HandleFunc("/api/preview.jpg", s.handlePreview).Methods("GET")

	// Trigger a cycle without waiting for a wallpaper or window change
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods("POST")

	r.HandleFunc("/api/log/stream", s.handleLogStream)
}

// Handler returns the HTTP handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Serve listens on localhost:port until ctx is cancelled
func (s *Server) Serve(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", "http://"+ln.Addr().String()).Msg("Status API listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HTTP Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Target      window.Target      `json:"target"`
	Coordinator coordinator.Status `json:"coordinator"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Target:      s.targets.Snapshot(),
		Coordinator: s.coord.Status(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Get())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.coord.Request(coordinator.SourceManual)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handlePreview serves the last captured crop
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, err := s.coord.PreviewJPEG()
	if errors.Is(err, coordinator.ErrNoImage) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(data)
}

func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	lines := s.logs.Subscribe()
	defer s.logs.Unsubscribe(lines)

	// Reads only serve to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := conn.WriteJSON(line); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}
