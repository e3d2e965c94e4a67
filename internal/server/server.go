// Package server provides the HTTP server for posematch.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/posematch/internal/hook"
	"github.com/ayusman/posematch/internal/server/api"
	"github.com/ayusman/posematch/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Controller drives sessions and reports status for /api/session and /api/live.
	Controller api.Controller
	Hooks      *hook.Manager
	// Frames supplies encoded camera frames for /api/stream.
	Frames FrameSource
	// LiveInterval is the /api/live broadcast period. Zero uses DefaultLiveInterval.
	LiveInterval time.Duration
	// StreamInterval is the /api/stream poll period. Zero uses DefaultStreamInterval.
	StreamInterval time.Duration
}

// Server represents the HTTP server for the posematch application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	live   *LiveHandler

	mu  sync.Mutex
	srv *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		routines := api.NewRoutineHandler(s.config.Store)
		s.mux.Handle("/api/routines", routines)
		s.mux.Handle("/api/routines/", routines)
	}

	if s.config.Controller != nil {
		session := api.NewSessionHandler(s.config.Controller)
		s.mux.Handle("/api/session", session)
		s.mux.Handle("/api/session/", session)

		s.live = NewLiveHandler(s.config.Controller, s.config.LiveInterval)
		s.mux.Handle("/api/live", s.live)
	}

	if s.config.Hooks != nil {
		s.mux.Handle("/api/hooks", api.NewHookHandler(s.config.Hooks))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames, s.config.StreamInterval))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the live broadcaster and gracefully stops the listener.
// Streaming clients are dropped when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return srv.Close()
	}
	return err
}

// Close stops background broadcasting. It does not close the listener.
func (s *Server) Close() {
	if s.live != nil {
		s.live.Close()
	}
}
