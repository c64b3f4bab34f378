// Package server implements the Remo HTTP server: the REST API, optional
// admin auth, and the WebSocket recording endpoint.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/remoproj/remo/agent"
	"github.com/remoproj/remo/browse"
	"github.com/remoproj/remo/config"
	"github.com/remoproj/remo/server/api"
	"github.com/remoproj/remo/task"
)

// Server is the Remo HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	tasks    task.Store
	fetcher  agent.Fetcher
	loop     *agent.Loop
	recorder *browse.Recorder
	handlers *api.Handlers

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	startTime time.Time
	version   string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		version:   ver,
	}
}

// SetTaskStore attaches a task store to the server.
func (s *Server) SetTaskStore(store task.Store) {
	s.tasks = store
}

// SetFetcher attaches the supervised page fetcher.
func (s *Server) SetFetcher(f agent.Fetcher) {
	s.fetcher = f
}

// SetLoop attaches the autonomous browsing loop.
func (s *Server) SetLoop(l *agent.Loop) {
	s.loop = l
}

// SetRecorder attaches the interactive session recorder.
func (s *Server) SetRecorder(r *browse.Recorder) {
	s.recorder = r
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8000"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	h := &api.Handlers{
		Tasks:   s.tasks,
		Fetcher: s.fetcher,
		Loop:    s.loop,
		Logger:  s.logger,
		Version: s.version,
		StartAt: s.startTime.Unix(),
	}
	s.handlers = h

	// Public routes (no auth required)
	s.mux.HandleFunc("GET /{$}", h.Root)
	s.mux.HandleFunc("GET /api/status", h.Status)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	// WebSocket auth is handled inline because browsers can't set headers
	// on the upgrade request.
	s.mux.HandleFunc("GET /ws/record/{task_id}/{user_id}", s.handleRecord)

	// The REST API, wrapped in auth middleware when an admin user is
	// configured. The mobile app's deployment runs open.
	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)

	var protected http.Handler = apiMux
	if s.cfg.Auth.AdminUser != "" {
		protected = s.authMiddleware(apiMux)
	}
	s.mux.Handle("POST /tasks", protected)
	s.mux.Handle("GET /tasks/", protected)
	s.mux.Handle("POST /tasks/", protected)
	s.mux.Handle("POST /register-push-token", protected)
	s.mux.Handle("POST /execute/", protected)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
