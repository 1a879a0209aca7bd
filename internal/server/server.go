// Package server provides the HTTP server for airsketch: the JSON API, the
// rendered canvas, the mirrored camera stream and the live cursor feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/airsketch/internal/app"
	"github.com/ayusman/airsketch/internal/server/api"
	"github.com/ayusman/airsketch/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	DrawingsDir string
	Store       *store.Store
	App         *app.App
	Logger      *zap.Logger
}

// Server represents the HTTP server for the airsketch application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	live   *LiveHandler
	logger *zap.Logger
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger.Named("server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		engine := a.Engine()
		logger := s.logger

		s.mux.Handle("/api/brush", api.NewBrushHandler(engine, s.config.Store, logger))

		history := api.NewHistoryHandler(engine, logger)
		s.mux.Handle("/api/undo", history)
		s.mux.Handle("/api/redo", history)
		s.mux.Handle("/api/clear", history)

		drawings := api.NewDrawingsHandler(engine, s.config.Store, s.config.DrawingsDir, logger)
		s.mux.Handle("/api/drawings", drawings)
		s.mux.Handle("/api/drawings/open", drawings)
		s.mux.Handle("/api/export/pdf", drawings)

		s.mux.Handle("/api/camera", api.NewCameraHandler(a, s.config.Store, logger))

		s.mux.Handle("/api/canvas", NewCanvasHandler(engine.Compositor()))
		s.mux.Handle("/api/stream", NewStreamHandler(a, logger))

		s.live = NewLiveHandler(a, engine.Compositor().Version, logger)
		s.mux.Handle("/api/live", s.live)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Source  string `json:"source,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Actions *int   `json:"actions,omitempty"`
	Frames  uint64 `json:"frames,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).String(),
	}

	if a := s.config.App; a != nil {
		response.Source = "ok"
		if err := a.SourceError(); err != nil {
			response.Source = err.Error()
		}
		enabled := a.IsEnabled()
		actions := a.Engine().Recorder().Len()
		response.Enabled = &enabled
		response.Actions = &actions
		response.Frames = a.FrameCount()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns nil
// after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the live feed and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.live != nil {
		s.live.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
