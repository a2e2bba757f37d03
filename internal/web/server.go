// Package web serves the studio's local UI and the JSON API behind it.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/chatterbox-studio/chatterbox-studio/internal/config"
	"github.com/chatterbox-studio/chatterbox-studio/internal/core"
)

//go:embed static
var staticFiles embed.FS

const (
	readTimeout = 15 * time.Second
	idleTimeout = 60 * time.Second

	// Generation takes many seconds; the write timeout has to cover a full
	// engine round trip.
	writeTimeout = 10 * time.Minute
)

// Stores groups the persistence handles the handlers need.
type Stores struct {
	Personas  core.PersonaStore
	Reference core.AudioStore
	Generated core.AudioStore
}

// Server handles the studio's HTTP surface.
type Server struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	stores    Stores
	generator core.SpeechGenerator

	// generateGate admits one generation at a time; a second submission is
	// answered with 409 instead of queueing behind an expensive call.
	generateGate chan struct{}
}

// New creates the server and registers all routes.
func New(
	cfg *config.Config,
	log *logger.Logger,
	stores Stores,
	generator core.SpeechGenerator,
) (*Server, error) {
	s := &Server{
		cfg:          cfg,
		log:          log,
		stores:       stores,
		generator:    generator,
		generateGate: make(chan struct{}, 1),
	}

	staticRoot, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded static files: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/personas", s.handleListPersonas)
	mux.HandleFunc("GET /api/personas/{name}", s.handleLoadPersona)
	mux.HandleFunc("PUT /api/personas/{name}", s.handleSavePersona)
	mux.HandleFunc("DELETE /api/personas/{name}", s.handleDeletePersona)
	mux.HandleFunc("POST /api/reference", s.handleUploadReference)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/audio/{key}", s.handleServeAudio)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.Handle("GET /", http.FileServerFS(staticRoot))

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s, nil
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info("Web UI listening on http://%s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down web server")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}

	return nil
}
