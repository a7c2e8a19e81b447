package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/roa-simulator/internal/api"
	"github.com/kartoza/roa-simulator/internal/config"
	"github.com/kartoza/roa-simulator/internal/model"
	"github.com/kartoza/roa-simulator/internal/roa"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	logger     zerolog.Logger

	mu        sync.RWMutex
	artifact  *model.Artifact
	predictor *roa.Predictor
}

// New creates a new Server with the model artifact at cfg.ModelPath loaded
func New(cfg config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
		logger: log.With().Str("component", "server").Logger(),
	}

	if err := s.loadModel(cfg.ModelPath); err != nil {
		return nil, err
	}

	s.setupRoutes()

	return s, nil
}

// loadModel reads an artifact and swaps it in with a fresh predictor
func (s *Server) loadModel(path string) error {
	artifact, err := model.Load(path, roa.FeatureWidth)
	if err != nil {
		return fmt.Errorf("load model %s: %w", path, err)
	}
	predictor, err := roa.NewPredictor(artifact)
	if err != nil {
		return fmt.Errorf("build predictor: %w", err)
	}

	s.mu.Lock()
	s.artifact = artifact
	s.predictor = predictor
	s.mu.Unlock()

	s.logger.Info().
		Str("artifact_id", artifact.ID).
		Str("source", artifact.Source).
		Msg("Model ready")
	return nil
}

// Predictor returns the predictor of the current artifact
func (s *Server) Predictor() *roa.Predictor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor
}

// ArtifactInfo describes the current artifact
func (s *Server) ArtifactInfo() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return nil
	}
	return s.artifact.Info()
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Model pack management routes
	s.router.HandleFunc("/api/modelpack/status", s.handleModelpackStatus).Methods("GET")
	s.router.HandleFunc("/api/modelpack/install", s.handleModelpackInstall).Methods("POST")

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not load embedded static files")
		return
	}

	// SPA fallback: serve index.html for any non-API route
	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info().Msgf("Server listening on http://localhost:%d", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// spaHandler serves the SPA, falling back to index.html for client-side routing
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	if _, err := fs.Stat(h.staticContent, cleanPath); err != nil {
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
