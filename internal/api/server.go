package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/novelbind/internal/config"
	"github.com/dgallion1/novelbind/internal/pipeline"
	"github.com/dgallion1/novelbind/internal/translate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for novelbind.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	translator   *translate.GoogleClient
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, tr *translate.GoogleClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		translator:   tr,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/runs", s.handleSubmitRun)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Get("/api/runs/{runID}/download", s.handleRunDownload)
		r.Get("/api/stats/translate", s.handleTranslateStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
