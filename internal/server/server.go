package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/export"
	"github.com/joseph-ayodele/cte-extractor/internal/repository"
)

type Config struct {
	MaxUploadBytes int64
	// Region anchors the filters and the tax column when a request names none.
	Region constants.Region
}

// Server is the HTTP API for batch CT-e extraction.
type Server struct {
	router   chi.Router
	proc     *core.Processor
	exporter *export.Service
	runs     repository.RunRepository
	log      *slog.Logger
	cfg      Config
}

// NewServer wires the routes. runs may be nil when run history is disabled.
func NewServer(proc *core.Processor, exporter *export.Service, runs repository.RunRepository, log *slog.Logger, cfg Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.Region == "" {
		cfg.Region = constants.DefaultRegion
	}
	s := &Server{
		proc:     proc,
		exporter: exporter,
		runs:     runs,
		log:      log,
		cfg:      cfg,
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

	r.Get("/health", s.handleHealth)
	r.Get("/api/fields", s.handleFields)
	r.Post("/api/process", s.handleProcess)

	if s.runs != nil {
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{runID}", s.handleGetRun)
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
