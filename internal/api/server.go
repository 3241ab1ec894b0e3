package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"smartdocs/internal/config"
	"smartdocs/internal/pipeline"
)

// Ingestor is the pipeline surface the handlers need.
type Ingestor interface {
	Ingest(ctx context.Context, files []pipeline.File) (pipeline.Result, error)
	Query(ctx context.Context, question string, k int) (pipeline.QueryResult, error)
	Count(ctx context.Context) (int, error)
}

// Answerer generates prose from a question and its retrieved context.
type Answerer interface {
	Answer(ctx context.Context, question string, citations []pipeline.Citation) (string, error)
}

// Server is the HTTP API for smartdocs.
type Server struct {
	router   chi.Router
	pipeline Ingestor
	answerer Answerer
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(p Ingestor, a Answerer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipeline: p,
		answerer: a,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/chat", s.handleChat)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/eval", s.handleEval)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
