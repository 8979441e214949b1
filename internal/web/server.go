package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"stolik/internal/config"
	"stolik/internal/form"
	"stolik/internal/site"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server serves the landing page, its static assets and the small JSON API
// the page uses for blur validation and submits.
type Server struct {
	cfg     *config.Config
	content *site.Content
	form    *form.Controller
	tmpl    *template.Template
	server  *http.Server
	limiter *rateLimiter
	logger  zerolog.Logger
}

func NewServer(cfg *config.Config, content *site.Content, controller *form.Controller, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseGlob(filepath.Join(cfg.Site.TemplatesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		content: content,
		form:    controller,
		tmpl:    tmpl,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}

	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.sessionMiddleware, s.rateLimitMiddleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/reserve", s.handleReserve).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/validate", s.handleValidateField).Methods(http.MethodPost)
	api.HandleFunc("/menu", s.handleMenu).Methods(http.MethodGet)

	if cfg.Site.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.Site.StaticDir))
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	return s, nil
}

// Handler exposes the root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("web server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
