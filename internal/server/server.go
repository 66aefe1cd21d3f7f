// Package server exposes the HTTP API: resume and credential management,
// the streaming enhance endpoint, and health.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/groundupcareers/resume-enhancer/internal/auth"
	"github.com/groundupcareers/resume-enhancer/internal/crypto"
	"github.com/groundupcareers/resume-enhancer/internal/enhance"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

const requestTimeout = 30 * time.Second

type Server struct {
	Router *chi.Mux
	Port   int

	logger       *slog.Logger
	store        storage.Store
	orchestrator *enhance.Orchestrator
	codec        *crypto.Codec
	validate     *validator.Validate

	httpServer *http.Server
}

func New(port int, logger *slog.Logger, store storage.Store, orchestrator *enhance.Orchestrator, verifier *auth.Verifier, codec *crypto.Codec) *Server {
	s := &Server{
		Port:         port,
		logger:       logger,
		store:        store,
		orchestrator: orchestrator,
		codec:        codec,
		validate:     validator.New(),
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "resume-enhancer")
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(verifier))

		// The enhance stream outlives the request timeout, so it is
		// mounted outside TimeoutMiddleware. Its upstream call is
		// bounded by the orchestrator's own deadline.
		r.Post("/resumes/{id}/enhance", s.handleEnhance)

		r.Group(func(r chi.Router) {
			r.Use(TimeoutMiddleware(requestTimeout))

			r.Get("/resumes", s.handleListResumes)
			r.Post("/resumes", s.handleCreateResume)
			r.Get("/resumes/{id}", s.handleGetResume)

			r.Get("/keys", s.handleListKeys)
			r.Post("/keys", s.handleCreateKey)
			r.Delete("/keys/{id}", s.handleDeleteKey)

			r.Get("/enhancements/{id}", s.handleGetEnhancement)
		})
	})

	s.Router = r
	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
