// Package server exposes the form engine over HTTP. It is stateless: every
// request carries the form it works on.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/gofhir/forms"
	"github.com/gofhir/forms/pkg/logger"
)

// Defaults used when no option overrides them.
const (
	DefaultBodyLimit       = "2M"
	DefaultShutdownTimeout = 10 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithBodyLimit caps request bodies, e.g. "2M".
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if limit != "" {
			s.bodyLimit = limit
		}
	}
}

// WithShutdownTimeout bounds the graceful shutdown in Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server is the HTTP facade over one Engine.
type Server struct {
	echo   *echo.Echo
	engine *forms.Engine
	log    *logger.Logger

	bodyLimit       string
	shutdownTimeout time.Duration
}

// New builds a server with its routes and middleware.
func New(engine *forms.Engine, log *logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Default()
	}
	s := &Server{
		echo:            echo.New(),
		engine:          engine,
		log:             log,
		bodyLimit:       DefaultBodyLimit,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	zl := log.Zerolog()
	e.Use(Recovery(zl))
	e.Use(echomw.RequestID())
	e.Use(Logger(zl))
	e.Use(echomw.BodyLimit(s.bodyLimit))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", s.health)

	v1 := e.Group("/v1")
	v1.GET("/metrics", s.metrics)
	v1.POST("/forms/$to-questionnaire", s.toQuestionnaire)
	v1.POST("/questionnaires/$to-form", s.toForm)
	v1.POST("/forms/$validate", s.validate)
	v1.POST("/forms/$validate-batch", s.validateBatch)
	v1.POST("/forms/$visibility", s.visibility)
	v1.POST("/forms/$lint", s.lint)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
