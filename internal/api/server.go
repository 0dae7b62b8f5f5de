// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"childcare-registration/internal/common/config"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/observability"
	builddashboard "childcare-registration/internal/workers/dashboard/build-dashboard"
	searchapplications "childcare-registration/internal/workers/dashboard/search-applications"
	resumeapplication "childcare-registration/internal/workers/registration/resume-application"
	savedraft "childcare-registration/internal/workers/registration/save-draft"
	submitapplication "childcare-registration/internal/workers/registration/submit-application"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultCookieName = "application_id"
	maxBodyBytes      = 1 << 20
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Deps are the collaborators the HTTP surface dispatches to. Auth, Search,
// Observability and Gatherer are optional.
type Deps struct {
	Config config.HTTPConfig

	Resume    *resumeapplication.Handler
	SaveDraft *savedraft.Handler
	Submit    *submitapplication.Handler
	Dashboard *builddashboard.Handler
	Search    *searchapplications.Handler

	Auth         TokenValidator
	RequiredRole string

	Observability *observability.Observability
	Gatherer      prometheus.Gatherer
	ReadyChecks   map[string]ReadyCheck

	Logger logger.Logger
}

type Server struct {
	deps   Deps
	router chi.Router
	http   *http.Server
	logger logger.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Config.CookieName == "" {
		deps.Config.CookieName = defaultCookieName
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:   deps,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         deps.Config.Address,
		Handler:      s.router,
		ReadTimeout:  config.GetDuration(deps.Config.ReadTimeout),
		WriteTimeout: config.GetDuration(deps.Config.WriteTimeout),
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.deps.Observability))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/register", func(r chi.Router) {
		r.Get("/", s.handleResume)
		r.Post("/", s.handleRegister)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireRole(s.deps.Auth, s.deps.RequiredRole, s.logger))
		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	timeout := config.GetDuration(s.deps.Config.ShutdownTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
