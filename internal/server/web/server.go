// Package web is the HTTP surface: the chi router, the global request
// chain, the route handlers and the centralized error renderer.
package web

import (
	"context"
	"crypto/sha256"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/metrics"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/pipeline"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
}

type CampgroundService interface {
	List(ctx context.Context) ([]*models.Campground, error)
	Get(ctx context.Context, id string) (*models.Campground, error)
	Authorize(ctx context.Context, actor *models.User, id string) (*models.Campground, error)
	Create(ctx context.Context, author *models.User, in services.CampgroundInput, uploads []services.Upload) (*models.Campground, error)
	Update(ctx context.Context, actor *models.User, id string, in services.CampgroundInput, uploads []services.Upload, deleteImages []string) (*models.Campground, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

type ReviewService interface {
	Create(ctx context.Context, author *models.User, campgroundID string, in services.ReviewInput) (*models.Review, error)
	Delete(ctx context.Context, actor *models.User, campgroundID, reviewID string) error
}

// Stages are the global request stages that run, in this order, before
// method override and route dispatch.
type Stages struct {
	Sanitizer pipeline.Stage
	Security  pipeline.Stage
	Session   pipeline.Stage
	Flash     pipeline.Stage
}

type Options struct {
	Address     string
	Production  bool
	CSRFEnabled bool
	SecretKey   string
	MapboxToken string
}

// Server holds the process-scoped collaborators of the HTTP surface.
type Server struct {
	opts        Options
	logger      logging.Logger
	users       UserService
	campgrounds CampgroundService
	reviews     ReviewService
	sessions    *session.Manager
	stages      Stages
	renderer    Renderer
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	ready       func(ctx context.Context) error
}

type Deps struct {
	Logger      logging.Logger
	Users       UserService
	Campgrounds CampgroundService
	Reviews     ReviewService
	Sessions    *session.Manager
	Stages      Stages
	Renderer    Renderer
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	// Ready reports whether backing stores are reachable, for /healthz.
	Ready func(ctx context.Context) error
}

func NewServer(opts Options, d Deps) *Server {
	s := &Server{
		opts:        opts,
		logger:      d.Logger.With("module", "web"),
		users:       d.Users,
		campgrounds: d.Campgrounds,
		reviews:     d.Reviews,
		sessions:    d.Sessions,
		stages:      d.Stages,
		renderer:    d.Renderer,
		metrics:     d.Metrics,
		gatherer:    d.Gatherer,
		ready:       d.Ready,
	}
	if s.stages.Session == nil && d.Sessions != nil {
		s.stages.Session = d.Sessions
	}
	if s.stages.Flash == nil {
		s.stages.Flash = flash.Stage()
	}
	return s
}

// Chain returns the global stages in execution order.
func (s *Server) Chain() *pipeline.Chain {
	var stages []pipeline.Stage
	for _, st := range []pipeline.Stage{s.stages.Sanitizer, s.stages.Security, s.stages.Session, s.stages.Flash} {
		if st != nil {
			stages = append(stages, st)
		}
	}
	stages = append(stages, MethodOverride())
	return pipeline.New(s.fail, stages...)
}

// Router builds the complete handler. Operational endpoints sit outside
// the session chain so that health checks and scrapes do not create sessions.
func (s *Server) Router() http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(s.logRequests)
	root.Use(middleware.Recoverer)
	if s.metrics != nil {
		root.Use(s.metrics.Middleware)
	}

	// security headers still apply
	ops := root.With(s.securityOnly)
	ops.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		ops.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	root.Mount("/", s.site())
	return root
}

func (s *Server) securityOnly(next http.Handler) http.Handler {
	if s.stages.Security == nil {
		return next
	}
	return pipeline.New(s.fail, s.stages.Security).Then(next)
}

func (s *Server) site() http.Handler {
	r := chi.NewRouter()
	r.Use(s.Chain().Middleware)
	if s.opts.CSRFEnabled {
		if !s.opts.Production {
			r.Use(markPlaintext)
		}
		r.Use(s.csrfProtect())
	}

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)

	r.Get("/", s.home)

	r.Get("/register", s.registerForm)
	r.Post("/register", s.register)
	r.Get("/login", s.loginForm)
	r.Post("/login", s.login)
	r.Get("/logout", s.logout)

	if !s.opts.Production {
		r.Get("/fakeUser", s.fakeUser)
	}

	r.Route("/campgrounds", func(r chi.Router) {
		r.Get("/", s.listCampgrounds)
		r.With(s.requireLogin).Get("/new", s.newCampground)
		r.With(s.requireLogin).Post("/", s.createCampground)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.showCampground)
			r.With(s.requireLogin).Get("/edit", s.editCampground)
			r.With(s.requireLogin).Put("/", s.updateCampground)
			r.With(s.requireLogin).Patch("/", s.updateCampground)
			r.With(s.requireLogin).Delete("/", s.deleteCampground)

			r.With(s.requireLogin).Post("/reviews", s.createReview)
			r.With(s.requireLogin).Delete("/reviews/{reviewId}", s.deleteReview)
		})
	})

	return r
}

func (s *Server) csrfProtect() func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte(s.opts.SecretKey))
	return csrf.Protect(key[:],
		csrf.Secure(s.opts.Production),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.FieldName(csrfField),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	)
}

func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
