// Package server monta o gateway HTTP: router chi, API administrativa e o
// proxy reverso protegido pelo rate limiter.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"middleware-gateway/internal/config"
	"middleware-gateway/middleware/ratelimit"
	"middleware-gateway/middleware/ratelimit/application"
	"middleware-gateway/middleware/ratelimit/domain"
	"middleware-gateway/middleware/ratelimit/infra"
)

// EventSource é satisfeito por infra.CounterTable.
type EventSource interface {
	Subscribe(buffer int) (<-chan domain.Event, func())
}

// StatsSnapshotter é satisfeito por infra.MemoryStatsStore.
type StatsSnapshotter interface {
	Snapshot() infra.StatsSnapshot
}

// Deps agrupa tudo o que o servidor precisa. Events, StatsView e AdminThrottle
// são opcionais.
type Deps struct {
	Config   *config.Config
	Rules    *domain.RuleSet
	Limiter  domain.Limiter
	Stats    domain.StatsStore
	Upstream http.Handler

	Events        EventSource
	StatsView     StatsSnapshotter
	AdminThrottle *infra.BucketStore

	Clock  func() time.Time
	Logger *zap.Logger
}

type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    *config.Config
	logger *zap.Logger
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(deps.Logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "the requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "the requested method is not allowed for this resource")
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules": deps.Rules.Len()})
	})

	if cfg.Admin.Enabled {
		a := &adminAPI{
			svc:       application.Service{Limiter: deps.Limiter, Clock: deps.Clock},
			rules:     deps.Rules,
			events:    deps.Events,
			statsView: deps.StatsView,
			logger:    deps.Logger,
		}
		r.Route("/admin", func(ar chi.Router) {
			a.mount(ar, cfg.Admin, deps.AdminThrottle)
		})
		deps.Logger.Warn("admin api enabled - keep it off the public internet",
			zap.String("path", "/admin"))
	}

	upstream := deps.Upstream
	if upstream == nil {
		upstream = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			writeError(w, http.StatusBadGateway, "no_upstream", "no upstream configured")
		})
	}

	h := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.AcquireTimeout,
		Logger:         deps.Logger,
	})(upstream)
	if cfg.Limiter.Enabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Limiter:             deps.Limiter,
			Rules:               deps.Rules,
			Stats:               deps.Stats,
			KeyHeader:           cfg.Limiter.KeyHeader,
			TrustXForwardedFor:  cfg.Limiter.TrustXFF,
			JWTSecret:           []byte(cfg.Limiter.JWTSecret),
			AnonymousSubject:    cfg.Limiter.AnonymousSubject,
			RejectStatus:        http.StatusTooManyRequests,
			AddRateLimitHeaders: cfg.Limiter.AddHeaders,
			Clock:               deps.Clock,
			Logger:              deps.Logger,
		})(h)
	}
	r.Handle("/*", h)

	sc := cfg.Server
	return &Server{
		router: r,
		cfg:    cfg,
		logger: deps.Logger,
		server: &http.Server{
			Addr:              sc.Addr,
			Handler:           r,
			ReadHeaderTimeout: sc.ReadHeaderTimeout,
			ReadTimeout:       sc.ReadTimeout,
			WriteTimeout:      sc.WriteTimeout,
			IdleTimeout:       sc.IdleTimeout,
		},
	}
}

// Handler expõe o router (testes e embedding).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start bloqueia até o servidor parar. Retorna http.ErrServerClosed após Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		zap.String("addr", s.server.Addr),
		zap.String("upstream", s.cfg.Upstream.URL))

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
