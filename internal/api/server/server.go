package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/netpulse/internal/api/handler"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/engine"
	"github.com/xela07ax/netpulse/internal/infra/auth"
	"go.uber.org/zap"
)

// DashboardServer: HTTP API дашборда задержек.
type DashboardServer struct {
	router *chi.Mux
	logger *zap.Logger

	tokens    auth.TokenValidator    // RS256; при nil Bearer не принимаем
	passwords auth.PasswordVerifier // Basic; при nil Basic не принимаем

	latencyHandler *handler.LatencyHandler
	samplesHandler *handler.SamplesHandler // nil, если прием сэмплов выключен
	health         func(r *http.Request) error
}

type Option func(*DashboardServer)

// WithAuth включает периметр авторизации.
func WithAuth(tokens auth.TokenValidator, passwords auth.PasswordVerifier) Option {
	return func(s *DashboardServer) {
		s.tokens, s.passwords = tokens, passwords
	}
}

// WithSamples регистрирует POST /api/v1/samples.
func WithSamples(h *handler.SamplesHandler) Option {
	return func(s *DashboardServer) { s.samplesHandler = h }
}

// WithHealthCheck: проверка зависимостей для /health (например, ping базы).
func WithHealthCheck(check func(r *http.Request) error) Option {
	return func(s *DashboardServer) { s.health = check }
}

func NewDashboardServer(logger *zap.Logger, latencyH *handler.LatencyHandler, opts ...Option) *DashboardServer {
	s := &DashboardServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("dashboard-api"),
		latencyHandler: latencyH,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *DashboardServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(engine.TracingMiddleware)

	// --- 2. Публичные роуты ---
	r.Get("/health", s.handleHealth)

	// --- 3. Защищенный периметр ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.tokens, s.passwords, s.logger))

		r.Route("/api/v1/latency", func(r chi.Router) {
			r.Use(auth.RequireScope(domain.ScopeLatencyRead))
			r.Get("/", s.latencyHandler.Raw)
			r.Get("/analytics", s.latencyHandler.Analytics)
			r.Post("/analytics", s.latencyHandler.AnalyticsJSON)
		})

		if s.samplesHandler != nil {
			r.With(auth.RequireScope(domain.ScopeSamplesPush)).Post("/api/v1/samples", s.samplesHandler.Push)
		}
	})
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// ServeHTTP позволяет использовать DashboardServer как стандартный http.Handler
func (s *DashboardServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RequestLogger: access-лог запросов через zap вместо middleware.Logger.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
