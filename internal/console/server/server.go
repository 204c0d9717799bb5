package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiserver "github.com/xela07ax/netpulse/internal/api/server"
	"github.com/xela07ax/netpulse/internal/console/handler"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra/auth"
	"go.uber.org/zap"
)

// ConsoleServer (control plane): выпуск токенов и администрирование порога потерь.
type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Интерфейс для проверки токенов (RS256)
	authValidator auth.TokenValidator

	// Обработчики
	authHandler      *handler.AuthHandler      // /auth/token
	thresholdHandler *handler.ThresholdHandler // /v1/threshold
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	thresholdH *handler.ThresholdHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:           chi.NewRouter(),
		logger:           logger.Named("console-api"),
		authValidator:    validator,
		authHandler:      authH,
		thresholdHandler: thresholdH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiserver.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, nil, s.logger))

		r.Route("/v1/threshold", func(r chi.Router) {
			r.Get("/", s.thresholdHandler.Get)
			r.With(auth.RequireScope(domain.ScopeAdmin)).Put("/", s.thresholdHandler.Update)
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
