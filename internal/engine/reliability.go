package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra"
	"github.com/xela07ax/netpulse/internal/source"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LatencySource: любой источник сырых серий (Postgres, HTTP-коллектор).
type LatencySource interface {
	Fetch(ctx context.Context, req source.Request) (*domain.LatencyQuery, error)
}

// ReliableSource оборачивает источник: лимитер -> предохранитель -> ретраи с таймаутом на попытку.
type ReliableSource struct {
	next           LatencySource
	name           string
	cb             *gobreaker.CircuitBreaker
	limiter        *rate.Limiter
	attempts       uint
	attemptTimeout time.Duration
	metrics        *Metrics
	logger         *zap.Logger
}

func NewReliableSource(next LatencySource, name string, cfg infra.SourceConfig, metrics *Metrics, logger *zap.Logger) *ReliableSource {
	logger = logger.Named("reliability").With(zap.String("source", name))

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "netpulse-" + name,
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если больше N ошибок подряд, открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > cfg.CBFailures
		},
		// Ошибки клиента (кривые даты) не говорят о здоровье источника
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrInvalidRange) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
			logger.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &ReliableSource{
		next:           next,
		name:           name,
		cb:             cb,
		limiter:        rate.NewLimiter(limit, max(cfg.RateBurst, 1)),
		attempts:       attempts,
		attemptTimeout: cfg.AttemptTimeout,
		metrics:        metrics,
		logger:         logger,
	}
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

func (s *ReliableSource) Fetch(ctx context.Context, req source.Request) (*domain.LatencyQuery, error) {
	// 1. Rate Limiter
	if err := s.limiter.Wait(ctx); err != nil {
		s.metrics.ErrorTotal.WithLabelValues("rate_limit").Inc()
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := s.cb.Execute(func() (interface{}, error) {
		var (
			result  *domain.LatencyQuery
			lastErr error
		)

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(s.attempts),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если источник вернул ThrottleError (считал Retry-After заголовок)
				var tErr *source.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка), стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := s.attemptContext(ctx)
			defer cancel()

			q, callErr := s.next.Fetch(tCtx, req)
			if callErr != nil {
				lastErr = callErr
				if errors.Is(callErr, domain.ErrInvalidRange) {
					return retry.Unrecoverable(callErr)
				}
				s.metrics.SourceErrors.WithLabelValues(s.name).Inc()
				s.logger.Debug("source attempt failed", zap.Error(callErr))
				return callErr
			}
			result = q
			return nil
		})

		if retryErr != nil {
			// Наружу отдаем исходную ошибку, а не агрегат ретраев: ее типы важны для API
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, retryErr
		}
		return result, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return nil, err
	}

	return res.(*domain.LatencyQuery), nil
}

func (s *ReliableSource) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.attemptTimeout)
}
