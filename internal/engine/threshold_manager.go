package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

// ThresholdStore: часть *redis.Client, нужная менеджеру порога.
type ThresholdStore interface {
	Subscriber
	Get(ctx context.Context, key string) *redis.StringCmd
}

const (
	ThresholdSourceDefault = "default"
	ThresholdSourceRedis   = "redis"
)

// ThresholdManager держит актуальный порог потерь в памяти (L1) и синхронизирует его с Redis.
type ThresholdManager struct {
	mu       sync.RWMutex
	value    float64
	source   string
	fallback float64

	rdb     ThresholdStore
	metrics *Metrics
	logger  *zap.Logger
}

func NewThresholdManager(rdb ThresholdStore, fallback float64, metrics *Metrics, logger *zap.Logger) *ThresholdManager {
	m := &ThresholdManager{
		value:    fallback,
		source:   ThresholdSourceDefault,
		fallback: fallback,
		rdb:      rdb,
		metrics:  metrics,
		logger:   logger.Named("threshold"),
	}
	metrics.LossThreshold.Set(fallback)
	return m
}

// Init загружает текущий порог при старте сервиса. Если ключа нет, работаем на значении из конфига.
func (m *ThresholdManager) Init(ctx context.Context) error {
	raw, err := m.rdb.Get(ctx, infra.RedisKeyLossThreshold).Result()
	if errors.Is(err, redis.Nil) {
		m.store(m.fallback, ThresholdSourceDefault)
		return nil
	}
	if err != nil {
		return fmt.Errorf("threshold: load from redis: %w", err)
	}

	v, err := parseThreshold(raw)
	if err != nil {
		m.logger.Warn("ignoring invalid threshold in redis", zap.String("raw", raw), zap.Error(err))
		m.store(m.fallback, ThresholdSourceDefault)
		return nil
	}
	m.store(v, ThresholdSourceRedis)
	return nil
}

// StartListener подписывается на обновления порога от консоли.
func (m *ThresholdManager) StartListener(ctx context.Context) {
	m.logger.Info("threshold listener started", zap.String("chan", infra.RedisChanThresholdUpdate))
	ListenResilient(ctx, m.rdb, m.logger, infra.RedisChanThresholdUpdate,
		func() error { return m.Init(ctx) },
		m.apply,
	)
}

// apply разбирает сигнал, в payload новое значение порога.
func (m *ThresholdManager) apply(payload string) {
	v, err := parseThreshold(payload)
	if err != nil {
		m.logger.Error("invalid threshold signal", zap.String("payload", payload), zap.Error(err))
		return
	}
	m.store(v, ThresholdSourceRedis)
	m.logger.Info("loss threshold updated", zap.Float64("value", v))
}

func (m *ThresholdManager) store(v float64, source string) {
	m.mu.Lock()
	m.value, m.source = v, source
	m.mu.Unlock()
	m.metrics.LossThreshold.Set(v)
}

// Threshold: текущий порог в процентах.
func (m *ThresholdManager) Threshold() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// Source сообщает, откуда взято значение: "redis" или "default".
func (m *ThresholdManager) Source() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

func parseThreshold(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
	}
	if err := domain.ValidateThreshold(v); err != nil {
		return 0, err
	}
	return v, nil
}

// StaticThreshold: порог без Redis (например, для локального запуска).
type StaticThreshold float64

func (s StaticThreshold) Threshold() float64 { return float64(s) }
