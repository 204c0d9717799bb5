package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

// ThresholdStore: часть *redis.Client, нужная консоли.
type ThresholdStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type ThresholdService struct {
	rdb      ThresholdStore
	fallback float64
	logger   *zap.Logger
}

func NewThresholdService(rdb ThresholdStore, fallback float64, logger *zap.Logger) *ThresholdService {
	return &ThresholdService{
		rdb:      rdb,
		fallback: fallback,
		logger:   logger.Named("threshold-service"),
	}
}

// Get возвращает порог, который сейчас видят инстансы дашборда.
func (s *ThresholdService) Get(ctx context.Context) (*domain.ThresholdResponse, error) {
	raw, err := s.rdb.Get(ctx, infra.RedisKeyLossThreshold).Result()
	if errors.Is(err, redis.Nil) {
		return &domain.ThresholdResponse{Value: s.fallback, Source: "default"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("threshold read error: %w", err)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || domain.ValidateThreshold(v) != nil {
		s.logger.Warn("invalid threshold stored in redis", zap.String("raw", raw))
		return &domain.ThresholdResponse{Value: s.fallback, Source: "default"}, nil
	}
	return &domain.ThresholdResponse{Value: v, Source: "redis"}, nil
}

// Set: персист в Redis, затем сигнал всем инстансам.
func (s *ThresholdService) Set(ctx context.Context, value float64) error {
	if err := domain.ValidateThreshold(value); err != nil {
		return err
	}
	payload := strconv.FormatFloat(value, 'f', -1, 64)

	// 1. Persistence Layer
	if err := s.rdb.Set(ctx, infra.RedisKeyLossThreshold, payload, 0).Err(); err != nil {
		s.logger.Error("failed to persist threshold", zap.Float64("value", value), zap.Error(err))
		return fmt.Errorf("threshold persist error: %w", err)
	}

	// 2. Real-time Signaling. Если сигнал потерялся, инстансы подтянут ключ при переподключении
	if err := s.rdb.Publish(ctx, infra.RedisChanThresholdUpdate, payload).Err(); err != nil {
		s.logger.Warn("runtime signal delivery failed",
			zap.String("channel", infra.RedisChanThresholdUpdate),
			zap.Error(err))
	} else {
		s.logger.Info("loss threshold updated", zap.Float64("value", value))
	}
	return nil
}
