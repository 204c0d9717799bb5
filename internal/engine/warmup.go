package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

// WarmupStore: часть *redis.Client для прогрева.
type WarmupStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// WarmupThreshold засевает порог потерь в Redis значением из конфига, если ключа еще нет.
// Возвращает true, если запись произошла.
func WarmupThreshold(ctx context.Context, rdb WarmupStore, logger *zap.Logger, value float64) (bool, error) {
	// 1. Распределенная блокировка (SetNX), чтобы только один инстанс обновлял Redis
	ok, err := rdb.SetNX(ctx, infra.RedisKeyLockWarmupThreshold, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return false, nil // Либо ошибка сети, либо другой уже греет кэш
	}

	// 2. Проверка наполненности Redis
	n, err := rdb.Exists(ctx, infra.RedisKeyLossThreshold).Result()
	if err != nil {
		n = 0
		logger.Warn("could not check threshold key, proceeding with warm-up",
			zap.String("key", infra.RedisKeyLossThreshold), zap.Error(err))
	}
	if n > 0 {
		return false, nil
	}

	// 3. Ключа нет, засеваем из конфига
	logger.Info("threshold key is empty, performing warm-up from config",
		zap.String("key", infra.RedisKeyLossThreshold), zap.Float64("value", value))

	if err := rdb.Set(ctx, infra.RedisKeyLossThreshold, strconv.FormatFloat(value, 'f', -1, 64), 0).Err(); err != nil {
		return false, err
	}
	return true, nil
}
