package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "netpulse"
)

// Ключи (состояние)
const (
	RedisKeyLossThreshold       = RedisNamespace + ":analytics:loss_threshold"
	RedisKeyLockWarmupThreshold = RedisNamespace + ":lock:warmup:threshold"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanThresholdUpdate: новое значение порога от консоли.
	RedisChanThresholdUpdate = RedisNamespace + ":analytics:threshold-update"
	// RedisChanLossAlerts: события об интервалах аномальных потерь.
	RedisChanLossAlerts = RedisNamespace + ":alerts:loss"
)

// GetWarmupLockKey Генератор ключей для блокировок (если нужны динамические)
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
