package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/netpulse/internal/domain"
)

// redisPublisherClient: часть *redis.Client, которая нужна паблишеру.
type redisPublisherClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher шлет алерты JSON-сообщением в Pub/Sub канал.
type RedisPublisher struct {
	rdb     redisPublisherClient
	channel string
}

func NewRedisPublisher(rdb redisPublisherClient, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, a domain.LossAlert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("alert: marshal: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("alert: redis publish to %s: %w", p.channel, err)
	}
	return nil
}

// Close ничего не делает: клиентом Redis владеет main.
func (p *RedisPublisher) Close() error { return nil }
