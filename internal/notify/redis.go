package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publica cada evento como JSON num canal pub/sub.
type RedisPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisPublisher(client redisPublisher, channel string) *RedisPublisher {
	if client == nil || channel == "" {
		return nil
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Notify(ctx context.Context, events []Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}
