package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.EventPublisher = (*RedisPublisher)(nil)

// RedisPublisher pushes events onto pub/sub channels named prefix+asset,
// where the chat bots pick them up.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Channel(asset string) string { return p.prefix + asset }

func (p *RedisPublisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Type, err)
		}
		pipe.Publish(ctx, p.Channel(ev.Asset), b)
	}
	_, err := pipe.Exec(ctx)
	return err
}
