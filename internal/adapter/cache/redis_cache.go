package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Cache = (*RedisCache)(nil)

// RedisCache keeps one JSON orderbook snapshot per asset under prefix+asset.
// Entries expire after ttl; zero keeps them until invalidated.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RedisCache) key(asset string) string { return c.prefix + asset }

func (c *RedisCache) SetOrderbook(ctx context.Context, asset string, ob *domain.OrderbookSnapshot) error {
	b, err := json.Marshal(ob)
	if err != nil {
		return fmt.Errorf("encode orderbook %s: %w", asset, err)
	}
	return c.client.Set(ctx, c.key(asset), b, c.ttl).Err()
}

// GetOrderbook reports a miss as (nil, nil). An entry that no longer
// decodes is dropped and also reported as a miss.
func (c *RedisCache) GetOrderbook(ctx context.Context, asset string) (*domain.OrderbookSnapshot, error) {
	b, err := c.client.Get(ctx, c.key(asset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ob domain.OrderbookSnapshot
	if err := json.Unmarshal(b, &ob); err != nil || ob.Asset != asset {
		if err := c.Invalidate(ctx, asset); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &ob, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, asset string) error {
	return c.client.Del(ctx, c.key(asset)).Err()
}
