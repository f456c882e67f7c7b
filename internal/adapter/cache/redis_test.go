package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// redisClient connects to EXCHANGE_TEST_REDIS_ADDR; tests skip without it.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("EXCHANGE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EXCHANGE_TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, "", 0)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCacheMissAndInvalidate(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	c := NewRedisCache(client, "test:ob:", time.Minute)
	asset := "test-" + time.Now().Format("150405.000000")

	if ob, err := c.GetOrderbook(ctx, asset); ob != nil || err != nil {
		t.Fatalf("miss = %v, %v", ob, err)
	}
	snap := &domain.OrderbookSnapshot{
		Asset: asset,
		Asks:  []domain.PriceLevel{{Price: 12, Quantity: decimal.RequireFromString("1.5"), Orders: 2}},
	}
	if err := c.SetOrderbook(ctx, asset, snap); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.GetOrderbook(ctx, asset)
	if err != nil || got == nil || len(got.Asks) != 1 || !got.Asks[0].Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if err := c.Invalidate(ctx, asset); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if ob, _ := c.GetOrderbook(ctx, asset); ob != nil {
		t.Fatal("snapshot survived invalidation")
	}
}

func TestRedisCacheDropsUndecodableEntries(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	c := NewRedisCache(client, "test:ob:", time.Minute)
	asset := "bad-" + time.Now().Format("150405.000000")

	if err := client.Set(ctx, "test:ob:"+asset, "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if ob, err := c.GetOrderbook(ctx, asset); ob != nil || err != nil {
		t.Fatalf("get = %v, %v, want a miss", ob, err)
	}
	if n, err := client.Exists(ctx, "test:ob:"+asset).Result(); err != nil || n != 0 {
		t.Fatalf("entry still present: %d, %v", n, err)
	}
}

func TestRedisPublisherChannels(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	p := NewRedisPublisher(client, "exchange:test:")

	sub := client.Subscribe(ctx, p.Channel("GEM"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev := domain.Event{Type: domain.EventOrderPlaced, Asset: "GEM", Owner: "alice", Timestamp: time.Now()}
	if err := p.Publish(ctx, []domain.Event{ev}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != domain.EventOrderPlaced || got.Owner != "alice" {
		t.Fatalf("got %+v", got)
	}
}
