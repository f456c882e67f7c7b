package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
)

// Cache is the process-local order book cache used when Redis is not configured.
type Cache struct {
	mu    sync.Mutex
	store map[string]*domain.OrderbookSnapshot
}

var _ port.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{store: make(map[string]*domain.OrderbookSnapshot)}
}

func (c *Cache) SetOrderbook(ctx context.Context, asset string, ob *domain.OrderbookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[asset] = ob.DeepCopy()
	return nil
}

func (c *Cache) GetOrderbook(ctx context.Context, asset string) (*domain.OrderbookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ob, ok := c.store[asset]
	if !ok {
		return nil, nil
	}
	return ob.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context, asset string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, asset)
	return nil
}
