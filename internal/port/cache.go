package port

import (
	"context"

	"github.com/olyamironova/game-exchange/internal/domain"
)

// Cache holds order book snapshots. A miss is (nil, nil).
type Cache interface {
	SetOrderbook(ctx context.Context, asset string, ob *domain.OrderbookSnapshot) error
	GetOrderbook(ctx context.Context, asset string) (*domain.OrderbookSnapshot, error)
	Invalidate(ctx context.Context, asset string) error
}
