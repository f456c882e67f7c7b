package port

import (
	"context"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
)

// EventPublisher hands committed domain events to whoever notifies users.
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

type Clock interface {
	Now() time.Time
}

// LimitsProvider exposes the current order limits; admins may change them
// at runtime.
type LimitsProvider interface {
	Limits(ctx context.Context) (domain.Limits, error)
}
