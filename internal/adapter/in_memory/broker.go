package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
)

// Broker fans committed events out to in-process subscribers such as the
// gRPC event stream. Slow subscribers drop events instead of blocking the
// publisher.
type Broker struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[chan domain.Event]struct{}
}

var _ port.EventPublisher = (*Broker)(nil)

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{
		buffer: buffer,
		subs:   make(map[string]map[chan domain.Event]struct{}),
	}
}

// Subscribe registers for one asset's events; asset "" receives everything.
// The returned cancel func closes the channel.
func (b *Broker) Subscribe(asset string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, b.buffer)
	b.mu.Lock()
	if _, ok := b.subs[asset]; !ok {
		b.subs[asset] = make(map[chan domain.Event]struct{})
	}
	b.subs[asset][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if m, ok := b.subs[asset]; ok {
				delete(m, ch)
				if len(m) == 0 {
					delete(b.subs, asset)
				}
			}
			close(ch)
		})
	}
}

func (b *Broker) Publish(ctx context.Context, events []domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range events {
		b.deliver(b.subs[ev.Asset], ev)
		if ev.Asset != "" {
			b.deliver(b.subs[""], ev)
		}
	}
	return nil
}

func (b *Broker) deliver(subs map[chan domain.Event]struct{}, ev domain.Event) {
	for ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
