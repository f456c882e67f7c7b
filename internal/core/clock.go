package core

import (
	"sync"
	"time"

	"github.com/olyamironova/game-exchange/internal/port"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MonotonicClock never returns the same instant twice. Readings are cut to
// microseconds, the precision Postgres keeps, so FIFO order survives a
// round trip through the store.
type MonotonicClock struct {
	mu   sync.Mutex
	src  port.Clock
	last time.Time
}

func NewMonotonicClock(src port.Clock) *MonotonicClock {
	if src == nil {
		src = SystemClock{}
	}
	return &MonotonicClock{src: src}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.src.Now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
