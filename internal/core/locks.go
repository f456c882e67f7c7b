package core

import (
	"context"
	"sync"
)

// assetLocks hands out one mutex per asset. Acquisition honours ctx so a
// caller stuck behind a long match can give up.
type assetLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func (l *assetLocks) lock(ctx context.Context, asset string) (func(), error) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]chan struct{})
	}
	ch, ok := l.m[asset]
	if !ok {
		ch = make(chan struct{}, 1)
		l.m[asset] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
