package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLimits applies when no LimitsProvider is configured.
var DefaultLimits = domain.Limits{
	MaxOrderNotional: decimal.NewFromInt(1_000_000_000),
	MinQuantity:      domain.Epsilon,
}

// StaticLimits is a LimitsProvider that never changes.
type StaticLimits domain.Limits

func (l StaticLimits) Limits(context.Context) (domain.Limits, error) {
	return domain.Limits(l), nil
}

// Engine implements the exchange: order lifecycle, matching, instant fills
// and quotes. Every mutation on an asset is serialized by a per-asset lock
// held across the whole transaction; events go out after the lock is released.
type Engine struct {
	repo   port.Repository
	cache  port.Cache
	limits port.LimitsProvider
	clock  *MonotonicClock
	pubs   []port.EventPublisher
	log    *zap.Logger
	locks  assetLocks
}

type Option func(*Engine)

func WithLimits(l port.LimitsProvider) Option { return func(e *Engine) { e.limits = l } }
func WithClock(c port.Clock) Option           { return func(e *Engine) { e.clock = NewMonotonicClock(c) } }
func WithLogger(l *zap.Logger) Option         { return func(e *Engine) { e.log = l } }

func WithPublishers(p ...port.EventPublisher) Option {
	return func(e *Engine) { e.pubs = append(e.pubs, p...) }
}

// NewEngine builds an engine over repo. cache may be nil.
func NewEngine(repo port.Repository, cache port.Cache, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		cache:  cache,
		limits: StaticLimits(DefaultLimits),
		clock:  NewMonotonicClock(nil),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// session collects what one serialized mutation produced.
type session struct {
	tx     port.Tx
	trades []*domain.Trade
	events []domain.Event
}

func (s *session) emit(ev ...domain.Event) { s.events = append(s.events, ev...) }

// mutate runs fn under the asset lock inside one transaction, drops the
// cached book before committing and publishes the collected events once the
// lock is gone.
func (e *Engine) mutate(ctx context.Context, op, asset string, fn func(*session) error) (*session, error) {
	unlock, err := e.locks.lock(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := &session{}
	err = withTx(ctx, e.repo, func(tx port.Tx) error {
		if err := tx.LockAsset(ctx, asset); err != nil {
			return fmt.Errorf("lock asset %s: %w", asset, err)
		}
		s.tx = tx
		if err := fn(s); err != nil {
			return err
		}
		e.invalidate(ctx, asset)
		return nil
	})
	unlock()
	if err != nil {
		e.log.Debug("mutation rejected", zap.String("op", op), zap.String("asset", asset), zap.Error(err))
		return nil, err
	}
	e.log.Debug("mutation committed",
		zap.String("op", op),
		zap.String("asset", asset),
		zap.Int("trades", len(s.trades)),
		zap.Int("events", len(s.events)),
	)
	e.publish(ctx, s.events)
	return s, nil
}

func (e *Engine) invalidate(ctx context.Context, asset string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, asset); err != nil {
		e.log.Warn("invalidate orderbook cache", zap.String("asset", asset), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	for _, p := range e.pubs {
		if err := p.Publish(ctx, events); err != nil {
			e.log.Warn("publish events", zap.Int("events", len(events)), zap.Error(err))
		}
	}
}

// validateOrder checks an order-shaped request against the current limits.
func (e *Engine) validateOrder(ctx context.Context, owner, asset string, side domain.Side, qty decimal.Decimal, price int64) error {
	if strings.TrimSpace(owner) == "" {
		return domain.Validation("owner is required")
	}
	if strings.TrimSpace(asset) == "" {
		return domain.Validation("asset is required")
	}
	if !side.Valid() {
		return domain.Validation("unknown side %q", side)
	}
	if price <= 0 {
		return domain.Validation("price must be a positive integer, got %d", price)
	}
	if !qty.IsPositive() {
		return domain.Validation("quantity must be positive, got %s", qty)
	}
	if !qty.Equal(domain.RoundAsset(qty)) {
		return domain.Validation("quantity %s has more than %d decimal places", qty, domain.AssetPlaces)
	}
	if domain.Notional(qty, price).IsZero() {
		return domain.Validation("order value of %s at %d rounds to zero cash", qty, price)
	}
	limits, err := e.limits.Limits(ctx)
	if err != nil {
		return fmt.Errorf("load limits: %w", err)
	}
	if limits.MinQuantity.IsPositive() && qty.LessThan(limits.MinQuantity) {
		return domain.Validation("quantity %s is below the minimum %s", qty, limits.MinQuantity)
	}
	notional := qty.Mul(decimal.NewFromInt(price))
	if limits.MaxOrderNotional.IsPositive() && notional.GreaterThan(limits.MaxOrderNotional) {
		return domain.Validation("order value %s exceeds the limit %s", notional, limits.MaxOrderNotional)
	}
	return nil
}
