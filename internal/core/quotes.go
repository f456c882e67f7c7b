package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"go.uber.org/zap"
)

// GetOrderBook returns the aggregated book for asset. A cached snapshot is
// served when present; otherwise the book is read under the asset lock, so
// it never mixes states from before and after a mutation. The snapshot is
// cached before the transaction ends: a writer on another replica can only
// take the asset lock afterwards, and it drops the entry before it commits.
func (e *Engine) GetOrderBook(ctx context.Context, asset string) (*domain.OrderbookSnapshot, error) {
	if asset == "" {
		return nil, domain.Validation("asset is required")
	}
	if e.cache != nil {
		ob, err := e.cache.GetOrderbook(ctx, asset)
		if err != nil {
			e.log.Debug("orderbook cache miss", zap.String("asset", asset), zap.Error(err))
		} else if ob != nil {
			return ob, nil
		}
	}

	unlock, err := e.locks.lock(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("orderbook: %w", err)
	}
	defer unlock()

	var snap *domain.OrderbookSnapshot
	err = withTx(ctx, e.repo, func(tx port.Tx) error {
		if err := tx.LockAsset(ctx, asset); err != nil {
			return fmt.Errorf("lock asset %s: %w", asset, err)
		}
		orders, err := tx.LoadActiveOrders(ctx, asset)
		if err != nil {
			return fmt.Errorf("load active orders: %w", err)
		}
		snap = Aggregate(asset, orders, e.clock.Now())
		if e.cache != nil {
			if err := e.cache.SetOrderbook(ctx, asset, snap); err != nil {
				e.log.Warn("store orderbook in cache", zap.String("asset", asset), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Aggregate groups active orders into price levels: asks ascending, bids
// descending, with summed remaining quantity and order count per level.
func Aggregate(asset string, orders []*domain.Order, at time.Time) *domain.OrderbookSnapshot {
	levels := map[domain.Side]map[int64]*domain.PriceLevel{
		domain.Buy:  {},
		domain.Sell: {},
	}
	for _, o := range orders {
		if !o.IsActive() || o.Asset != asset {
			continue
		}
		byPrice := levels[o.Side]
		lvl, ok := byPrice[o.Price]
		if !ok {
			lvl = &domain.PriceLevel{Price: o.Price}
			byPrice[o.Price] = lvl
		}
		lvl.Quantity = lvl.Quantity.Add(o.Remaining)
		lvl.Orders++
	}

	snap := &domain.OrderbookSnapshot{
		Asset:     asset,
		Bids:      flatten(levels[domain.Buy]),
		Asks:      flatten(levels[domain.Sell]),
		Timestamp: at,
	}
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })
	return snap
}

func flatten(m map[int64]*domain.PriceLevel) []domain.PriceLevel {
	res := make([]domain.PriceLevel, 0, len(m))
	for _, lvl := range m {
		res = append(res, *lvl)
	}
	return res
}
