package core

import (
	"context"
	"fmt"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

// TakeRequest consumes one displayed price level directly.
type TakeRequest struct {
	Taker    string
	Asset    string
	Price    int64
	Quantity decimal.Decimal
}

// TakeAsks buys Quantity from the sell orders resting at exactly Price,
// oldest first. It fails without touching any balance when the level is
// too thin or the taker cannot pay.
func (e *Engine) TakeAsks(ctx context.Context, req TakeRequest) ([]*domain.Trade, error) {
	return e.take(ctx, req, domain.Sell)
}

// TakeBids sells Quantity into the buy orders resting at exactly Price.
func (e *Engine) TakeBids(ctx context.Context, req TakeRequest) ([]*domain.Trade, error) {
	return e.take(ctx, req, domain.Buy)
}

func (e *Engine) take(ctx context.Context, req TakeRequest, side domain.Side) ([]*domain.Trade, error) {
	if err := e.validateOrder(ctx, req.Taker, req.Asset, side.Opposite(), req.Quantity, req.Price); err != nil {
		return nil, err
	}
	op := "take asks"
	if side == domain.Buy {
		op = "take bids"
	}
	s, err := e.mutate(ctx, op, req.Asset, func(s *session) error {
		fills, err := planTake(ctx, s.tx, req, side)
		if err != nil {
			return err
		}
		if err := checkTakerFunds(ctx, s.tx, req, side, fills); err != nil {
			return err
		}
		taker := party{owner: req.Taker}
		for _, f := range fills {
			if side == domain.Sell {
				err = e.settle(ctx, s, req.Asset, taker, resting(f.order), f.qty, req.Price)
			} else {
				err = e.settle(ctx, s, req.Asset, resting(f.order), taker, f.qty, req.Price)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.trades, nil
}

type takeFill struct {
	order *domain.Order
	qty   decimal.Decimal
}

// planTake walks the level oldest first against each order's live row and
// decides how much every touched order gives up. It fails with
// InsufficientLiquidity when the level cannot cover the request.
func planTake(ctx context.Context, tx port.Tx, req TakeRequest, side domain.Side) ([]takeFill, error) {
	level, err := tx.LoadActiveAtPrice(ctx, req.Asset, side, req.Price)
	if err != nil {
		return nil, fmt.Errorf("load price level: %w", err)
	}
	var fills []takeFill
	left := req.Quantity
	for _, listed := range level {
		if !left.IsPositive() {
			break
		}
		o, err := tx.LoadOrderForUpdate(ctx, listed.ID)
		if err != nil {
			return nil, fmt.Errorf("reload order %s: %w", listed.ID, err)
		}
		if !o.IsActive() || o.Price != req.Price || !o.Remaining.IsPositive() {
			continue
		}
		qty := decimal.Min(left, o.Remaining)
		fills = append(fills, takeFill{order: o, qty: qty})
		left = left.Sub(qty)
	}
	if left.IsPositive() {
		return nil, domain.InsufficientLiquidity(req.Price, req.Quantity, req.Quantity.Sub(left))
	}
	return fills, nil
}

// checkTakerFunds makes sure the taker can cover the whole request before
// anything moves: the per-order cash costs summed when lifting asks, the
// asset when hitting bids.
func checkTakerFunds(ctx context.Context, tx port.Tx, req TakeRequest, side domain.Side, fills []takeFill) error {
	acct, err := tx.LoadAccountForUpdate(ctx, req.Taker)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if side == domain.Sell {
		cost := decimal.Zero
		for _, f := range fills {
			cost = cost.Add(domain.Notional(f.qty, req.Price))
		}
		if acct.Cash.LessThan(cost) {
			return domain.InsufficientFunds("cash", cost, acct.Cash)
		}
		return nil
	}
	if held := acct.Asset(req.Asset); held.LessThan(req.Quantity) {
		return domain.InsufficientFunds(req.Asset, req.Quantity, held)
	}
	return nil
}
