package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/ledger"
	"github.com/shopspring/decimal"
)

// party is one side of a settlement: a resting order, or a taker trading
// straight from their balances when order is nil.
type party struct {
	owner string
	order *domain.Order
}

func resting(o *domain.Order) party { return party{owner: o.Owner, order: o} }

func (p party) orderID() string {
	if p.order == nil {
		return ""
	}
	return p.order.ID
}

// Match runs the matching loop for asset on its own. It is a no-op when
// nothing on the book crosses.
func (e *Engine) Match(ctx context.Context, asset string) ([]*domain.Trade, error) {
	if asset == "" {
		return nil, domain.Validation("asset is required")
	}
	s, err := e.mutate(ctx, "match", asset, func(s *session) error {
		return e.match(ctx, s, asset)
	})
	if err != nil {
		return nil, err
	}
	return s.trades, nil
}

// match trades the best bid against the best ask until they no longer cross.
// The execution price is always the sell order's price, whichever order
// arrived last.
func (e *Engine) match(ctx context.Context, s *session, asset string) error {
	for {
		buy, err := s.tx.BestOrder(ctx, asset, domain.Buy)
		if err != nil {
			return fmt.Errorf("load best bid: %w", err)
		}
		sell, err := s.tx.BestOrder(ctx, asset, domain.Sell)
		if err != nil {
			return fmt.Errorf("load best ask: %w", err)
		}
		if buy == nil || sell == nil || !domain.Crosses(buy, sell) {
			return nil
		}
		qty := decimal.Min(buy.Remaining, sell.Remaining)
		if err := e.settle(ctx, s, asset, resting(buy), resting(sell), qty, sell.Price); err != nil {
			return err
		}
	}
}

// settle moves qty of asset from seller to buyer at price and records the
// trade. Resting orders are drawn down and their released collateral is
// reconciled with what was actually paid or delivered, so buy-side price
// improvement and rounding go back to the buyer. A resting buyer never pays
// more than the fill releases from its reserve.
func (e *Engine) settle(ctx context.Context, s *session, asset string, buyer, seller party, qty decimal.Decimal, price int64) error {
	now := e.clock.Now()
	cost := domain.Notional(qty, price)
	var filled []*domain.Order

	if buyer.order != nil {
		released := buyer.order.Fill(qty, now)
		cost = decimal.Min(cost, released)
		if err := s.tx.UpdateOrder(ctx, buyer.order); err != nil {
			return fmt.Errorf("update buy order: %w", err)
		}
		if err := ledger.AdjustCash(ctx, s.tx, buyer.owner, released.Sub(cost)); err != nil {
			return err
		}
		if !buyer.order.IsActive() {
			filled = append(filled, buyer.order)
		}
	} else if err := ledger.DebitCash(ctx, s.tx, buyer.owner, cost); err != nil {
		return err
	}
	if err := ledger.CreditAsset(ctx, s.tx, buyer.owner, asset, qty); err != nil {
		return err
	}

	if seller.order != nil {
		released := seller.order.Fill(qty, now)
		if err := s.tx.UpdateOrder(ctx, seller.order); err != nil {
			return fmt.Errorf("update sell order: %w", err)
		}
		if dust := released.Sub(qty); dust.IsPositive() {
			if err := ledger.CreditAsset(ctx, s.tx, seller.owner, asset, dust); err != nil {
				return err
			}
		}
		if !seller.order.IsActive() {
			filled = append(filled, seller.order)
		}
	} else if err := ledger.DebitAsset(ctx, s.tx, seller.owner, asset, qty); err != nil {
		return err
	}
	if err := ledger.CreditCash(ctx, s.tx, seller.owner, cost); err != nil {
		return err
	}

	if !qty.IsPositive() {
		return nil
	}
	trade := &domain.Trade{
		ID:        uuid.NewString(),
		Asset:     asset,
		BuyOrder:  buyer.orderID(),
		SellOrder: seller.orderID(),
		Buyer:     buyer.owner,
		Seller:    seller.owner,
		Price:     price,
		Quantity:  qty,
		Timestamp: now,
	}
	if err := s.tx.SaveTrade(ctx, trade); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	s.trades = append(s.trades, trade)
	s.emit(domain.TradeEvent(trade))
	for _, o := range filled {
		s.emit(domain.OrderEvent(domain.EventOrderFilled, o, now))
	}
	return nil
}
