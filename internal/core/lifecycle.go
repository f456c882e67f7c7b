package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/ledger"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	Owner    string
	Asset    string
	Side     domain.Side
	Quantity decimal.Decimal
	Price    int64
}

// Execution is the outcome of a placement: the order as it stands after
// matching and the trades the placement caused.
type Execution struct {
	Order  *domain.Order
	Trades []*domain.Trade
}

// PlaceOrder reserves the order's collateral, rests it on the book and runs
// matching, all in one serialized transaction.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Execution, error) {
	if err := e.validateOrder(ctx, req.Owner, req.Asset, req.Side, req.Quantity, req.Price); err != nil {
		return nil, err
	}
	var placed *domain.Order
	s, err := e.mutate(ctx, "place order", req.Asset, func(s *session) error {
		now := e.clock.Now()
		o := &domain.Order{
			ID:        uuid.NewString(),
			Owner:     req.Owner,
			Asset:     req.Asset,
			Side:      req.Side,
			Price:     req.Price,
			Quantity:  req.Quantity,
			Remaining: req.Quantity,
			Reserved:  req.Side.Reserve(req.Quantity, req.Price),
			Status:    domain.Active,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.reserve(ctx, s.tx, o); err != nil {
			return err
		}
		if err := s.tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		s.emit(domain.OrderEvent(domain.EventOrderPlaced, o, now))

		if err := e.match(ctx, s, o.Asset); err != nil {
			return err
		}
		final, err := s.tx.LoadOrderForUpdate(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		placed = final
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Execution{Order: placed, Trades: s.trades}, nil
}

// reserve moves the order's collateral out of the spendable balance. Cash
// debits never fail on their own, so buys check the balance first.
func (e *Engine) reserve(ctx context.Context, tx port.Tx, o *domain.Order) error {
	if o.Side == domain.Sell {
		return ledger.DebitAsset(ctx, tx, o.Owner, o.Asset, o.Reserved)
	}
	acct, err := tx.LoadAccountForUpdate(ctx, o.Owner)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.Cash.LessThan(o.Reserved) {
		return domain.InsufficientFunds("cash", o.Reserved, acct.Cash)
	}
	return ledger.DebitCash(ctx, tx, o.Owner, o.Reserved)
}

// release returns collateral to the order's owner.
func (e *Engine) release(ctx context.Context, tx port.Tx, o *domain.Order, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if o.Side == domain.Sell {
		return ledger.CreditAsset(ctx, tx, o.Owner, o.Asset, amount)
	}
	return ledger.CreditCash(ctx, tx, o.Owner, amount)
}

// CancelOrder refunds what the order still holds and closes it. Unknown,
// foreign and already closed orders all report NotFound.
func (e *Engine) CancelOrder(ctx context.Context, owner, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(orderID) == "" {
		return nil, domain.Validation("owner and order id are required")
	}
	existing, err := e.repo.LoadOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, noActiveOrder(orderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if existing.Owner != owner {
		return nil, noActiveOrder(orderID)
	}

	var cancelled *domain.Order
	_, err = e.mutate(ctx, "cancel order", existing.Asset, func(s *session) error {
		o, err := s.tx.LoadOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Owner != owner || !o.IsActive() {
			return noActiveOrder(orderID)
		}
		now := e.clock.Now()
		refund := o.Reserved
		o.Reserved = decimal.Zero
		o.Status = domain.Cancelled
		o.UpdatedAt = now
		if err := e.release(ctx, s.tx, o, refund); err != nil {
			return err
		}
		if err := s.tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		s.emit(domain.OrderEvent(domain.EventOrderCancelled, o, now))
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func noActiveOrder(orderID string) error {
	return domain.NotFound("no active order %s", orderID)
}
