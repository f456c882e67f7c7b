package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
)

type storeTx struct {
	tx *sql.Tx
}

var _ port.Tx = (*storeTx)(nil)

// LockAsset is a no-op: the store's only connection already belongs to
// this transaction.
func (t *storeTx) LockAsset(ctx context.Context, asset string) error {
	return ctx.Err()
}

func (t *storeTx) LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error) {
	return loadAccount(ctx, t.tx, owner)
}

func (t *storeTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (owner, cash, cash_debt, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (owner) DO UPDATE SET
		   cash = excluded.cash,
		   cash_debt = excluded.cash_debt,
		   updated_at = excluded.updated_at`,
		a.Owner, a.Cash.String(), a.CashDebt.String(), toNanos(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	for asset, qty := range a.Assets {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO holdings (owner, asset, quantity)
			 VALUES (?, ?, ?)
			 ON CONFLICT (owner, asset) DO UPDATE SET quantity = excluded.quantity`,
			a.Owner, asset, qty.String(),
		)
		if err != nil {
			return fmt.Errorf("save holding %s: %w", asset, err)
		}
	}
	return nil
}

func (t *storeTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (id, owner, asset, side, price, quantity, remaining, reserved, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Owner, o.Asset, string(o.Side), o.Price,
		o.Quantity.String(), o.Remaining.String(), o.Reserved.String(),
		string(o.Status), toNanos(o.CreatedAt), toNanos(o.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("order %s already exists", o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *storeTx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET remaining = ?, reserved = ?, status = ?, updated_at = ? WHERE id = ?`,
		o.Remaining.String(), o.Reserved.String(), string(o.Status), toNanos(o.UpdatedAt), o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFound("order %s not found", o.ID)
	}
	return nil
}

func (t *storeTx) LoadOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, t.tx, orderID)
}

func (t *storeTx) BestOrder(ctx context.Context, asset string, side domain.Side) (*domain.Order, error) {
	dir := "ASC"
	if side == domain.Buy {
		dir = "DESC"
	}
	orders, err := queryOrders(ctx, t.tx,
		orderColumns+` FROM orders
		 WHERE asset = ? AND side = ? AND status = 'active'
		 ORDER BY price `+dir+`, created_at ASC, id ASC
		 LIMIT 1`,
		asset, string(side),
	)
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return orders[0], nil
}

func (t *storeTx) LoadActiveAtPrice(ctx context.Context, asset string, side domain.Side, price int64) ([]*domain.Order, error) {
	return queryOrders(ctx, t.tx,
		orderColumns+` FROM orders
		 WHERE asset = ? AND side = ? AND price = ? AND status = 'active'
		 ORDER BY created_at ASC, id ASC`,
		asset, string(side), price,
	)
}

func (t *storeTx) LoadActiveOrders(ctx context.Context, asset string) ([]*domain.Order, error) {
	return queryOrders(ctx, t.tx,
		orderColumns+` FROM orders WHERE asset = ? AND status = 'active' ORDER BY created_at ASC, id ASC`,
		asset,
	)
}

func (t *storeTx) SaveTrade(ctx context.Context, tr *domain.Trade) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO trades (id, asset, buy_order, sell_order, buyer, seller, price, quantity, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.Asset, tr.BuyOrder, tr.SellOrder, tr.Buyer, tr.Seller, tr.Price,
		tr.Quantity.String(), toNanos(tr.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

func (t *storeTx) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

func (t *storeTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}
