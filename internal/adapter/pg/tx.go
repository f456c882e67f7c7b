package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
)

type pgTx struct {
	tx pgx.Tx
}

var _ port.Tx = (*pgTx)(nil)

// LockAsset takes a transaction-scoped advisory lock, so every process
// sharing the database serializes on the same asset.
func (t *pgTx) LockAsset(ctx context.Context, asset string) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "asset:"+asset); err != nil {
		return fmt.Errorf("pg: advisory lock: %w", err)
	}
	return nil
}

// LoadAccountForUpdate makes sure the account row exists before locking it,
// so two transactions creating the same account queue up instead of racing.
func (t *pgTx) LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error) {
	if _, err := t.tx.Exec(ctx, `INSERT INTO accounts (owner) VALUES ($1) ON CONFLICT (owner) DO NOTHING`, owner); err != nil {
		return nil, fmt.Errorf("pg: create account: %w", err)
	}
	return loadAccount(ctx, t.tx, owner, " FOR UPDATE")
}

func (t *pgTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO accounts (owner, cash, cash_debt, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (owner) DO UPDATE SET
  cash = EXCLUDED.cash,
  cash_debt = EXCLUDED.cash_debt,
  updated_at = EXCLUDED.updated_at
`, a.Owner, a.Cash.String(), a.CashDebt.String())
	if err != nil {
		return fmt.Errorf("pg: save account: %w", err)
	}
	for asset, qty := range a.Assets {
		_, err := t.tx.Exec(ctx, `
INSERT INTO holdings (owner, asset, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (owner, asset) DO UPDATE SET quantity = EXCLUDED.quantity
`, a.Owner, asset, qty.String())
		if err != nil {
			return fmt.Errorf("pg: save holding %s: %w", asset, err)
		}
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO orders (id, owner, asset, side, price, quantity, remaining, reserved, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, o.ID, o.Owner, o.Asset, string(o.Side), o.Price,
		o.Quantity.String(), o.Remaining.String(), o.Reserved.String(),
		string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pg: insert order: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE orders
SET remaining = $1, reserved = $2, status = $3, updated_at = $4
WHERE id = $5
`, o.Remaining.String(), o.Reserved.String(), string(o.Status), o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("pg: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order %s not found", o.ID)
	}
	return nil
}

func (t *pgTx) LoadOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, t.tx, orderID, " FOR UPDATE")
}

func (t *pgTx) BestOrder(ctx context.Context, asset string, side domain.Side) (*domain.Order, error) {
	dir := "ASC"
	if side == domain.Buy {
		dir = "DESC"
	}
	rows, err := t.tx.Query(ctx, orderColumns+`
FROM orders
WHERE asset = $1 AND side = $2 AND status = 'active'
ORDER BY price `+dir+`, created_at ASC, id ASC
LIMIT 1
FOR UPDATE`, asset, string(side))
	if err != nil {
		return nil, fmt.Errorf("pg: best order: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return orders[0], nil
}

func (t *pgTx) LoadActiveAtPrice(ctx context.Context, asset string, side domain.Side, price int64) ([]*domain.Order, error) {
	rows, err := t.tx.Query(ctx, orderColumns+`
FROM orders
WHERE asset = $1 AND side = $2 AND price = $3 AND status = 'active'
ORDER BY created_at ASC, id ASC
FOR UPDATE`, asset, string(side), price)
	if err != nil {
		return nil, fmt.Errorf("pg: load price level: %w", err)
	}
	return scanOrders(rows)
}

func (t *pgTx) LoadActiveOrders(ctx context.Context, asset string) ([]*domain.Order, error) {
	rows, err := t.tx.Query(ctx, orderColumns+`
FROM orders
WHERE asset = $1 AND status = 'active'
ORDER BY created_at ASC, id ASC`, asset)
	if err != nil {
		return nil, fmt.Errorf("pg: load active orders: %w", err)
	}
	return scanOrders(rows)
}

func (t *pgTx) SaveTrade(ctx context.Context, tr *domain.Trade) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO trades (id, asset, buy_order, sell_order, buyer, seller, price, quantity, executed_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)
`, tr.ID, tr.Asset, tr.BuyOrder, tr.SellOrder, tr.Buyer, tr.Seller, tr.Price, tr.Quantity.String(), tr.Timestamp)
	if err != nil {
		return fmt.Errorf("pg: save trade: %w", err)
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// Truncate empties every table. Meant for tests and local resets.
func Truncate(ctx context.Context, tx port.Tx) error {
	t, ok := tx.(*pgTx)
	if !ok {
		return fmt.Errorf("pg: foreign transaction %T", tx)
	}
	_, err := t.tx.Exec(ctx, `TRUNCATE trades, orders, holdings, accounts`)
	return err
}
