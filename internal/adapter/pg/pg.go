package pg

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

var _ port.Repository = (*PgRepo)(nil)

type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finish to work with database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they are missing.
func (p *PgRepo) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pg: apply schema: %w", err)
	}
	return nil
}

func (p *PgRepo) Close(ctx context.Context) {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PgRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (p *PgRepo) GetAccount(ctx context.Context, owner string) (*domain.Account, error) {
	return loadAccount(ctx, p.pool, owner, "")
}

func (p *PgRepo) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, p.pool, orderID, "")
}

func (p *PgRepo) ListActiveOrders(ctx context.Context, filter port.OrderFilter) ([]*domain.Order, error) {
	var (
		where = []string{"status = 'active'"}
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("owner", filter.Owner)
	add("asset", filter.Asset)
	add("side", string(filter.Side))

	rows, err := p.pool.Query(ctx, orderColumns+`
FROM orders
WHERE `+strings.Join(where, " AND ")+`
ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: list orders: %w", err)
	}
	return scanOrders(rows)
}

func (p *PgRepo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, asset, COALESCE(buy_order, ''), COALESCE(sell_order, ''), buyer, seller, price, quantity::text, executed_at
FROM trades
WHERE buy_order = $1 OR sell_order = $1
ORDER BY executed_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("pg: load trades: %w", err)
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var qty string
		if err := rows.Scan(&t.ID, &t.Asset, &t.BuyOrder, &t.SellOrder, &t.Buyer, &t.Seller, &t.Price, &qty, &t.Timestamp); err != nil {
			return nil, err
		}
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse trade quantity: %w", err)
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

// querier is the part of pgxpool.Pool and pgx.Tx the loaders share.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `
SELECT id, owner, asset, side, price, quantity::text, remaining::text, reserved::text, status, created_at, updated_at`

func loadOrder(ctx context.Context, q querier, orderID, suffix string) (*domain.Order, error) {
	rows, err := q.Query(ctx, orderColumns+`
FROM orders
WHERE id = $1`+suffix, orderID)
	if err != nil {
		return nil, fmt.Errorf("pg: load order: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.NotFound("order %s not found", orderID)
	}
	return orders[0], nil
}

func scanOrders(rows pgx.Rows) ([]*domain.Order, error) {
	defer rows.Close()
	var res []*domain.Order
	for rows.Next() {
		var (
			o                        domain.Order
			side, status             string
			qty, remaining, reserved string
		)
		if err := rows.Scan(&o.ID, &o.Owner, &o.Asset, &side, &o.Price, &qty, &remaining, &reserved, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		var err error
		if o.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		if o.Remaining, err = decimal.NewFromString(remaining); err != nil {
			return nil, fmt.Errorf("parse remaining: %w", err)
		}
		if o.Reserved, err = decimal.NewFromString(reserved); err != nil {
			return nil, fmt.Errorf("parse reserved: %w", err)
		}
		res = append(res, &o)
	}
	return res, rows.Err()
}

// loadAccount reads the account row and its holdings. A missing row is an
// empty account.
func loadAccount(ctx context.Context, q querier, owner, suffix string) (*domain.Account, error) {
	acct := domain.NewAccount(owner)
	var cash, debt string
	err := q.QueryRow(ctx, `
SELECT cash::text, cash_debt::text, updated_at
FROM accounts
WHERE owner = $1`+suffix, owner).Scan(&cash, &debt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return acct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pg: load account: %w", err)
	}
	if acct.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	if acct.CashDebt, err = decimal.NewFromString(debt); err != nil {
		return nil, fmt.Errorf("parse cash debt: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT asset, quantity::text FROM holdings WHERE owner = $1`+suffix, owner)
	if err != nil {
		return nil, fmt.Errorf("pg: load holdings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var asset, qty string
		if err := rows.Scan(&asset, &qty); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("parse holding %s: %w", asset, err)
		}
		acct.SetAsset(asset, d)
	}
	return acct, rows.Err()
}
