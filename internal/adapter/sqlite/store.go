// Package sqlite provides a single-file SQLite store for running the exchange
// without a database server.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists accounts, orders and trades in SQLite. It keeps a single
// connection, so transactions are serialized by the pool itself.
type Store struct {
	sqlDB *sql.DB
}

var _ port.Repository = (*Store)(nil)

func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// Open opens the database at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close(ctx context.Context) {
	if s == nil || s.sqlDB == nil {
		return
	}
	_ = s.sqlDB.Close()
}

func (s *Store) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sqlite tx: %w", err)
	}
	return &storeTx{tx: tx}, nil
}

func (s *Store) GetAccount(ctx context.Context, owner string) (*domain.Account, error) {
	return loadAccount(ctx, s.sqlDB, owner)
}

func (s *Store) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, s.sqlDB, orderID)
}

func (s *Store) ListActiveOrders(ctx context.Context, filter port.OrderFilter) ([]*domain.Order, error) {
	query := orderColumns + ` FROM orders
		 WHERE status = 'active'
		   AND (? = '' OR owner = ?)
		   AND (? = '' OR asset = ?)
		   AND (? = '' OR side = ?)
		 ORDER BY created_at ASC, id ASC`
	side := string(filter.Side)
	return queryOrders(ctx, s.sqlDB, query, filter.Owner, filter.Owner, filter.Asset, filter.Asset, side, side)
}

func (s *Store) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, asset, buy_order, sell_order, buyer, seller, price, quantity, executed_at
		   FROM trades
		  WHERE buy_order = ? OR sell_order = ?
		  ORDER BY executed_at ASC, id ASC`,
		orderID, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var (
			t        domain.Trade
			qty      string
			executed int64
		)
		if err := rows.Scan(&t.ID, &t.Asset, &t.BuyOrder, &t.SellOrder, &t.Buyer, &t.Seller, &t.Price, &qty, &executed); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse trade quantity: %w", err)
		}
		t.Timestamp = fromNanos(executed)
		res = append(res, &t)
	}
	return res, rows.Err()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `SELECT id, owner, asset, side, price, quantity, remaining, reserved, status, created_at, updated_at`

func loadOrder(ctx context.Context, q queryer, orderID string) (*domain.Order, error) {
	orders, err := queryOrders(ctx, q, orderColumns+` FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.NotFound("order %s not found", orderID)
	}
	return orders[0], nil
}

func queryOrders(ctx context.Context, q queryer, query string, args ...any) ([]*domain.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var (
			o                        domain.Order
			side, status             string
			qty, remaining, reserved string
			created, updated         int64
		)
		if err := rows.Scan(&o.ID, &o.Owner, &o.Asset, &side, &o.Price, &qty, &remaining, &reserved, &status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = fromNanos(created)
		o.UpdatedAt = fromNanos(updated)
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

func loadAccount(ctx context.Context, q queryer, owner string) (*domain.Account, error) {
	acct := domain.NewAccount(owner)
	var (
		cash, debt string
		updated    int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT cash, cash_debt, updated_at FROM accounts WHERE owner = ?`, owner,
	).Scan(&cash, &debt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return acct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acct.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash: %w", err)
	}
	if acct.CashDebt, err = decimal.NewFromString(debt); err != nil {
		return nil, fmt.Errorf("parse cash debt: %w", err)
	}
	acct.UpdatedAt = fromNanos(updated)

	rows, err := q.QueryContext(ctx, `SELECT asset, quantity FROM holdings WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var asset, qty string
		if err := rows.Scan(&asset, &qty); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		d, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("parse holding %s: %w", asset, err)
		}
		acct.SetAsset(asset, d)
	}
	return acct, rows.Err()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
