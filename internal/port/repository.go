package port

import (
	"context"

	"github.com/olyamironova/game-exchange/internal/domain"
)

// OrderFilter narrows ListActiveOrders; empty fields match everything.
type OrderFilter struct {
	Owner string
	Asset string
	Side  domain.Side
}

func (f OrderFilter) Match(o *domain.Order) bool {
	if !o.IsActive() {
		return false
	}
	if f.Owner != "" && o.Owner != f.Owner {
		return false
	}
	if f.Asset != "" && o.Asset != f.Asset {
		return false
	}
	if f.Side != "" && o.Side != f.Side {
		return false
	}
	return true
}

// Repository is the read side of the store plus the transaction entry point.
// Reads here are never used while a Tx from the same caller is open.
type Repository interface {
	BeginTx(ctx context.Context) (Tx, error)
	GetAccount(ctx context.Context, owner string) (*domain.Account, error)
	LoadOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListActiveOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error)
	Close(ctx context.Context)
}

// Tx is one all-or-nothing unit of work. Ledger primitives, order mutations
// and trade records all go through the same Tx so they commit together.
type Tx interface {
	// LockAsset serializes this transaction against every other one that
	// locks the same asset, until commit or rollback.
	LockAsset(ctx context.Context, asset string) error

	// LoadAccountForUpdate returns an empty account when owner has none yet.
	LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error

	InsertOrder(ctx context.Context, o *domain.Order) error
	UpdateOrder(ctx context.Context, o *domain.Order) error
	// LoadOrderForUpdate fails with domain.ErrNotFound for unknown ids.
	LoadOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	// BestOrder is the active order with priority on side, or nil.
	BestOrder(ctx context.Context, asset string, side domain.Side) (*domain.Order, error)
	// LoadActiveAtPrice returns active orders at exactly price, oldest first.
	LoadActiveAtPrice(ctx context.Context, asset string, side domain.Side, price int64) ([]*domain.Order, error)
	LoadActiveOrders(ctx context.Context, asset string) ([]*domain.Order, error)

	SaveTrade(ctx context.Context, t *domain.Trade) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
