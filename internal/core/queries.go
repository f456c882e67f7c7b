package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/ledger"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

func (e *Engine) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return e.repo.LoadOrder(ctx, orderID)
}

func (e *Engine) GetTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	return e.repo.LoadTradesForOrder(ctx, orderID)
}

// ListActiveOrders lists resting orders, oldest first, narrowed by owner,
// side and asset.
func (e *Engine) ListActiveOrders(ctx context.Context, filter port.OrderFilter) ([]*domain.Order, error) {
	if filter.Side != "" && !filter.Side.Valid() {
		return nil, domain.Validation("unknown side %q", filter.Side)
	}
	return e.repo.ListActiveOrders(ctx, filter)
}

func (e *Engine) GetAccount(ctx context.Context, owner string) (*domain.Account, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, domain.Validation("owner is required")
	}
	return e.repo.GetAccount(ctx, owner)
}

// FundRequest credits an owner from outside the exchange, e.g. game rewards.
type FundRequest struct {
	Owner    string
	Cash     decimal.Decimal
	Asset    string
	Quantity decimal.Decimal
}

// Fund credits cash and/or an asset holding in one transaction, serialized
// with the asset's other mutations.
func (e *Engine) Fund(ctx context.Context, req FundRequest) (*domain.Account, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, domain.Validation("owner is required")
	}
	if req.Cash.IsNegative() || req.Quantity.IsNegative() {
		return nil, domain.Validation("funding amounts must not be negative")
	}
	if req.Quantity.IsPositive() && req.Asset == "" {
		return nil, domain.Validation("asset is required to fund a quantity")
	}
	var acct *domain.Account
	_, err := e.mutate(ctx, "fund", req.Asset, func(s *session) error {
		if req.Cash.IsPositive() {
			if err := ledger.CreditCash(ctx, s.tx, req.Owner, req.Cash); err != nil {
				return err
			}
		}
		if req.Quantity.IsPositive() {
			if err := ledger.CreditAsset(ctx, s.tx, req.Owner, req.Asset, req.Quantity); err != nil {
				return err
			}
		}
		a, err := s.tx.LoadAccountForUpdate(ctx, req.Owner)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}
