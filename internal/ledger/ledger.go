// Package ledger holds the balance primitives. They never open a transaction
// of their own; callers pass the Tx that also carries their order changes.
package ledger

import (
	"context"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/shopspring/decimal"
)

// Accounts is the slice of port.Tx the ledger needs.
type Accounts interface {
	LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error
}

func CreditCash(ctx context.Context, tx Accounts, owner string, amount decimal.Decimal) error {
	amount = domain.RoundCash(amount)
	if err := checkAmount(amount); err != nil {
		return err
	}
	return update(ctx, tx, owner, func(a *domain.Account) error {
		a.Cash = a.Cash.Add(amount)
		return nil
	})
}

// DebitCash never fails on shortfall: the balance stops at zero and the
// rest is recorded as debt.
func DebitCash(ctx context.Context, tx Accounts, owner string, amount decimal.Decimal) error {
	amount = domain.RoundCash(amount)
	if err := checkAmount(amount); err != nil {
		return err
	}
	return update(ctx, tx, owner, func(a *domain.Account) error {
		if a.Cash.LessThan(amount) {
			a.CashDebt = a.CashDebt.Add(amount.Sub(a.Cash))
			a.Cash = decimal.Zero
			return nil
		}
		a.Cash = a.Cash.Sub(amount)
		return nil
	})
}

// AdjustCash credits a positive delta and debits a negative one.
func AdjustCash(ctx context.Context, tx Accounts, owner string, delta decimal.Decimal) error {
	delta = domain.RoundCash(delta)
	switch delta.Sign() {
	case 1:
		return CreditCash(ctx, tx, owner, delta)
	case -1:
		return DebitCash(ctx, tx, owner, delta.Neg())
	}
	return nil
}

func CreditAsset(ctx context.Context, tx Accounts, owner, asset string, qty decimal.Decimal) error {
	qty = domain.RoundAsset(qty)
	if err := checkAmount(qty); err != nil {
		return err
	}
	return update(ctx, tx, owner, func(a *domain.Account) error {
		a.SetAsset(asset, a.Asset(asset).Add(qty))
		return nil
	})
}

// DebitAsset is strict: asset balances back order collateral, so a shortfall
// is an error and nothing is written.
func DebitAsset(ctx context.Context, tx Accounts, owner, asset string, qty decimal.Decimal) error {
	qty = domain.RoundAsset(qty)
	if err := checkAmount(qty); err != nil {
		return err
	}
	return update(ctx, tx, owner, func(a *domain.Account) error {
		held := a.Asset(asset)
		if held.LessThan(qty) {
			return domain.InsufficientFunds(asset, qty, held)
		}
		a.SetAsset(asset, held.Sub(qty))
		return nil
	})
}

func update(ctx context.Context, tx Accounts, owner string, fn func(*domain.Account) error) error {
	if owner == "" {
		return domain.Validation("owner is required")
	}
	acct, err := tx.LoadAccountForUpdate(ctx, owner)
	if err != nil {
		return err
	}
	if err := fn(acct); err != nil {
		return err
	}
	return tx.SaveAccount(ctx, acct)
}

func checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return domain.Validation("amount must not be negative: %s", d)
	}
	return nil
}
