package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CashPlaces  = 2
	AssetPlaces = 4
)

// Epsilon is the smallest quantity still worth keeping on the book.
var Epsilon = decimal.New(1, -AssetPlaces)

// Account is an owner's cash plus per-asset holdings. CashDebt is only a
// record of shortfalls swallowed by cash debits; nothing pays it down.
type Account struct {
	Owner     string                     `json:"owner"`
	Cash      decimal.Decimal            `json:"cash"`
	CashDebt  decimal.Decimal            `json:"cash_debt"`
	Assets    map[string]decimal.Decimal `json:"assets"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func NewAccount(owner string) *Account {
	return &Account{
		Owner:  owner,
		Assets: make(map[string]decimal.Decimal),
	}
}

// Asset returns the holding for asset, zero when absent.
func (a *Account) Asset(asset string) decimal.Decimal {
	if a.Assets == nil {
		return decimal.Zero
	}
	return a.Assets[asset]
}

func (a *Account) SetAsset(asset string, qty decimal.Decimal) {
	if a.Assets == nil {
		a.Assets = make(map[string]decimal.Decimal)
	}
	a.Assets[asset] = qty
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cpy := *a
	cpy.Assets = make(map[string]decimal.Decimal, len(a.Assets))
	for k, v := range a.Assets {
		cpy.Assets[k] = v
	}
	return &cpy
}

func RoundCash(d decimal.Decimal) decimal.Decimal  { return d.Round(CashPlaces) }
func RoundAsset(d decimal.Decimal) decimal.Decimal { return d.Round(AssetPlaces) }

// Notional is the cash value of qty at price.
func Notional(qty decimal.Decimal, price int64) decimal.Decimal {
	return RoundCash(qty.Mul(decimal.NewFromInt(price)))
}

// Limits are the operator-tunable bounds on a single order.
type Limits struct {
	MaxOrderNotional decimal.Decimal
	MinQuantity      decimal.Decimal
}
