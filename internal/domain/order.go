package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderStatus string

const (
	Buy  Side = "buy"
	Sell Side = "sell"

	Active    OrderStatus = "active"
	Completed OrderStatus = "completed"
	Cancelled OrderStatus = "cancelled"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", Validation("unknown side %q", s)
}

func (s Side) Valid() bool { return s == Buy || s == Sell }

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Reserve is what an order of this side must hold back for qty at price:
// cash for a buy, the asset itself for a sell.
func (s Side) Reserve(qty decimal.Decimal, price int64) decimal.Decimal {
	if s == Buy {
		return Notional(qty, price)
	}
	return RoundAsset(qty)
}

// Better reports whether price a has priority over price b on this side.
func (s Side) Better(a, b int64) bool {
	if s == Buy {
		return a > b
	}
	return a < b
}

type Order struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Asset     string          `json:"asset"`
	Side      Side            `json:"side"`
	Price     int64           `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Remaining decimal.Decimal `json:"remaining"`
	Reserved  decimal.Decimal `json:"reserved"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (o *Order) IsActive() bool { return o.Status == Active }

// Crosses reports whether a buy and a sell order can trade with each other.
func Crosses(buy, sell *Order) bool {
	return buy.Side == Buy && sell.Side == Sell && buy.Price >= sell.Price
}

// Ahead orders two resting orders of the same side by price, then FIFO.
func Ahead(a, b *Order) bool {
	if a.Price != b.Price {
		return a.Side.Better(a.Price, b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Fill takes qty off the order and returns how much of the reserve it frees.
// Orders left with less than Epsilon are completed and release everything.
func (o *Order) Fill(qty decimal.Decimal, at time.Time) decimal.Decimal {
	o.Remaining = RoundAsset(o.Remaining.Sub(qty))
	if o.Remaining.LessThan(Epsilon) {
		o.Remaining = decimal.Zero
		o.Status = Completed
	}
	reserved := o.Side.Reserve(o.Remaining, o.Price)
	released := o.Reserved.Sub(reserved)
	o.Reserved = reserved
	o.UpdatedAt = at
	return released
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cpy := *o
	return &cpy
}
