package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is write-once. An instant fill leaves the taker's order id empty.
type Trade struct {
	ID        string          `json:"id"`
	Asset     string          `json:"asset"`
	BuyOrder  string          `json:"buy_order,omitempty"`
	SellOrder string          `json:"sell_order,omitempty"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Price     int64           `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

// Value is the cash that changed hands.
func (t *Trade) Value() decimal.Decimal {
	return Notional(t.Quantity, t.Price)
}
