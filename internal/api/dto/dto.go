package dto

import (
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Request and response bodies shared by the HTTP and gRPC APIs. Owner
// fields are ignored over HTTP, where the caller is named by X-Owner-ID.

type PlaceOrderRequest struct {
	Owner    string          `json:"owner,omitempty"`
	Asset    string          `json:"asset" binding:"required"`
	Side     string          `json:"side" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    int64           `json:"price"`
}

type ExecutionResponse struct {
	Order  Order   `json:"order"`
	Trades []Trade `json:"trades"`
}

type CancelOrderRequest struct {
	Owner   string `json:"owner,omitempty"`
	OrderID string `json:"order_id" binding:"required"`
}

type CancelOrderResponse struct {
	Order Order `json:"order"`
}

type TakeRequest struct {
	Taker    string          `json:"taker,omitempty"`
	Asset    string          `json:"asset" binding:"required"`
	Price    int64           `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type TradesResponse struct {
	Trades []Trade `json:"trades"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderBookRequest struct {
	Asset string `json:"asset" form:"asset"`
}

type ListOrdersRequest struct {
	Owner string `json:"owner,omitempty" form:"owner"`
	Asset string `json:"asset,omitempty" form:"asset"`
	Side  string `json:"side,omitempty" form:"side"`
}

type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

type GetAccountRequest struct {
	Owner string `json:"owner"`
}

type FundRequest struct {
	Cash     decimal.Decimal `json:"cash"`
	Asset    string          `json:"asset,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
}

type StreamEventsRequest struct {
	Asset string `json:"asset,omitempty"`
}

type ErrorResponse struct {
	Error     string           `json:"error"`
	Kind      string           `json:"kind,omitempty"`
	Required  *decimal.Decimal `json:"required,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
}

type Order struct {
	ID        string                 `json:"id"`
	Owner     string                 `json:"owner"`
	Asset     string                 `json:"asset"`
	Side      string                 `json:"side"`
	Price     int64                  `json:"price"`
	Quantity  decimal.Decimal        `json:"quantity"`
	Remaining decimal.Decimal        `json:"remaining"`
	Reserved  decimal.Decimal        `json:"reserved"`
	Status    string                 `json:"status"`
	CreatedAt *timestamppb.Timestamp `json:"created_at"`
	UpdatedAt *timestamppb.Timestamp `json:"updated_at"`
}

type Trade struct {
	ID        string                 `json:"id"`
	Asset     string                 `json:"asset"`
	BuyOrder  string                 `json:"buy_order,omitempty"`
	SellOrder string                 `json:"sell_order,omitempty"`
	Buyer     string                 `json:"buyer"`
	Seller    string                 `json:"seller"`
	Price     int64                  `json:"price"`
	Quantity  decimal.Decimal        `json:"quantity"`
	Timestamp *timestamppb.Timestamp `json:"timestamp"`
}

type PriceLevel struct {
	Price    int64           `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Orders   int             `json:"orders"`
}

type OrderBook struct {
	Asset     string                 `json:"asset"`
	Bids      []PriceLevel           `json:"bids"`
	Asks      []PriceLevel           `json:"asks"`
	Timestamp *timestamppb.Timestamp `json:"timestamp"`
}

type Account struct {
	Owner     string                     `json:"owner"`
	Cash      decimal.Decimal            `json:"cash"`
	CashDebt  decimal.Decimal            `json:"cash_debt"`
	Assets    map[string]decimal.Decimal `json:"assets"`
	UpdatedAt *timestamppb.Timestamp     `json:"updated_at,omitempty"`
}

type Event struct {
	Type      string                 `json:"type"`
	Asset     string                 `json:"asset"`
	Owner     string                 `json:"owner,omitempty"`
	Order     *Order                 `json:"order,omitempty"`
	Trade     *Trade                 `json:"trade,omitempty"`
	Timestamp *timestamppb.Timestamp `json:"timestamp"`
}
