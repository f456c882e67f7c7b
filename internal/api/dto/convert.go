package dto

import (
	"errors"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TimeToProto(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

func FromOrder(o *domain.Order) Order {
	return Order{
		ID:        o.ID,
		Owner:     o.Owner,
		Asset:     o.Asset,
		Side:      string(o.Side),
		Price:     o.Price,
		Quantity:  o.Quantity,
		Remaining: o.Remaining,
		Reserved:  o.Reserved,
		Status:    string(o.Status),
		CreatedAt: TimeToProto(o.CreatedAt),
		UpdatedAt: TimeToProto(o.UpdatedAt),
	}
}

func FromOrders(orders []*domain.Order) []Order {
	res := make([]Order, len(orders))
	for i, o := range orders {
		res[i] = FromOrder(o)
	}
	return res
}

func FromTrade(t *domain.Trade) Trade {
	return Trade{
		ID:        t.ID,
		Asset:     t.Asset,
		BuyOrder:  t.BuyOrder,
		SellOrder: t.SellOrder,
		Buyer:     t.Buyer,
		Seller:    t.Seller,
		Price:     t.Price,
		Quantity:  t.Quantity,
		Timestamp: TimeToProto(t.Timestamp),
	}
}

func FromTrades(trades []*domain.Trade) []Trade {
	res := make([]Trade, len(trades))
	for i, t := range trades {
		res[i] = FromTrade(t)
	}
	return res
}

func FromExecution(o *domain.Order, trades []*domain.Trade) ExecutionResponse {
	return ExecutionResponse{Order: FromOrder(o), Trades: FromTrades(trades)}
}

func FromSnapshot(ob *domain.OrderbookSnapshot) OrderBook {
	levels := func(in []domain.PriceLevel) []PriceLevel {
		res := make([]PriceLevel, len(in))
		for i, l := range in {
			res[i] = PriceLevel{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders}
		}
		return res
	}
	return OrderBook{
		Asset:     ob.Asset,
		Bids:      levels(ob.Bids),
		Asks:      levels(ob.Asks),
		Timestamp: TimeToProto(ob.Timestamp),
	}
}

func FromAccount(a *domain.Account) Account {
	return Account{
		Owner:     a.Owner,
		Cash:      a.Cash,
		CashDebt:  a.CashDebt,
		Assets:    a.Clone().Assets,
		UpdatedAt: TimeToProto(a.UpdatedAt),
	}
}

func FromEvent(ev domain.Event) Event {
	res := Event{
		Type:      string(ev.Type),
		Asset:     ev.Asset,
		Owner:     ev.Owner,
		Timestamp: TimeToProto(ev.Timestamp),
	}
	if ev.Order != nil {
		o := FromOrder(ev.Order)
		res.Order = &o
	}
	if ev.Trade != nil {
		t := FromTrade(ev.Trade)
		res.Trade = &t
	}
	return res
}

// FromError describes err for clients. Errors that are not domain errors
// are reported as a generic internal failure.
func FromError(err error) ErrorResponse {
	var de *domain.Error
	if !errors.As(err, &de) {
		return ErrorResponse{Error: "internal error"}
	}
	res := ErrorResponse{Error: de.Error(), Kind: string(de.Kind)}
	if de.Kind == domain.KindInsufficientFunds || de.Kind == domain.KindInsufficientLiquidity {
		required, available := de.Required, de.Available
		res.Required = &required
		res.Available = &available
	}
	return res
}
