package domain

import "time"

type EventType string

const (
	EventOrderPlaced    EventType = "order_placed"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderFilled    EventType = "order_filled"
	EventTrade          EventType = "trade"
)

// Event is emitted for every committed mutation so the chat layer can
// notify the people involved.
type Event struct {
	Type      EventType `json:"type"`
	Asset     string    `json:"asset"`
	Owner     string    `json:"owner,omitempty"`
	Order     *Order    `json:"order,omitempty"`
	Trade     *Trade    `json:"trade,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func OrderEvent(t EventType, o *Order, at time.Time) Event {
	return Event{Type: t, Asset: o.Asset, Owner: o.Owner, Order: o.Clone(), Timestamp: at}
}

func TradeEvent(tr *Trade) Event {
	cpy := *tr
	return Event{Type: EventTrade, Asset: tr.Asset, Trade: &cpy, Timestamp: tr.Timestamp}
}
