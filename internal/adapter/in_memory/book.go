package in_memory

import (
	"sort"

	"github.com/olyamironova/game-exchange/internal/domain"
)

// book keeps one asset's active orders in priority order: bids by price
// descending, asks ascending, FIFO within a price.
type book struct {
	bids []*domain.Order
	asks []*domain.Order
}

func (b *book) side(s domain.Side) *[]*domain.Order {
	if s == domain.Buy {
		return &b.bids
	}
	return &b.asks
}

func (b *book) insert(o *domain.Order) {
	lvl := b.side(o.Side)
	i := sort.Search(len(*lvl), func(i int) bool { return domain.Ahead(o, (*lvl)[i]) })
	*lvl = append(*lvl, nil)
	copy((*lvl)[i+1:], (*lvl)[i:])
	(*lvl)[i] = o
}

func (b *book) remove(s domain.Side, orderID string) {
	lvl := b.side(s)
	for i, o := range *lvl {
		if o.ID == orderID {
			*lvl = append((*lvl)[:i], (*lvl)[i+1:]...)
			return
		}
	}
}

func (b *book) best(s domain.Side) *domain.Order {
	lvl := *b.side(s)
	if len(lvl) == 0 {
		return nil
	}
	return lvl[0]
}

func (b *book) atPrice(s domain.Side, price int64) []*domain.Order {
	var res []*domain.Order
	for _, o := range *b.side(s) {
		if o.Price == price {
			res = append(res, o)
		}
	}
	return res
}

func (b *book) all() []*domain.Order {
	res := make([]*domain.Order, 0, len(b.bids)+len(b.asks))
	res = append(res, b.bids...)
	return append(res, b.asks...)
}
