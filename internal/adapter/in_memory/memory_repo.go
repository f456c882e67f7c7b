package in_memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

// MemoryRepo keeps everything in process. An open transaction holds the
// repository exclusively, so transactions are fully serialized and readers
// never see half-applied work.
type MemoryRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	orders   map[string]*domain.Order
	books    map[string]*book
	trades   map[string][]*domain.Trade
	tradeLog []*domain.Trade
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[string]*domain.Account),
		orders:   make(map[string]*domain.Order),
		books:    make(map[string]*book),
		trades:   make(map[string][]*domain.Trade),
	}
}

func (r *MemoryRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	return &memTx{repo: r}, nil
}

func (r *MemoryRepo) GetAccount(ctx context.Context, owner string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.accounts[owner]; ok {
		return a.Clone(), nil
	}
	return domain.NewAccount(owner), nil
}

func (r *MemoryRepo) LoadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order %s not found", orderID)
	}
	return o.Clone(), nil
}

func (r *MemoryRepo) ListActiveOrders(ctx context.Context, filter port.OrderFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if filter.Match(o) {
			res = append(res, o.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (r *MemoryRepo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*domain.Trade, 0, len(r.trades[orderID]))
	for _, t := range r.trades[orderID] {
		cpy := *t
		res = append(res, &cpy)
	}
	return res, nil
}

// Trades returns every recorded trade in execution order.
func (r *MemoryRepo) Trades() []*domain.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*domain.Trade, 0, len(r.tradeLog))
	for _, t := range r.tradeLog {
		cpy := *t
		res = append(res, &cpy)
	}
	return res
}

// Accounts returns a copy of every account.
func (r *MemoryRepo) Accounts() []*domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		res = append(res, a.Clone())
	}
	return res
}

func (r *MemoryRepo) Close(ctx context.Context) {}

func (r *MemoryRepo) book(asset string) *book {
	b, ok := r.books[asset]
	if !ok {
		b = &book{}
		r.books[asset] = b
	}
	return b
}

var errTxDone = errors.New("transaction already finished")

// memTx writes straight into the repository and keeps an undo log;
// Rollback replays it backwards.
type memTx struct {
	repo *MemoryRepo
	undo []func()
	done bool
}

func (t *memTx) LockAsset(ctx context.Context, asset string) error {
	return t.check(ctx)
}

func (t *memTx) LoadAccountForUpdate(ctx context.Context, owner string) (*domain.Account, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	if a, ok := t.repo.accounts[owner]; ok {
		return a.Clone(), nil
	}
	return domain.NewAccount(owner), nil
}

func (t *memTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	r := t.repo
	prev, existed := r.accounts[a.Owner]
	r.accounts[a.Owner] = a.Clone()
	t.undo = append(t.undo, func() {
		if existed {
			r.accounts[a.Owner] = prev
		} else {
			delete(r.accounts, a.Owner)
		}
	})
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	r := t.repo
	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	stored := o.Clone()
	r.orders[o.ID] = stored
	if stored.IsActive() {
		r.book(stored.Asset).insert(stored)
	}
	t.undo = append(t.undo, func() {
		delete(r.orders, stored.ID)
		r.book(stored.Asset).remove(stored.Side, stored.ID)
	})
	return nil
}

func (t *memTx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	r := t.repo
	prev, ok := r.orders[o.ID]
	if !ok {
		return domain.NotFound("order %s not found", o.ID)
	}
	next := o.Clone()
	r.orders[o.ID] = next
	b := r.book(prev.Asset)
	b.remove(prev.Side, prev.ID)
	if next.IsActive() {
		b.insert(next)
	}
	t.undo = append(t.undo, func() {
		r.orders[prev.ID] = prev
		b.remove(prev.Side, prev.ID)
		if prev.IsActive() {
			b.insert(prev)
		}
	})
	return nil
}

func (t *memTx) LoadOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	o, ok := t.repo.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order %s not found", orderID)
	}
	return o.Clone(), nil
}

func (t *memTx) BestOrder(ctx context.Context, asset string, side domain.Side) (*domain.Order, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return t.repo.book(asset).best(side).Clone(), nil
}

func (t *memTx) LoadActiveAtPrice(ctx context.Context, asset string, side domain.Side, price int64) ([]*domain.Order, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return cloneAll(t.repo.book(asset).atPrice(side, price)), nil
}

func (t *memTx) LoadActiveOrders(ctx context.Context, asset string) ([]*domain.Order, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return cloneAll(t.repo.book(asset).all()), nil
}

func (t *memTx) SaveTrade(ctx context.Context, tr *domain.Trade) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	r := t.repo
	cpy := *tr
	n := len(r.tradeLog)
	r.tradeLog = append(r.tradeLog, &cpy)
	keys := []string{tr.BuyOrder, tr.SellOrder}
	for _, k := range keys {
		if k != "" {
			r.trades[k] = append(r.trades[k], &cpy)
		}
	}
	t.undo = append(t.undo, func() {
		r.tradeLog = r.tradeLog[:n]
		for _, k := range keys {
			if k == "" {
				continue
			}
			if l := r.trades[k]; len(l) > 0 {
				r.trades[k] = l[:len(l)-1]
			}
		}
	})
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.undo = nil
	t.repo.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.repo.mu.Unlock()
	return nil
}

func (t *memTx) check(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	return ctx.Err()
}

func cloneAll(orders []*domain.Order) []*domain.Order {
	res := make([]*domain.Order, len(orders))
	for i, o := range orders {
		res[i] = o.Clone()
	}
	return res
}
