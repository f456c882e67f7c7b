package in_memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

func newOrder(id string, side domain.Side, price int64, at time.Time) *domain.Order {
	qty := decimal.NewFromInt(1)
	return &domain.Order{
		ID:        id,
		Owner:     "o-" + id,
		Asset:     "GEM",
		Side:      side,
		Price:     price,
		Quantity:  qty,
		Remaining: qty,
		Reserved:  side.Reserve(qty, price),
		Status:    domain.Active,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestBestOrderPriority(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	base := time.Now()

	tx, err := r.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range []*domain.Order{
		newOrder("b1", domain.Buy, 10, base),
		newOrder("b2", domain.Buy, 12, base.Add(time.Second)),
		newOrder("b3", domain.Buy, 12, base.Add(2*time.Second)),
		newOrder("a1", domain.Sell, 15, base.Add(time.Second)),
		newOrder("a2", domain.Sell, 14, base.Add(2*time.Second)),
	} {
		if err := tx.InsertOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}
	bid, _ := tx.BestOrder(ctx, "GEM", domain.Buy)
	ask, _ := tx.BestOrder(ctx, "GEM", domain.Sell)
	if bid.ID != "b2" || ask.ID != "a2" {
		t.Fatalf("best bid %s ask %s, want b2 a2", bid.ID, ask.ID)
	}
	level, _ := tx.LoadActiveAtPrice(ctx, "GEM", domain.Buy, 12)
	if len(level) != 2 || level[0].ID != "b2" || level[1].ID != "b3" {
		t.Fatalf("level at 12 = %v", level)
	}
	none, _ := tx.BestOrder(ctx, "OTHER", domain.Sell)
	if none != nil {
		t.Fatal("empty book must have no best order")
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestRollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	base := time.Now()

	tx, _ := r.BeginTx(ctx)
	_ = tx.SaveAccount(ctx, &domain.Account{Owner: "u", Cash: decimal.NewFromInt(100), Assets: map[string]decimal.Decimal{}})
	_ = tx.InsertOrder(ctx, newOrder("keep", domain.Sell, 20, base))
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	tx, _ = r.BeginTx(ctx)
	_ = tx.SaveAccount(ctx, &domain.Account{Owner: "u", Cash: decimal.NewFromInt(1), Assets: map[string]decimal.Decimal{}})
	_ = tx.SaveAccount(ctx, &domain.Account{Owner: "new", Cash: decimal.NewFromInt(5), Assets: map[string]decimal.Decimal{}})
	_ = tx.InsertOrder(ctx, newOrder("gone", domain.Sell, 19, base))
	kept, _ := tx.LoadOrderForUpdate(ctx, "keep")
	kept.Status = domain.Cancelled
	_ = tx.UpdateOrder(ctx, kept)
	_ = tx.SaveTrade(ctx, &domain.Trade{ID: "t", Asset: "GEM", SellOrder: "keep", Quantity: decimal.NewFromInt(1)})
	if err := tx.Rollback(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("second rollback must be a no-op: %v", err)
	}

	acct, _ := r.GetAccount(ctx, "u")
	if !acct.Cash.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cash = %s, want 100", acct.Cash)
	}
	if len(r.Accounts()) != 1 {
		t.Fatal("account created in a rolled back tx must disappear")
	}
	if _, err := r.LoadOrder(ctx, "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("inserted order survived rollback: %v", err)
	}
	active, _ := r.ListActiveOrders(ctx, port.OrderFilter{Asset: "GEM"})
	if len(active) != 1 || active[0].ID != "keep" {
		t.Fatalf("active orders = %v", active)
	}
	if len(r.Trades()) != 0 {
		t.Fatal("trade survived rollback")
	}
	trades, _ := r.LoadTradesForOrder(ctx, "keep")
	if len(trades) != 0 {
		t.Fatal("trade index survived rollback")
	}

	tx, _ = r.BeginTx(ctx)
	best, _ := tx.BestOrder(ctx, "GEM", domain.Sell)
	_ = tx.Rollback(ctx)
	if best == nil || best.ID != "keep" {
		t.Fatalf("book not restored, best = %v", best)
	}
}

func TestFinishedTxRejectsWork(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	tx, _ := r.BeginTx(ctx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err == nil {
		t.Fatal("double commit must fail")
	}
	if _, err := tx.LoadAccountForUpdate(ctx, "u"); err == nil {
		t.Fatal("use after commit must fail")
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	if ob, err := c.GetOrderbook(ctx, "GEM"); ob != nil || err != nil {
		t.Fatalf("miss = %v, %v", ob, err)
	}
	snap := &domain.OrderbookSnapshot{Asset: "GEM", Bids: []domain.PriceLevel{{Price: 10, Quantity: decimal.NewFromInt(1), Orders: 1}}}
	_ = c.SetOrderbook(ctx, "GEM", snap)
	snap.Bids[0].Price = 99

	got, _ := c.GetOrderbook(ctx, "GEM")
	if got.Bids[0].Price != 10 {
		t.Fatal("cache must not alias the caller's snapshot")
	}
	_ = c.Invalidate(ctx, "GEM")
	if got, _ := c.GetOrderbook(ctx, "GEM"); got != nil {
		t.Fatal("invalidate must drop the snapshot")
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker(4)
	gem, cancelGem := b.Subscribe("GEM")
	all, cancelAll := b.Subscribe("")
	defer cancelAll()

	ev := domain.Event{Type: domain.EventTrade, Asset: "GEM"}
	other := domain.Event{Type: domain.EventTrade, Asset: "ORE"}
	if err := b.Publish(context.Background(), []domain.Event{ev, other}); err != nil {
		t.Fatal(err)
	}
	if got := <-gem; got.Asset != "GEM" {
		t.Fatalf("asset subscriber got %s", got.Asset)
	}
	select {
	case got := <-gem:
		t.Fatalf("asset subscriber got a foreign event %v", got)
	default:
	}
	if a, o := <-all, <-all; a.Asset != "GEM" || o.Asset != "ORE" {
		t.Fatalf("wildcard subscriber got %s, %s", a.Asset, o.Asset)
	}

	cancelGem()
	cancelGem()
	if _, ok := <-gem; ok {
		t.Fatal("cancelled subscription must be closed")
	}

	// a full buffer drops instead of blocking
	for i := 0; i < 10; i++ {
		_ = b.Publish(context.Background(), []domain.Event{ev})
	}
	if len(all) != 4 {
		t.Fatalf("buffered = %d, want 4", len(all))
	}
}
