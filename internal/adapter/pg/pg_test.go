package pg_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/olyamironova/game-exchange/internal/adapter/pg"
	"github.com/olyamironova/game-exchange/internal/core"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

// openRepo connects to EXCHANGE_TEST_POSTGRES_DSN and starts from empty
// tables. The tests are skipped when it is unset.
func openRepo(t *testing.T) *pg.PgRepo {
	t.Helper()
	dsn := os.Getenv("EXCHANGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EXCHANGE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	repo, err := pg.NewPgRepo(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { repo.Close(ctx) })
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := pg.Truncate(ctx, tx); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAccountRoundTrip(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	acct, err := tx.LoadAccountForUpdate(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	acct.Cash = dec("12.34")
	acct.CashDebt = dec("0.01")
	acct.SetAsset("GEM", dec("1.2345"))
	if err := tx.SaveAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Cash.Equal(dec("12.34")) || !got.CashDebt.Equal(dec("0.01")) || !got.Asset("GEM").Equal(dec("1.2345")) {
		t.Fatalf("got %+v", got)
	}
	empty, err := repo.GetAccount(ctx, "nobody")
	if err != nil || !empty.Cash.IsZero() || len(empty.Assets) != 0 {
		t.Fatalf("missing account = %+v, %v", empty, err)
	}
}

func TestRollbackDiscardsOrder(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	o := &domain.Order{
		ID: "o1", Owner: "alice", Asset: "GEM", Side: domain.Sell, Price: 10,
		Quantity: dec("1"), Remaining: dec("1"), Reserved: dec("1"), Status: domain.Active,
	}
	if err := tx.InsertOrder(ctx, o); err != nil {
		t.Fatal(err)
	}
	_ = tx.Rollback(ctx)

	if _, err := repo.LoadOrder(ctx, "o1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEngineOnPostgres(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	e := core.NewEngine(repo, nil)

	if _, err := e.Fund(ctx, core.FundRequest{Owner: "seller", Asset: "GEM", Quantity: dec("10")}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Fund(ctx, core.FundRequest{Owner: "b1", Cash: dec("1000")}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Fund(ctx, core.FundRequest{Owner: "b2", Cash: dec("1000")}); err != nil {
		t.Fatal(err)
	}
	first, err := e.PlaceOrder(ctx, core.PlaceOrderRequest{Owner: "b1", Asset: "GEM", Side: domain.Buy, Quantity: dec("2"), Price: 100})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.PlaceOrder(ctx, core.PlaceOrderRequest{Owner: "b2", Asset: "GEM", Side: domain.Buy, Quantity: dec("2"), Price: 100}); err != nil {
		t.Fatal(err)
	}
	exec, err := e.PlaceOrder(ctx, core.PlaceOrderRequest{Owner: "seller", Asset: "GEM", Side: domain.Sell, Quantity: dec("2"), Price: 90})
	if err != nil {
		t.Fatal(err)
	}
	if len(exec.Trades) != 1 || exec.Trades[0].BuyOrder != first.Order.ID || exec.Trades[0].Price != 90 {
		t.Fatalf("unexpected trades %+v", exec.Trades)
	}
	trades, err := repo.LoadTradesForOrder(ctx, first.Order.ID)
	if err != nil || len(trades) != 1 {
		t.Fatalf("stored trades = %v, %v", trades, err)
	}

	b1, _ := repo.GetAccount(ctx, "b1")
	if !b1.Cash.Equal(dec("820")) || !b1.Asset("GEM").Equal(dec("2")) {
		t.Fatalf("b1 = %s cash, %s GEM", b1.Cash, b1.Asset("GEM"))
	}
	active, err := repo.ListActiveOrders(ctx, port.OrderFilter{Asset: "GEM", Side: domain.Buy})
	if err != nil || len(active) != 1 || active[0].Owner != "b2" {
		t.Fatalf("active bids = %v, %v", active, err)
	}
	if _, err := e.TakeAsks(ctx, core.TakeRequest{Taker: "b2", Asset: "GEM", Price: 90, Quantity: dec("1")}); !errors.Is(err, domain.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}
